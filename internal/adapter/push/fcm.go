package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	defaultFCMURL = "https://fcm.googleapis.com"
	fcmScope      = "https://www.googleapis.com/auth/firebase.messaging"
)

// FCMClient implements Sender via the FCM HTTP v1 API.
type FCMClient struct {
	endpoint   *url.URL
	httpClient *http.Client
	logger     *slog.Logger
}

type fcmRequest struct {
	Message fcmMessage `json:"message"`
}

type fcmMessage struct {
	Token        string            `json:"token"`
	Notification fcmNotification   `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
	Android      fcmAndroid        `json:"android"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type fcmAndroid struct {
	Priority string `json:"priority"`
}

// fcmError mirrors the google.rpc.Status error body.
type fcmError struct {
	Error struct {
		Code    int    `json:"code"`
		Status  string `json:"status"`
		Message string `json:"message"`
		Details []struct {
			ErrorCode string `json:"errorCode"`
		} `json:"details"`
	} `json:"error"`
}

// NewFCMClient creates client sending as projectID. httpClient must attach credentials.
func NewFCMClient(baseURL, projectID string, httpClient *http.Client, logger *slog.Logger) (*FCMClient, error) {
	if baseURL == "" {
		baseURL = defaultFCMURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse fcm url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("fcm url must be absolute")
	}
	if projectID == "" {
		return nil, fmt.Errorf("fcm project id is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	parsed.Path = path.Join(parsed.Path, "/v1/projects", projectID, "messages:send")
	return &FCMClient{endpoint: parsed, httpClient: httpClient, logger: logger}, nil
}

// NewServiceAccountHTTPClient returns an HTTP client authorised with the service account JSON.
func NewServiceAccountHTTPClient(ctx context.Context, credentialsJSON []byte) (*http.Client, error) {
	creds, err := google.CredentialsFromJSON(ctx, credentialsJSON, fcmScope)
	if err != nil {
		return nil, fmt.Errorf("load fcm credentials: %w", err)
	}
	client := oauth2.NewClient(ctx, creds.TokenSource)
	client.Timeout = 10 * time.Second
	return client, nil
}

func (c *FCMClient) Send(ctx context.Context, token string, msg Message) error {
	body, err := json.Marshal(fcmRequest{Message: fcmMessage{
		Token:        token,
		Notification: fcmNotification{Title: msg.Title, Body: msg.Body},
		Data:         msg.Data,
		Android:      fcmAndroid{Priority: "high"},
	}})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	case http.StatusTooManyRequests:
		return TooManyRequestsError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	default:
		raw, _ := io.ReadAll(resp.Body)
		if reason, rejected := rejectionReason(resp.StatusCode, raw); rejected {
			return RejectedError{Reason: reason}
		}
		c.logger.Error("fcm request failed", slog.Int("status", resp.StatusCode), slog.String("body", string(raw)))
		return fmt.Errorf("fcm error: %s", resp.Status)
	}
}

func rejectionReason(status int, raw []byte) (string, bool) {
	var e fcmError
	_ = json.Unmarshal(raw, &e)
	for _, d := range e.Error.Details {
		if d.ErrorCode == "UNREGISTERED" || d.ErrorCode == "INVALID_ARGUMENT" {
			return d.ErrorCode, true
		}
	}
	if status == http.StatusNotFound {
		return "UNREGISTERED", true
	}
	return "", false
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 5 * time.Second
	}
	if seconds, err := strconv.Atoi(header); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}
	return 5 * time.Second
}
