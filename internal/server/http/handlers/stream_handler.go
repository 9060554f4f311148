package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/orderflow/internal/domain/model"
	"github.com/polkiloo/orderflow/internal/live"
)

const (
	// DefaultHeartbeat keeps idle proxies from closing the stream.
	DefaultHeartbeat = 25 * time.Second
	streamBuffer     = 32
)

var heartbeatFrame = []byte(": ping\n\n")

// StreamHandler serves the restaurant live dashboard stream.
type StreamHandler struct {
	facade    StreamFacade
	logger    *slog.Logger
	heartbeat time.Duration
}

// NewStreamHandler constructs StreamHandler.
func NewStreamHandler(facade StreamFacade, logger *slog.Logger, heartbeat time.Duration) *StreamHandler {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	return &StreamHandler{facade: facade, logger: logger, heartbeat: heartbeat}
}

// Stream handles GET /api/partner/notifications/stream.
func (h *StreamHandler) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	conn := live.NewChannelConn(streamBuffer)
	defer conn.Close()

	restaurant, dispose, err := h.facade.Subscribe(ctx, CurrentActor(c), conn)
	if err != nil {
		writeError(c, err)
		return
	}
	defer dispose()

	connected, err := live.Frame(model.NotificationEvent{
		Type:      model.EventConnected,
		Data:      map[string]string{"restaurantId": restaurant.ID},
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	if _, err := c.Writer.Write(connected); err != nil {
		return
	}
	c.Writer.Flush()

	h.logger.Info("live stream opened", slog.String("restaurant_id", restaurant.ID))
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-conn.Done():
			return false
		case frame := <-conn.Frames():
			_, err := w.Write(frame)
			return err == nil
		case <-ticker.C:
			_, err := w.Write(heartbeatFrame)
			return err == nil
		}
	})
	h.logger.Info("live stream closed", slog.String("restaurant_id", restaurant.ID))
}
