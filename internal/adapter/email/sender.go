// Package email sends transactional order emails over SMTP.
package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"time"
)

// ErrUnknownTemplate is returned for a template name without a definition.
var ErrUnknownTemplate = errors.New("unknown email template")

// Options locates the SMTP relay.
type Options struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type sendFunc func(ctx context.Context, to string, msg []byte) error

// SMTPSender renders a template and relays it through SMTP.
type SMTPSender struct {
	opts   Options
	send   sendFunc
	logger *slog.Logger
}

// NewSMTPSender constructs sender for opts.
func NewSMTPSender(opts Options, logger *slog.Logger) *SMTPSender {
	s := &SMTPSender{opts: opts, logger: logger}
	s.send = s.deliver
	return s
}

// Send renders template name with vars and mails it to the recipient.
func (s *SMTPSender) Send(ctx context.Context, to, name string, vars map[string]string) error {
	tmpl, ok := templates[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}
	subject, body, err := tmpl.render(vars)
	if err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", s.opts.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	msg.WriteString(body)

	if err := s.send(ctx, to, msg.Bytes()); err != nil {
		return err
	}
	s.logger.Debug("email sent", slog.String("template", name))
	return nil
}

func (s *SMTPSender) deliver(ctx context.Context, to string, msg []byte) error {
	addr := net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(30 * time.Second))
	}

	c, err := smtp.NewClient(conn, s.opts.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.opts.Host}); err != nil {
			return err
		}
	}
	if s.opts.User != "" {
		if err := c.Auth(smtp.PlainAuth("", s.opts.User, s.opts.Password, s.opts.Host)); err != nil {
			return err
		}
	}
	if err := c.Mail(s.opts.From); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}
