package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"github.com/spec-kit/task-service/internal/config"
)

// SMTPTransport submits mail to a relay, authenticating with PLAIN when a
// user is configured.
type SMTPTransport struct {
	cfg    config.SMTPConfig
	logger *zap.Logger
	now    func() time.Time
	// tlsConfig overrides the default verification settings.
	tlsConfig *tls.Config
}

// NewSMTPTransport builds a relay-backed transport.
func NewSMTPTransport(cfg config.SMTPConfig, logger *zap.Logger) *SMTPTransport {
	return &SMTPTransport{cfg: cfg, logger: logger, now: time.Now}
}

func (t *SMTPTransport) Send(ctx context.Context, from, to, subject, body string) error {
	msg, err := BuildMessage(from, to, subject, body, t.now())
	if err != nil {
		return err
	}

	timeout := t.cfg.Timeout()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	c, err := t.dial(ctx)
	if err != nil {
		return fmt.Errorf("smtp dial %s: %w", t.cfg.Addr(), err)
	}
	defer c.Close()

	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		c.CommandTimeout = remaining
		c.SubmissionTimeout = remaining
	}

	if t.cfg.User != "" {
		if err := c.Auth(sasl.NewPlainClient("", t.cfg.User, t.cfg.Password)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.SendMail(from, []string{to}, bytes.NewReader(msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	if err := c.Quit(); err != nil {
		t.logger.Debug("smtp quit failed", zap.Error(err))
	}
	return nil
}

func (t *SMTPTransport) dial(ctx context.Context) (*smtp.Client, error) {
	tlsConfig := t.tlsConfig
	if tlsConfig == nil {
		tlsConfig = &tls.Config{ServerName: t.cfg.Host}
	}

	if t.cfg.TLSMode == "tls" {
		dialer := &tls.Dialer{Config: tlsConfig}
		conn, err := dialer.DialContext(ctx, "tcp", t.cfg.Addr())
		if err != nil {
			return nil, err
		}
		return smtp.NewClient(conn), nil
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", t.cfg.Addr())
	if err != nil {
		return nil, err
	}
	if t.cfg.TLSMode == "none" {
		return smtp.NewClient(conn), nil
	}
	c, err := smtp.NewClientStartTLS(conn, tlsConfig)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("starttls: %w", err)
	}
	return c, nil
}
