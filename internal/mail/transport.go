// Package mail delivers notification email.
package mail

import (
	"context"

	"go.uber.org/zap"
)

// Transport delivers one plain-text message to one recipient. Send blocks
// until the relay accepts or rejects the message.
type Transport interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

// LogTransport writes messages to the log instead of a relay. It is used when
// no SMTP host is configured.
type LogTransport struct {
	logger *zap.Logger
}

// NewLogTransport returns a transport that only logs.
func NewLogTransport(logger *zap.Logger) *LogTransport {
	return &LogTransport{logger: logger}
}

func (t *LogTransport) Send(_ context.Context, from, to, subject, body string) error {
	t.logger.Info("email dispatched",
		zap.String("from", from),
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(body)),
	)
	return nil
}
