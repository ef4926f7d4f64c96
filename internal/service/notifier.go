package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/task-service/internal/cache"
	"github.com/spec-kit/task-service/internal/domain"
	"github.com/spec-kit/task-service/internal/mail"
	"github.com/spec-kit/task-service/internal/repository"
	apperrors "github.com/spec-kit/task-service/pkg/util/errorutil"
)

// Message is a single notification request.
type Message struct {
	Subject   string
	Recipient string
	Body      string
	Meta      map[string]any
}

// Notifier delivers a message by email and records it in the recipient's
// in-app log. The record is written whether or not delivery succeeded.
type Notifier struct {
	transport mail.Transport
	records   repository.NotificationRepository
	unread    cache.UnreadCounter
	from      string
	logger    *zap.Logger
}

// NewNotifier constructs the notifier.
func NewNotifier(transport mail.Transport, records repository.NotificationRepository, unread cache.UnreadCounter, from string, logger *zap.Logger) *Notifier {
	if unread == nil {
		unread = cache.NopUnreadCounter{}
	}
	return &Notifier{
		transport: transport,
		records:   records,
		unread:    unread,
		from:      from,
		logger:    logger,
	}
}

// Send delivers msg and persists its record. A delivery failure is returned
// as a NOTIFICATION_DELIVERY_FAILED error after the record is stored with
// delivery=failed.
func (n *Notifier) Send(ctx context.Context, msg Message) (*domain.NotificationRecord, error) {
	sendErr := n.transport.Send(ctx, n.from, msg.Recipient, msg.Subject, msg.Body)

	record := newRecord(n.from, msg)
	record.Delivery = domain.DeliverySent
	if sendErr != nil {
		record.Delivery = domain.DeliveryFailed
		record.DeliveryError = sendErr.Error()
	}

	// The record must survive a cancelled request once the send happened.
	persistCtx := context.WithoutCancel(ctx)
	if err := n.records.Create(persistCtx, record); err != nil {
		err = fmt.Errorf("persist notification for %s: %w", msg.Recipient, err)
		if sendErr != nil {
			return nil, errors.Join(apperrors.NewTransportError(sendErr, nil), err)
		}
		return nil, err
	}
	n.logger.Debug("notification recorded",
		zap.String("id", record.ID),
		zap.String("recipient", record.Recipient),
		zap.String("delivery", string(record.Delivery)),
	)

	if err := n.unread.Invalidate(persistCtx, msg.Recipient); err != nil {
		n.logger.Warn("unread counter invalidation failed", zap.String("recipient", msg.Recipient), zap.Error(err))
	}

	if sendErr != nil {
		return record, apperrors.NewTransportError(sendErr, map[string]any{"recipient": msg.Recipient})
	}
	return record, nil
}

func newRecord(from string, msg Message) *domain.NotificationRecord {
	record := &domain.NotificationRecord{
		From:      from,
		Recipient: msg.Recipient,
		Subject:   msg.Subject,
		Message:   msg.Body,
		Read:      false,
	}
	if msg.Meta != nil {
		record.Meta = msg.Meta
		record.Status = metaString(msg.Meta, "status")
		record.TaskID = metaString(msg.Meta, "task_id")
		record.Title = metaString(msg.Meta, "title")
		record.EmployeeID = metaString(msg.Meta, "employee_id")
		record.Username = metaString(msg.Meta, "username")
	}
	return record
}

func metaString(meta map[string]any, key string) string {
	switch v := meta[key].(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
