package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/task-service/internal/cache"
	"github.com/spec-kit/task-service/internal/domain"
	"github.com/spec-kit/task-service/internal/repository"
	apperrors "github.com/spec-kit/task-service/pkg/util/errorutil"
)

const (
	DefaultInboxLimit = 20
	MaxInboxLimit     = 100
)

// InboxService exposes a user's own notification log.
type InboxService struct {
	records repository.NotificationRepository
	unread  cache.UnreadCounter
	logger  *zap.Logger
}

// NewInboxService builds the service.
func NewInboxService(records repository.NotificationRepository, unread cache.UnreadCounter, logger *zap.Logger) *InboxService {
	if unread == nil {
		unread = cache.NopUnreadCounter{}
	}
	return &InboxService{records: records, unread: unread, logger: logger}
}

// List returns the newest notifications addressed to actor.
func (s *InboxService) List(ctx context.Context, actor *domain.User, limit int) ([]domain.NotificationRecord, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if actor.Email == "" {
		return []domain.NotificationRecord{}, nil
	}
	switch {
	case limit <= 0:
		limit = DefaultInboxLimit
	case limit > MaxInboxLimit:
		limit = MaxInboxLimit
	}
	return s.records.ListByRecipient(ctx, actor.Email, limit)
}

// MarkRead flags the given notifications as read. Malformed ids are skipped;
// ids belonging to someone else are ignored.
func (s *InboxService) MarkRead(ctx context.Context, actor *domain.User, ids []string) (int64, error) {
	if actor == nil {
		return 0, apperrors.NewUnauthorized("authentication required")
	}
	if len(ids) == 0 {
		return 0, apperrors.NewValidationError("no ids provided", map[string]any{"field": "ids"})
	}
	if actor.Email == "" {
		return 0, apperrors.NewValidationError("account has no email", nil)
	}

	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return 0, apperrors.NewValidationError("invalid ids", map[string]any{"ids": ids})
	}

	updated, err := s.records.MarkRead(ctx, actor.Email, valid)
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx, actor.Email)
	return updated, nil
}

// Remove deletes one of actor's notifications.
func (s *InboxService) Remove(ctx context.Context, actor *domain.User, id string) error {
	if actor == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if id == "" {
		return apperrors.NewValidationError("no id provided", map[string]any{"field": "id"})
	}
	if actor.Email == "" {
		return apperrors.NewValidationError("account has no email", nil)
	}
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.NewValidationError("invalid id", map[string]any{"id": id})
	}

	deleted, err := s.records.Delete(ctx, actor.Email, id)
	if err != nil {
		return err
	}
	if deleted == 0 {
		return apperrors.NewNotFound("notification", map[string]any{"id": id})
	}
	s.invalidate(ctx, actor.Email)
	return nil
}

// UnreadCount returns actor's unread total, served from cache when possible.
func (s *InboxService) UnreadCount(ctx context.Context, actor *domain.User) (int64, error) {
	if actor == nil {
		return 0, apperrors.NewUnauthorized("authentication required")
	}
	if actor.Email == "" {
		return 0, nil
	}

	count, ok, err := s.unread.Get(ctx, actor.Email)
	if err != nil {
		s.logger.Warn("unread counter read failed", zap.String("recipient", actor.Email), zap.Error(err))
	} else if ok {
		return count, nil
	}

	count, err = s.records.CountUnread(ctx, actor.Email)
	if err != nil {
		return 0, err
	}
	if err := s.unread.Set(ctx, actor.Email, count); err != nil {
		s.logger.Warn("unread counter write failed", zap.String("recipient", actor.Email), zap.Error(err))
	}
	return count, nil
}

func (s *InboxService) invalidate(ctx context.Context, recipient string) {
	if err := s.unread.Invalidate(ctx, recipient); err != nil {
		s.logger.Warn("unread counter invalidation failed", zap.String("recipient", recipient), zap.Error(err))
	}
}
