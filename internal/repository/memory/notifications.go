package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/task-service/internal/domain"
	"github.com/spec-kit/task-service/internal/repository"
)

// NotificationStore implements repository.NotificationRepository.
type NotificationStore struct {
	mutex   sync.RWMutex
	records []domain.NotificationRecord
	// CreateFn overrides Create when set.
	CreateFn func(ctx context.Context, record *domain.NotificationRecord) error
}

// NewNotificationStore creates an empty store.
func NewNotificationStore() *NotificationStore {
	return &NotificationStore{}
}

var _ repository.NotificationRepository = (*NotificationStore)(nil)

func (s *NotificationStore) Create(ctx context.Context, record *domain.NotificationRecord) error {
	if s.CreateFn != nil {
		return s.CreateFn(ctx, record)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	record.ID = uuid.NewString()
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}
	s.records = append(s.records, *record)
	return nil
}

// All returns every record in insertion order.
func (s *NotificationStore) All() []domain.NotificationRecord {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return slices.Clone(s.records)
}

func (s *NotificationStore) ListByRecipient(_ context.Context, recipient string, limit int) ([]domain.NotificationRecord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	result := []domain.NotificationRecord{}
	for i := len(s.records) - 1; i >= 0 && (limit <= 0 || len(result) < limit); i-- {
		if s.records[i].Recipient == recipient {
			result = append(result, s.records[i])
		}
	}
	return result, nil
}

func (s *NotificationStore) MarkRead(_ context.Context, recipient string, ids []string) (int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var updated int64
	for i := range s.records {
		if s.records[i].Recipient == recipient && slices.Contains(ids, s.records[i].ID) {
			s.records[i].Read = true
			updated++
		}
	}
	return updated, nil
}

func (s *NotificationStore) Delete(_ context.Context, recipient, id string) (int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	before := len(s.records)
	s.records = slices.DeleteFunc(s.records, func(r domain.NotificationRecord) bool {
		return r.Recipient == recipient && r.ID == id
	})
	return int64(before - len(s.records)), nil
}

func (s *NotificationStore) CountUnread(_ context.Context, recipient string) (int64, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var count int64
	for _, r := range s.records {
		if r.Recipient == recipient && !r.Read {
			count++
		}
	}
	return count, nil
}
