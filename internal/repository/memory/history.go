package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/task-service/internal/domain"
	"github.com/spec-kit/task-service/internal/repository"
)

// HistoryStore implements repository.TaskHistoryRepository.
type HistoryStore struct {
	mutex   sync.RWMutex
	entries []domain.TaskHistory
}

// NewHistoryStore creates an empty store.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{}
}

var _ repository.TaskHistoryRepository = (*HistoryStore)(nil)

func (s *HistoryStore) Create(_ context.Context, history *domain.TaskHistory) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	history.ID = uuid.NewString()
	history.CreatedAt = time.Now().UTC()
	s.entries = append(s.entries, *history)
	return nil
}

func (s *HistoryStore) ListByTask(_ context.Context, taskID string) ([]domain.TaskHistory, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	result := []domain.TaskHistory{}
	for _, h := range s.entries {
		if h.TaskID == taskID {
			result = append(result, h)
		}
	}
	return result, nil
}
