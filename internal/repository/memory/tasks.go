// Package memory provides mutex-guarded in-process implementations of the
// repository interfaces. They back tests and DSN-less local runs and keep the
// same conditional-update semantics as the Postgres repositories.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/task-service/internal/domain"
	"github.com/spec-kit/task-service/internal/repository"
)

// TaskStore implements repository.TaskRepository.
type TaskStore struct {
	mutex sync.RWMutex
	order []string
	tasks map[string]*domain.Task
	now   func() time.Time
}

// NewTaskStore creates an empty store.
func NewTaskStore() *TaskStore {
	return &TaskStore{tasks: make(map[string]*domain.Task), now: time.Now}
}

var _ repository.TaskRepository = (*TaskStore)(nil)

func (s *TaskStore) CreateMany(_ context.Context, tasks []*domain.Task) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.now().UTC()
	for _, task := range tasks {
		task.ID = uuid.NewString()
		task.CreatedAt = now
		task.UpdatedAt = now
		if task.Attributes == nil {
			task.Attributes = map[string]any{}
		}
		s.tasks[task.ID] = task.Clone()
		s.order = append(s.order, task.ID)
	}
	return nil
}

func (s *TaskStore) GetByID(_ context.Context, id string) (*domain.Task, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return task.Clone(), nil
}

func (s *TaskStore) List(_ context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	result := []domain.Task{}
	for i := len(s.order) - 1; i >= 0; i-- {
		task, ok := s.tasks[s.order[i]]
		if !ok {
			continue
		}
		if filter.AssignedTo != nil && task.AssignedTo != *filter.AssignedTo {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, task.Status) {
			continue
		}
		result = append(result, *task.Clone())
	}

	if filter.Limit > 0 {
		start := min(max(filter.Offset, 0), len(result))
		end := min(start+filter.Limit, len(result))
		result = result[start:end]
	}
	return result, nil
}

func (s *TaskStore) SetStatus(_ context.Context, change repository.StatusChange) (domain.TaskStatus, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	task, ok := s.tasks[change.TaskID]
	if !ok {
		return "", pgx.ErrNoRows
	}
	if change.AssignedTo != nil && task.AssignedTo != *change.AssignedTo {
		return "", repository.ErrConditionNotMet
	}
	if slices.Contains(change.Exclude, task.Status) {
		return "", repository.ErrConditionNotMet
	}

	previous := task.Status
	task.Status = change.To
	task.UpdatedAt = s.now().UTC()
	return previous, nil
}

func (s *TaskStore) Patch(_ context.Context, id string, patch repository.TaskPatch) (*domain.Task, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if patch.Title != nil {
		task.Title = *patch.Title
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.AssignedTo != nil {
		task.AssignedTo = *patch.AssignedTo
	}
	if patch.Priority != nil {
		task.Priority = *patch.Priority
	}
	if patch.Status != nil {
		task.Status = *patch.Status
	}
	if patch.Deadline != nil {
		task.Deadline = *patch.Deadline
	}
	if task.Attributes == nil {
		task.Attributes = map[string]any{}
	}
	for k, v := range patch.SetAttributes {
		task.Attributes[k] = v
	}
	for _, k := range patch.RemoveAttributes {
		delete(task.Attributes, k)
	}
	task.UpdatedAt = s.now().UTC()
	return task.Clone(), nil
}

func (s *TaskStore) Delete(_ context.Context, id string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(s.tasks, id)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
	return nil
}

func (s *TaskStore) CountByStatus(_ context.Context, assignedTo *string) (domain.StatusSummary, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var summary domain.StatusSummary
	for _, task := range s.tasks {
		if assignedTo != nil && task.AssignedTo != *assignedTo {
			continue
		}
		summary.Add(task.Status, 1)
	}
	return summary, nil
}
