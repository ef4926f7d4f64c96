package events

import (
	"time"

	"github.com/spec-kit/task-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTaskCreated       EventType = "task_created"
	EventTaskStatusChanged EventType = "task_status_changed"
	EventTaskUpdated       EventType = "task_updated"
	EventTaskDeleted       EventType = "task_deleted"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TaskID    string    `json:"task_id"`
	ActorID   string    `json:"actor_id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TaskCreatedPayload payload.
type TaskCreatedPayload struct {
	Title      string              `json:"title"`
	AssignedTo string              `json:"assigned_to"`
	Priority   domain.TaskPriority `json:"priority"`
	Status     domain.TaskStatus   `json:"status"`
}

// TaskStatusChangedPayload payload. Trigger names the operation that moved
// the task, e.g. complete or mark_overdue.
type TaskStatusChangedPayload struct {
	OldStatus domain.TaskStatus `json:"old_status"`
	NewStatus domain.TaskStatus `json:"new_status"`
	Trigger   string            `json:"trigger"`
}

// TaskUpdatedPayload carries the touched fields before and after a merge
// patch.
type TaskUpdatedPayload struct {
	Before map[string]any `json:"before"`
	After  map[string]any `json:"after"`
}

// TaskDeletedPayload keeps a summary of the removed task.
type TaskDeletedPayload struct {
	Title      string            `json:"title"`
	AssignedTo string            `json:"assigned_to"`
	Status     domain.TaskStatus `json:"status"`
}
