package dto

import (
	"time"

	"github.com/spec-kit/task-service/internal/domain"
	"github.com/spec-kit/task-service/internal/service"
)

// CreateTaskRequest payload. Either AssignedTo or AssignToAll selects the
// employees; one task is created per employee.
type CreateTaskRequest struct {
	Title       string              `json:"title" validate:"required"`
	Description string              `json:"description"`
	AssignedTo  []string            `json:"assigned_to" validate:"required_without=AssignToAll,dive,required"`
	AssignToAll bool                `json:"assign_to_all"`
	Priority    domain.TaskPriority `json:"priority" validate:"omitempty,oneof=Low Medium High"`
	Status      domain.TaskStatus   `json:"status" validate:"omitempty,oneof=Assigned 'In Progress' Done Overdue"`
	Deadline    time.Time           `json:"deadline" validate:"required"`
}

// CreateTaskResponse lists the new task ids.
type CreateTaskResponse struct {
	TaskIDs       []string               `json:"task_ids"`
	Notifications service.DispatchReport `json:"notifications"`
}

// TaskResponse is the wire form of a task.
type TaskResponse struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	AssignedTo  string              `json:"assigned_to"`
	Priority    domain.TaskPriority `json:"priority"`
	Status      domain.TaskStatus   `json:"status"`
	Deadline    time.Time           `json:"deadline"`
	CreatedBy   string              `json:"created_by"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	Attributes  map[string]any      `json:"attributes"`
}

// TransitionResponse wraps a task mutated by PUT or complete.
type TransitionResponse struct {
	Task          TaskResponse           `json:"task"`
	Notifications service.DispatchReport `json:"notifications"`
}

// OverdueResponse reports a mark-overdue outcome.
type OverdueResponse struct {
	Processed     bool                   `json:"processed"`
	Message       string                 `json:"message"`
	Task          TaskResponse           `json:"task"`
	Notifications service.DispatchReport `json:"notifications"`
}

// TaskHistoryResponse is one audit entry.
type TaskHistoryResponse struct {
	ID          string                `json:"id"`
	TaskID      string                `json:"task_id"`
	ChangeType  domain.TaskChangeType `json:"change_type"`
	ChangedByID string                `json:"changed_by"`
	OldValue    map[string]any        `json:"old_value"`
	NewValue    map[string]any        `json:"new_value"`
	CreatedAt   time.Time             `json:"created_at"`
}

// StatusUpdateRequest payload for POST /status/update.
type StatusUpdateRequest struct {
	TaskID string `json:"task_id" validate:"required"`
	Status string `json:"status"`
}

// StatusSummaryResponse counts visible tasks by status.
type StatusSummaryResponse struct {
	Assigned   int `json:"assigned"`
	Completed  int `json:"completed"`
	InProgress int `json:"in_progress"`
	Overdue    int `json:"overdue"`
}

// NewTaskResponse maps a domain task.
func NewTaskResponse(task *domain.Task) TaskResponse {
	attrs := task.Attributes
	if attrs == nil {
		attrs = map[string]any{}
	}
	return TaskResponse{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		AssignedTo:  task.AssignedTo,
		Priority:    task.Priority,
		Status:      task.Status,
		Deadline:    task.Deadline,
		CreatedBy:   task.CreatedBy,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
		Attributes:  attrs,
	}
}

// NewTaskResponses maps a list of tasks.
func NewTaskResponses(tasks []domain.Task) []TaskResponse {
	resp := make([]TaskResponse, 0, len(tasks))
	for i := range tasks {
		resp = append(resp, NewTaskResponse(&tasks[i]))
	}
	return resp
}

// NewTaskHistoryResponses maps audit entries.
func NewTaskHistoryResponses(entries []domain.TaskHistory) []TaskHistoryResponse {
	resp := make([]TaskHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, TaskHistoryResponse{
			ID:          entry.ID,
			TaskID:      entry.TaskID,
			ChangeType:  entry.ChangeType,
			ChangedByID: entry.ChangedByID,
			OldValue:    entry.OldValue,
			NewValue:    entry.NewValue,
			CreatedAt:   entry.CreatedAt,
		})
	}
	return resp
}

// NewStatusSummaryResponse maps a summary.
func NewStatusSummaryResponse(s domain.StatusSummary) StatusSummaryResponse {
	return StatusSummaryResponse{
		Assigned:   s.Assigned,
		Completed:  s.Completed,
		InProgress: s.InProgress,
		Overdue:    s.Overdue,
	}
}
