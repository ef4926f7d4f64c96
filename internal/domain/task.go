package domain

import "time"

// TaskStatus enumerates lifecycle states for tasks.
type TaskStatus string

const (
	TaskStatusAssigned   TaskStatus = "Assigned"
	TaskStatusInProgress TaskStatus = "In Progress"
	TaskStatusDone       TaskStatus = "Done"
	TaskStatusOverdue    TaskStatus = "Overdue"
)

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusAssigned, TaskStatusInProgress, TaskStatusDone, TaskStatusOverdue:
		return true
	}
	return false
}

// TaskPriority enumerates task urgency.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "Low"
	TaskPriorityMedium TaskPriority = "Medium"
	TaskPriorityHigh   TaskPriority = "High"
)

// Valid reports whether p is a known priority.
func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

// Task is a unit of work assigned to exactly one employee.
type Task struct {
	ID          string
	Title       string
	Description string
	AssignedTo  string
	Priority    TaskPriority
	Status      TaskStatus
	Deadline    time.Time
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	// Attributes holds merge-patched fields without a dedicated column.
	Attributes map[string]any
}

// Clone returns a deep enough copy for callers that keep snapshots.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	cp := *t
	if t.Attributes != nil {
		cp.Attributes = make(map[string]any, len(t.Attributes))
		for k, v := range t.Attributes {
			cp.Attributes[k] = v
		}
	}
	return &cp
}

// StatusSummary counts tasks per status for a caller's visible set.
type StatusSummary struct {
	Assigned   int
	Completed  int
	InProgress int
	Overdue    int
}

// Add folds count tasks in status into the summary. Assigned is the total.
func (s *StatusSummary) Add(status TaskStatus, count int) {
	s.Assigned += count
	switch status {
	case TaskStatusDone:
		s.Completed += count
	case TaskStatusInProgress:
		s.InProgress += count
	case TaskStatusOverdue:
		s.Overdue += count
	}
}
