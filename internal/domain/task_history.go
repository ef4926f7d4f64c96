package domain

import "time"

// TaskChangeType captures what changed in a history entry.
type TaskChangeType string

const (
	ChangeTypeCreated TaskChangeType = "CREATED"
	ChangeTypeStatus  TaskChangeType = "STATUS_CHANGE"
	ChangeTypeFields  TaskChangeType = "FIELDS_UPDATE"
	ChangeTypeDeleted TaskChangeType = "DELETED"
)

// TaskHistory is an immutable audit trail entry.
type TaskHistory struct {
	ID          string
	TaskID      string
	ChangedByID string
	ChangeType  TaskChangeType
	OldValue    map[string]any
	NewValue    map[string]any
	CreatedAt   time.Time
}
