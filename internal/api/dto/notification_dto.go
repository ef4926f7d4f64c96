package dto

import (
	"time"

	"github.com/spec-kit/task-service/internal/domain"
)

// MarkReadRequest payload.
type MarkReadRequest struct {
	IDs []string `json:"ids" validate:"required,min=1"`
}

// RemoveNotificationRequest payload.
type RemoveNotificationRequest struct {
	ID string `json:"id" validate:"required"`
}

// NotificationResponse is one inbox entry.
type NotificationResponse struct {
	ID         string                `json:"id"`
	From       string                `json:"from"`
	Recipient  string                `json:"recipient"`
	Subject    string                `json:"subject"`
	Message    string                `json:"message"`
	Read       bool                  `json:"read"`
	Timestamp  time.Time             `json:"timestamp"`
	Status     string                `json:"status,omitempty"`
	TaskID     string                `json:"task_id,omitempty"`
	Title      string                `json:"title,omitempty"`
	EmployeeID string                `json:"employee_id,omitempty"`
	Username   string                `json:"username,omitempty"`
	Delivery   domain.DeliveryStatus `json:"delivery"`
}

// NewNotificationResponses maps inbox records.
func NewNotificationResponses(records []domain.NotificationRecord) []NotificationResponse {
	resp := make([]NotificationResponse, 0, len(records))
	for _, r := range records {
		resp = append(resp, NotificationResponse{
			ID:         r.ID,
			From:       r.From,
			Recipient:  r.Recipient,
			Subject:    r.Subject,
			Message:    r.Message,
			Read:       r.Read,
			Timestamp:  r.Timestamp,
			Status:     r.Status,
			TaskID:     r.TaskID,
			Title:      r.Title,
			EmployeeID: r.EmployeeID,
			Username:   r.Username,
			Delivery:   r.Delivery,
		})
	}
	return resp
}
