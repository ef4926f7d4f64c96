package domain

import "time"

// DeliveryStatus records the outcome of the mail transport attempt.
type DeliveryStatus string

const (
	DeliverySent   DeliveryStatus = "sent"
	DeliveryFailed DeliveryStatus = "failed"
)

// NotificationRecord is the in-app log entry for one outbound message.
type NotificationRecord struct {
	ID        string
	From      string
	Recipient string
	Subject   string
	Message   string
	Read      bool
	Timestamp time.Time

	// Flattened from Meta for querying and display.
	Status     string
	TaskID     string
	Title      string
	EmployeeID string
	Username   string

	Meta          map[string]any
	Delivery      DeliveryStatus
	DeliveryError string
}
