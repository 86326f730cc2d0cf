package domain

import "time"

// FailedNotificationStatus values.
const (
	FailedNotificationPending = "pending"
)

// FailedNotification is a notification that could not be delivered.
type FailedNotification struct {
	ID           string
	SubmissionID string
	Recipient    string
	Kind         string
	Error        string
	Attempts     int
	Status       string
	CreatedAt    time.Time
}
