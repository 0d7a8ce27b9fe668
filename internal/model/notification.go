package model

import "time"

// Severity classifies a notification.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Notification is a transient user-facing message.
type Notification struct {
	ID       int64         `json:"id"`
	Message  string        `json:"message"`
	Severity Severity      `json:"severity"`
	Duration time.Duration `json:"duration"`
}
