package models

import "time"

// Severity grades notifications, alerts and events.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notification is a short-lived user-facing message. A zero Duration keeps
// it until it is dismissed.
type Notification struct {
	ID        uint64        `json:"id" yaml:"id"`
	Message   string        `json:"message" yaml:"message"`
	Severity  Severity      `json:"severity" yaml:"severity"`
	CreatedAt time.Time     `json:"created_at" yaml:"created_at"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
}
