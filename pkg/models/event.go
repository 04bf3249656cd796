package models

import "time"

// EventListResponse wraps GET /api/events
type EventListResponse struct {
	Data []Event `json:"data"`
}

// Event is an append-only camera event (motion, disconnect, ...).
type Event struct {
	ID        string    `json:"id" yaml:"id"`
	CameraID  string    `json:"camera_id" yaml:"camera_id"`
	Type      string    `json:"type" yaml:"type"` // e.g. "motion", "camera_offline"
	Message   string    `json:"message,omitempty" yaml:"message,omitempty"`
	Severity  Severity  `json:"severity,omitempty" yaml:"severity,omitempty"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}
