package models

import "time"

// Alert is an active per-camera alert raised over the push channel.
// The client keeps at most one alert per CameraID.
type Alert struct {
	ID         string    `json:"id" yaml:"id"`
	CameraID   string    `json:"camera_id" yaml:"camera_id"`
	CameraName string    `json:"camera_name,omitempty" yaml:"camera_name,omitempty"`
	Type       string    `json:"type,omitempty" yaml:"type,omitempty"`
	Message    string    `json:"message" yaml:"message"`
	Severity   Severity  `json:"severity,omitempty" yaml:"severity,omitempty"`
	RaisedAt   time.Time `json:"raised_at" yaml:"raised_at"`
}

// AlertClearedPayload is the body of an alert-cleared push message.
type AlertClearedPayload struct {
	CameraID string `json:"camera_id"`
}
