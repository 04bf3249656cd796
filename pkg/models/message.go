package models

import (
	"encoding/json"
	"time"
)

// Push message types understood by the client. Anything else is ignored.
const (
	MsgCameraStatusChanged = "camera-status-changed"
	MsgCameraUpdated       = "camera-updated"
	MsgNewEvent            = "new-event"
	MsgAlertRaised         = "alert-raised"
	MsgAlertCleared        = "alert-cleared"
	MsgStatsUpdated        = "stats-updated"
	MsgPing                = "ping"
)

// PushMessage is the envelope of every message on the live channel.
type PushMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// CameraStatusPayload is the body of camera-status-changed.
type CameraStatusPayload struct {
	ID       string       `json:"id"`
	Status   CameraStatus `json:"status"`
	LastSeen *time.Time   `json:"last_seen,omitempty"`
}

// CameraUpdatePayload is the body of camera-updated.
type CameraUpdatePayload struct {
	ID string `json:"id"`
	CameraPatch
}
