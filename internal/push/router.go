package push

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"camdash/internal/ledger"
	"camdash/internal/store"
	"camdash/pkg/models"
)

// ProtocolError is a message that could not be understood. It is dropped.
type ProtocolError struct {
	Type   string
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	msg := "push: malformed message"
	if e.Type != "" {
		msg += " " + e.Type
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// Router turns push messages into store mutations.
type Router struct {
	Cameras  *store.CameraStore
	Events   *store.EventStore
	Stats    *store.StatsStore
	Alerts   *ledger.Alerts
	Recorder Recorder
}

func (r *Router) recorder() Recorder {
	if r.Recorder == nil {
		return nopRecorder{}
	}
	return r.Recorder
}

// Handle decodes one envelope and applies it. Unknown types are ignored so
// newer servers can add message kinds.
func (r *Router) Handle(data []byte) error {
	var msg models.PushMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		r.recorder().Dropped("malformed")
		return &ProtocolError{Reason: "invalid envelope", Err: err}
	}
	msg.Type = strings.TrimSpace(msg.Type)
	if msg.Type == "" {
		r.recorder().Dropped("malformed")
		return &ProtocolError{Reason: "missing type"}
	}

	if err := r.route(msg); err != nil {
		r.recorder().Dropped("malformed")
		return err
	}
	r.recorder().Received(msg.Type)
	return nil
}

func (r *Router) route(msg models.PushMessage) error {
	switch msg.Type {
	case models.MsgCameraStatusChanged:
		var p models.CameraStatusPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		if p.ID == "" {
			return &ProtocolError{Type: msg.Type, Reason: "missing camera id"}
		}
		if !p.Status.Valid() {
			return &ProtocolError{Type: msg.Type, Reason: fmt.Sprintf("unknown status %q", p.Status)}
		}
		patch := models.CameraPatch{Status: &p.Status, LastSeen: p.LastSeen}
		if !r.Cameras.ApplyPatch(p.ID, patch) {
			slog.Debug("push: status change for unknown camera", "camera", p.ID)
		}

	case models.MsgCameraUpdated:
		var p models.CameraUpdatePayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		if p.ID == "" {
			return &ProtocolError{Type: msg.Type, Reason: "missing camera id"}
		}
		if p.Status != nil && !p.Status.Valid() {
			return &ProtocolError{Type: msg.Type, Reason: fmt.Sprintf("unknown status %q", *p.Status)}
		}
		if p.CameraPatch.Empty() {
			return nil
		}
		if !r.Cameras.ApplyPatch(p.ID, p.CameraPatch) {
			slog.Debug("push: update for unknown camera", "camera", p.ID)
		}

	case models.MsgNewEvent:
		var e models.Event
		if err := decode(msg, &e); err != nil {
			return err
		}
		if e.ID == "" {
			return &ProtocolError{Type: msg.Type, Reason: "missing event id"}
		}
		r.Events.Prepend(e)

	case models.MsgAlertRaised:
		var a models.Alert
		if err := decode(msg, &a); err != nil {
			return err
		}
		if a.CameraID == "" {
			return &ProtocolError{Type: msg.Type, Reason: "missing camera id"}
		}
		r.Alerts.Upsert(a)

	case models.MsgAlertCleared:
		var p models.AlertClearedPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		if p.CameraID == "" {
			return &ProtocolError{Type: msg.Type, Reason: "missing camera id"}
		}
		r.Alerts.ClearCamera(p.CameraID)

	case models.MsgStatsUpdated:
		var s models.Stats
		if err := decode(msg, &s); err != nil {
			return err
		}
		r.Stats.Replace(s)

	case models.MsgPing:

	default:
		slog.Debug("push: ignoring unknown message type", "type", msg.Type)
	}
	return nil
}

func decode(msg models.PushMessage, v any) error {
	if len(msg.Payload) == 0 || string(msg.Payload) == "null" {
		return &ProtocolError{Type: msg.Type, Reason: "missing payload"}
	}
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		return &ProtocolError{Type: msg.Type, Reason: "invalid payload", Err: err}
	}
	return nil
}
