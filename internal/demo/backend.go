// Package demo is an in-process dashboard server: users, cameras, events and
// stats held in memory, a websocket hub for live updates, and a simulator
// that keeps things moving.
package demo

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"camdash/internal/auth"
	"camdash/pkg/models"
)

const maxEvents = 500

var (
	ErrUserExists         = errors.New("username already taken")
	ErrUnknownCamera      = errors.New("unknown camera")
	ErrMissingCredentials = errors.New("username and password are required")
)

type account struct {
	user models.User
	hash string
}

// Backend is the server state. Every mutation that clients can observe is
// broadcast on the hub.
type Backend struct {
	hub     *Hub
	now     func() time.Time
	startAt time.Time

	mu      sync.RWMutex
	users   map[string]*account
	nextUID int64
	cameras []models.Camera
	events  []models.Event // newest first
	alerts  map[string]models.Alert
}

// NewBackend returns a backend with the seeded cameras and events and no
// users, so setup is required.
func NewBackend(hub *Hub) *Backend {
	now := time.Now().UTC()
	b := &Backend{
		hub:     hub,
		now:     func() time.Time { return time.Now().UTC() },
		startAt: now.Add(-73 * time.Hour),
		users:   make(map[string]*account),
		alerts:  make(map[string]models.Alert),
	}
	b.cameras = seedCameras(now)
	b.events = seedEvents(now, b.cameras)
	return b
}

func (b *Backend) SetupRequired() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.users) == 0
}

// Register creates a user. The first user becomes admin; the caller should
// log them in straight away.
func (b *Backend) Register(username, password string) (models.User, bool, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return models.User{}, false, ErrMissingCredentials
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return models.User{}, false, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.users[strings.ToLower(username)]; ok {
		return models.User{}, false, ErrUserExists
	}
	first := len(b.users) == 0
	role := models.RoleUser
	if first {
		role = models.RoleAdmin
	}
	b.nextUID++
	u := models.User{ID: b.nextUID, Username: username, Role: role}
	b.users[strings.ToLower(username)] = &account{user: u, hash: hash}
	return u, first, nil
}

// Authenticate checks a username/password pair.
func (b *Backend) Authenticate(username, password string) (models.User, error) {
	b.mu.RLock()
	acct, ok := b.users[strings.ToLower(strings.TrimSpace(username))]
	b.mu.RUnlock()
	if !ok {
		return models.User{}, auth.ErrInvalidCredentials
	}
	if err := auth.CheckPassword(acct.hash, password); err != nil {
		return models.User{}, err
	}
	return acct.user, nil
}

// LookupUser returns the current record for id, if the user still exists.
func (b *Backend) LookupUser(id int64) (models.User, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, a := range b.users {
		if a.user.ID == id {
			return a.user, true
		}
	}
	return models.User{}, false
}

func (b *Backend) Cameras() []models.Camera {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]models.Camera, len(b.cameras))
	copy(out, b.cameras)
	return out
}

// Events returns up to limit events, newest first.
func (b *Backend) Events(limit int) []models.Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if limit <= 0 || limit > len(b.events) {
		limit = len(b.events)
	}
	out := make([]models.Event, limit)
	copy(out, b.events[:limit])
	return out
}

func (b *Backend) Stats() models.Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.statsLocked()
}

func (b *Backend) statsLocked() models.Stats {
	now := b.now()
	st := models.Stats{
		TotalCameras:  len(b.cameras),
		ActiveAlerts:  len(b.alerts),
		UptimeSeconds: int64(now.Sub(b.startAt).Seconds()),
		GeneratedAt:   now,
	}
	for _, c := range b.cameras {
		switch c.Status {
		case models.CameraOnline:
			st.OnlineCameras++
		case models.CameraOffline:
			st.OfflineCameras++
		case models.CameraError:
			st.ErrorCameras++
		}
	}
	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	for _, e := range b.events {
		if e.Timestamp.Before(midnight) {
			break
		}
		st.EventsToday++
	}
	return st
}

// SetCameraStatus changes one camera's status and publishes the change
// together with fresh stats.
func (b *Backend) SetCameraStatus(id string, status models.CameraStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid camera status %q", status)
	}

	b.mu.Lock()
	idx := b.indexLocked(id)
	if idx < 0 {
		b.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownCamera, id)
	}
	now := b.now()
	cam := &b.cameras[idx]
	cam.Status = status
	cam.UpdatedAt = now
	if status == models.CameraOnline {
		cam.LastSeen = &now
	}
	payload := models.CameraStatusPayload{ID: id, Status: status, LastSeen: cam.LastSeen}
	stats := b.statsLocked()
	b.mu.Unlock()

	b.publish(models.MsgCameraStatusChanged, payload)
	b.publish(models.MsgStatsUpdated, stats)
	return nil
}

// UpdateCamera applies p to one camera and publishes it as camera-updated.
func (b *Backend) UpdateCamera(id string, p models.CameraPatch) error {
	b.mu.Lock()
	idx := b.indexLocked(id)
	if idx < 0 {
		b.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownCamera, id)
	}
	next := b.cameras[idx]
	p.Apply(&next)
	next.UpdatedAt = b.now()
	if err := next.Validate(); err != nil {
		b.mu.Unlock()
		return err
	}
	b.cameras[idx] = next
	b.mu.Unlock()

	b.publish(models.MsgCameraUpdated, models.CameraUpdatePayload{ID: id, CameraPatch: p})
	return nil
}

// AddEvent records e (filling ID and timestamp when empty) and publishes it.
func (b *Backend) AddEvent(e models.Event) models.Event {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = b.now()
	}

	b.mu.Lock()
	b.events = append([]models.Event{e}, b.events...)
	if len(b.events) > maxEvents {
		b.events = b.events[:maxEvents]
	}
	b.mu.Unlock()

	b.publish(models.MsgNewEvent, e)
	return e
}

// RaiseAlert replaces the active alert of a camera.
func (b *Backend) RaiseAlert(cameraID, alertType, message string, sev models.Severity) error {
	b.mu.Lock()
	idx := b.indexLocked(cameraID)
	if idx < 0 {
		b.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownCamera, cameraID)
	}
	a := models.Alert{
		ID:         uuid.NewString(),
		CameraID:   cameraID,
		CameraName: b.cameras[idx].Name,
		Type:       alertType,
		Message:    message,
		Severity:   sev,
		RaisedAt:   b.now(),
	}
	b.alerts[cameraID] = a
	b.mu.Unlock()

	b.publish(models.MsgAlertRaised, a)
	return nil
}

// ClearAlert drops the active alert of a camera, if any.
func (b *Backend) ClearAlert(cameraID string) bool {
	b.mu.Lock()
	_, ok := b.alerts[cameraID]
	delete(b.alerts, cameraID)
	b.mu.Unlock()

	if ok {
		b.publish(models.MsgAlertCleared, models.AlertClearedPayload{CameraID: cameraID})
	}
	return ok
}

// Alerts returns the active alerts ordered by camera.
func (b *Backend) Alerts() []models.Alert {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]models.Alert, 0, len(b.alerts))
	for _, a := range b.alerts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CameraID < out[j].CameraID })
	return out
}

func (b *Backend) indexLocked(id string) int {
	for i := range b.cameras {
		if b.cameras[i].ID == id {
			return i
		}
	}
	return -1
}

func (b *Backend) publish(msgType string, payload any) {
	if b.hub == nil {
		return
	}
	if err := b.hub.Broadcast(msgType, payload); err != nil {
		slog.Error("demo: broadcast failed", "type", msgType, "error", err)
	}
}
