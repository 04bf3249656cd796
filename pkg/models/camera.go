package models

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// CameraStatus is the connection state the server reports for a camera.
type CameraStatus string

const (
	CameraOnline     CameraStatus = "online"
	CameraOffline    CameraStatus = "offline"
	CameraError      CameraStatus = "error"
	CameraConnecting CameraStatus = "connecting"
)

// Valid reports whether s is one of the known statuses.
func (s CameraStatus) Valid() bool {
	switch s {
	case CameraOnline, CameraOffline, CameraError, CameraConnecting:
		return true
	}
	return false
}

// CameraListResponse wraps GET /api/cameras
type CameraListResponse struct {
	Data []Camera `json:"data"`
}

// Camera is a single monitored camera as returned by the dashboard API.
type Camera struct {
	ID        string       `json:"id" yaml:"id"`
	Name      string       `json:"name" yaml:"name"`
	URL       string       `json:"url" yaml:"url"`
	Status    CameraStatus `json:"status" yaml:"status"`
	Location  string       `json:"location,omitempty" yaml:"location,omitempty"`
	FPS       int          `json:"fps,omitempty" yaml:"fps,omitempty"`
	LastSeen  *time.Time   `json:"last_seen,omitempty" yaml:"last_seen,omitempty"`
	CreatedAt time.Time    `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" yaml:"updated_at"`
}

// Schemes accepted in a camera URL by the server schema.
var cameraSchemes = map[string]bool{
	"rtsp":   true,
	"rtmp":   true,
	"http":   true,
	"https":  true,
	"onvif":  true,
	"ffmpeg": true,
}

// Validate checks the record against the persisted camera shape.
func (c Camera) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("camera id is required")
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("camera %s: name is required", c.ID)
	}
	if strings.TrimSpace(c.URL) == "" {
		return fmt.Errorf("camera %s: url is required", c.ID)
	}
	u, err := url.Parse(c.URL)
	if err != nil || !cameraSchemes[strings.ToLower(u.Scheme)] {
		return fmt.Errorf("camera %s: unsupported url scheme in %q", c.ID, c.URL)
	}
	if c.Status != "" && !c.Status.Valid() {
		return fmt.Errorf("camera %s: unknown status %q", c.ID, c.Status)
	}
	// 0 means the server left it unset.
	if c.FPS != 0 && (c.FPS < 1 || c.FPS > 120) {
		return fmt.Errorf("camera %s: fps %d out of range 1-120", c.ID, c.FPS)
	}
	return nil
}

// CameraPatch is a partial camera update. Nil fields are left untouched.
type CameraPatch struct {
	Name     *string       `json:"name,omitempty"`
	URL      *string       `json:"url,omitempty"`
	Status   *CameraStatus `json:"status,omitempty"`
	Location *string       `json:"location,omitempty"`
	FPS      *int          `json:"fps,omitempty"`
	LastSeen *time.Time    `json:"last_seen,omitempty"`
}

// Empty reports whether the patch carries no fields.
func (p CameraPatch) Empty() bool {
	return p.Name == nil && p.URL == nil && p.Status == nil &&
		p.Location == nil && p.FPS == nil && p.LastSeen == nil
}

// Apply merges the patch into c.
func (p CameraPatch) Apply(c *Camera) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.URL != nil {
		c.URL = *p.URL
	}
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.Location != nil {
		c.Location = *p.Location
	}
	if p.FPS != nil {
		c.FPS = *p.FPS
	}
	if p.LastSeen != nil {
		ts := *p.LastSeen
		c.LastSeen = &ts
	}
}
