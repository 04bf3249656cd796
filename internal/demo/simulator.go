package demo

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"camdash/pkg/models"
)

// Simulator drives the backend with synthetic activity: status flaps,
// motion events, alerts and periodic stats.
type Simulator struct {
	backend  *Backend
	interval time.Duration
	rng      *rand.Rand
	tick     int
}

func NewSimulator(b *Backend, interval time.Duration, seed int64) *Simulator {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &Simulator{backend: b, interval: interval, rng: rand.New(rand.NewSource(seed))}
}

// Start runs the simulation until ctx is done.
func (s *Simulator) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Step()
			}
		}
	}()
}

// Step performs one round of activity. It is not safe for concurrent use.
func (s *Simulator) Step() {
	s.tick++
	cams := s.backend.Cameras()
	if len(cams) == 0 {
		return
	}
	cam := cams[s.rng.Intn(len(cams))]

	switch {
	case s.tick%7 == 0:
		s.flap(cam)
	case s.tick%5 == 0:
		_ = s.backend.RaiseAlert(cam.ID, "tamper", fmt.Sprintf("Possible tampering on %s", cam.Name), models.SeverityWarning)
	case s.tick%5 == 2:
		if alerts := s.backend.Alerts(); len(alerts) > 0 {
			s.backend.ClearAlert(alerts[0].CameraID)
		}
	default:
		s.backend.AddEvent(models.Event{
			CameraID: cam.ID,
			Type:     "motion",
			Message:  fmt.Sprintf("Motion detected on %s", cam.Name),
			Severity: models.SeverityInfo,
		})
	}

	if s.tick%3 == 0 {
		s.backend.publish(models.MsgStatsUpdated, s.backend.Stats())
	}
}

func (s *Simulator) flap(cam models.Camera) {
	next := models.CameraOffline
	sev := models.SeverityError
	kind := "camera_offline"
	msg := fmt.Sprintf("%s stopped responding", cam.Name)
	if cam.Status != models.CameraOnline {
		next = models.CameraOnline
		sev = models.SeveritySuccess
		kind = "camera_online"
		msg = fmt.Sprintf("%s is back online", cam.Name)
	}
	if err := s.backend.SetCameraStatus(cam.ID, next); err != nil {
		slog.Warn("demo: status flap failed", "camera", cam.ID, "error", err)
		return
	}
	s.backend.AddEvent(models.Event{CameraID: cam.ID, Type: kind, Message: msg, Severity: sev})
}
