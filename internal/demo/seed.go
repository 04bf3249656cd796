package demo

import (
	"fmt"
	"time"

	"camdash/pkg/models"
)

type cameraSeed struct {
	ID       string
	Name     string
	URL      string
	Location string
	FPS      int
	Status   models.CameraStatus
}

var cameraSeeds = []cameraSeed{
	{"cam1", "Front Entrance", "rtsp://10.20.0.11:554/stream1", "Building A", 25, models.CameraOnline},
	{"cam2", "Loading Dock", "rtsp://10.20.0.12:554/stream1", "Building A", 15, models.CameraOnline},
	{"cam3", "Parking North", "rtsp://10.20.0.21:554/h264", "Lot 1", 12, models.CameraOnline},
	{"cam4", "Server Room", "http://10.20.0.31/mjpeg", "Building B", 10, models.CameraOffline},
	{"cam5", "Lobby", "onvif://10.20.0.41/profile1", "Building B", 30, models.CameraOnline},
}

func seedCameras(now time.Time) []models.Camera {
	out := make([]models.Camera, 0, len(cameraSeeds))
	for i, s := range cameraSeeds {
		created := now.Add(-time.Duration(30-i) * 24 * time.Hour)
		c := models.Camera{
			ID:        s.ID,
			Name:      s.Name,
			URL:       s.URL,
			Status:    s.Status,
			Location:  s.Location,
			FPS:       s.FPS,
			CreatedAt: created,
			UpdatedAt: created,
		}
		if s.Status == models.CameraOnline {
			seen := now.Add(-time.Duration(i) * time.Second)
			c.LastSeen = &seen
		}
		out = append(out, c)
	}
	return out
}

var eventKinds = []struct {
	Type     string
	Severity models.Severity
	Format   string
}{
	{"motion", models.SeverityInfo, "Motion detected on %s"},
	{"person", models.SeverityWarning, "Person detected on %s"},
	{"camera_offline", models.SeverityError, "%s stopped responding"},
	{"camera_online", models.SeveritySuccess, "%s is back online"},
}

// seedEvents returns a day's worth of history, newest first.
func seedEvents(now time.Time, cams []models.Camera) []models.Event {
	const n = 40
	out := make([]models.Event, 0, n)
	for i := 0; i < n; i++ {
		cam := cams[(i*3)%len(cams)]
		kind := eventKinds[(i*7)%len(eventKinds)]
		out = append(out, models.Event{
			ID:        fmt.Sprintf("seed-%03d", i+1),
			CameraID:  cam.ID,
			Type:      kind.Type,
			Message:   fmt.Sprintf(kind.Format, cam.Name),
			Severity:  kind.Severity,
			Timestamp: now.Add(-time.Duration(i*17+3) * time.Minute),
		})
	}
	return out
}
