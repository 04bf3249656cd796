package models

import "time"

// StatsResponse wraps GET /api/stats
type StatsResponse struct {
	Data Stats `json:"data"`
}

// Stats is the denormalized system summary shown on the dashboard header.
// It is always replaced as a whole.
type Stats struct {
	TotalCameras   int       `json:"total_cameras" yaml:"total_cameras"`
	OnlineCameras  int       `json:"online_cameras" yaml:"online_cameras"`
	OfflineCameras int       `json:"offline_cameras" yaml:"offline_cameras"`
	ErrorCameras   int       `json:"error_cameras" yaml:"error_cameras"`
	EventsToday    int       `json:"events_today" yaml:"events_today"`
	ActiveAlerts   int       `json:"active_alerts" yaml:"active_alerts"`
	UptimeSeconds  int64     `json:"uptime_seconds" yaml:"uptime_seconds"`
	GeneratedAt    time.Time `json:"generated_at" yaml:"generated_at"`
}
