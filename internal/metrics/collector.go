// Package metrics exposes the client's synchronized state to Prometheus.
package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"camdash/internal/ledger"
	"camdash/internal/push"
	"camdash/internal/store"
	"camdash/pkg/models"
)

var (
	sessionAuthDesc = prometheus.NewDesc(
		"camdash_session_authenticated", "Whether the client holds an authenticated session.", nil, nil,
	)
	pushStateDesc = prometheus.NewDesc(
		"camdash_push_state", "Live channel state (1 for the current state).", []string{"state"}, nil,
	)
	pushAttemptsDesc = prometheus.NewDesc(
		"camdash_push_failed_attempts", "Consecutive failed live channel attempts.", nil, nil,
	)
	cameraUpDesc = prometheus.NewDesc(
		"camdash_camera_up", "Camera is online.", []string{"id", "name", "location"}, nil,
	)
	cameraCountDesc = prometheus.NewDesc(
		"camdash_cameras_total", "Cameras grouped by status.", []string{"status"}, nil,
	)
	eventsBufferedDesc = prometheus.NewDesc(
		"camdash_events_buffered", "Recent events held by the client.", nil, nil,
	)
	alertsActiveDesc = prometheus.NewDesc(
		"camdash_alerts_active", "Active alerts (at most one per camera).", nil, nil,
	)
	notificationsDesc = prometheus.NewDesc(
		"camdash_notifications", "Notifications currently shown.", nil, nil,
	)
	statsAgeDesc = prometheus.NewDesc(
		"camdash_stats_age_seconds", "Age of the last stats snapshot.", nil, nil,
	)
)

// Sources are the stores read on every scrape.
type Sources struct {
	Authenticated func() bool
	Push          *push.Manager
	Cameras       *store.CameraStore
	Events        *store.EventStore
	Stats         *store.StatsStore
	Alerts        *ledger.Alerts
	Notifications *ledger.Notifications
}

// Collector reads the stores at scrape time; it holds no state of its own.
type Collector struct {
	src Sources
	now func() time.Time
}

func NewCollector(src Sources) *Collector {
	return &Collector{src: src, now: time.Now}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- sessionAuthDesc
	ch <- pushStateDesc
	ch <- pushAttemptsDesc
	ch <- cameraUpDesc
	ch <- cameraCountDesc
	ch <- eventsBufferedDesc
	ch <- alertsActiveDesc
	ch <- notificationsDesc
	ch <- statsAgeDesc
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.src.Authenticated != nil {
		ch <- prometheus.MustNewConstMetric(sessionAuthDesc, prometheus.GaugeValue, boolValue(c.src.Authenticated()))
	}

	if c.src.Push != nil {
		cur := c.src.Push.State()
		for _, st := range []push.State{push.Disconnected, push.Connecting, push.Connected} {
			ch <- prometheus.MustNewConstMetric(pushStateDesc, prometheus.GaugeValue, boolValue(st == cur), st.String())
		}
		ch <- prometheus.MustNewConstMetric(pushAttemptsDesc, prometheus.GaugeValue, float64(c.src.Push.Attempts()))
	}

	if c.src.Cameras != nil {
		statusCounts := make(map[string]float64)
		for _, cam := range c.src.Cameras.Read() {
			loc := cam.Location
			if loc == "" {
				loc = "unknown"
			}
			ch <- prometheus.MustNewConstMetric(cameraUpDesc, prometheus.GaugeValue,
				boolValue(cam.Status == models.CameraOnline), cam.ID, cam.Name, loc)

			st := strings.ToLower(string(cam.Status))
			if st == "" {
				st = "unknown"
			}
			statusCounts[st]++
		}
		for st, cnt := range statusCounts {
			ch <- prometheus.MustNewConstMetric(cameraCountDesc, prometheus.GaugeValue, cnt, st)
		}
	}

	if c.src.Events != nil {
		ch <- prometheus.MustNewConstMetric(eventsBufferedDesc, prometheus.GaugeValue, float64(c.src.Events.Len()))
	}
	if c.src.Alerts != nil {
		ch <- prometheus.MustNewConstMetric(alertsActiveDesc, prometheus.GaugeValue, float64(c.src.Alerts.Len()))
	}
	if c.src.Notifications != nil {
		ch <- prometheus.MustNewConstMetric(notificationsDesc, prometheus.GaugeValue, float64(c.src.Notifications.Len()))
	}
	if c.src.Stats != nil {
		if st, ok := c.src.Stats.Read(); ok && !st.GeneratedAt.IsZero() {
			ch <- prometheus.MustNewConstMetric(statsAgeDesc, prometheus.GaugeValue, c.now().Sub(st.GeneratedAt).Seconds())
		}
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
