package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"camdash/internal/ledger"
	"camdash/internal/store"
	"camdash/pkg/models"
)

func TestCollectorReportsStoreContents(t *testing.T) {
	cams := store.NewCameraStore()
	cams.ReplaceAll([]models.Camera{
		{ID: "cam1", Name: "Lobby", Status: models.CameraOnline, Location: "HQ"},
		{ID: "cam2", Name: "Dock", Status: models.CameraOffline},
	})
	alerts := ledger.NewAlerts()
	alerts.Upsert(models.Alert{CameraID: "cam2"})

	c := NewCollector(Sources{
		Authenticated: func() bool { return true },
		Cameras:       cams,
		Alerts:        alerts,
	})

	// one session gauge, two camera_up, two status counts, one alert gauge
	if n := testutil.CollectAndCount(c); n != 6 {
		t.Fatalf("collected %d metrics, want 6", n)
	}

	want := `
# HELP camdash_alerts_active Active alerts (at most one per camera).
# TYPE camdash_alerts_active gauge
camdash_alerts_active 1
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(want), "camdash_alerts_active"); err != nil {
		t.Fatal(err)
	}
}

func TestCollectorStatsAge(t *testing.T) {
	stats := store.NewStatsStore()
	generated := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	stats.Replace(models.Stats{GeneratedAt: generated})

	c := NewCollector(Sources{Stats: stats})
	c.now = func() time.Time { return generated.Add(90 * time.Second) }

	want := `
# HELP camdash_stats_age_seconds Age of the last stats snapshot.
# TYPE camdash_stats_age_seconds gauge
camdash_stats_age_seconds 90
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(want)); err != nil {
		t.Fatal(err)
	}
}

func TestPushCountersAndHandler(t *testing.T) {
	counters := NewPushCounters()
	counters.Received(models.MsgNewEvent)
	counters.Received(models.MsgNewEvent)
	counters.Dropped("decode")
	counters.Reconnect()

	if got := testutil.ToFloat64(counters.received.WithLabelValues(models.MsgNewEvent)); got != 2 {
		t.Fatalf("received = %v, want 2", got)
	}

	reg, err := NewRegistry(NewCollector(Sources{}), counters)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	for _, name := range []string{"camdash_push_messages_total", "camdash_push_dropped_total", "camdash_push_reconnects_total 1"} {
		if !strings.Contains(string(body), name) {
			t.Fatalf("scrape output missing %q", name)
		}
	}
}
