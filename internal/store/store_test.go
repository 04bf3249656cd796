package store

import (
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"camdash/pkg/models"
)

func seedCameras() []models.Camera {
	return []models.Camera{
		{ID: "cam1", Name: "Lobby", URL: "rtsp://10.0.0.1/s", Status: models.CameraOnline},
		{ID: "cam2", Name: "Dock", URL: "rtsp://10.0.0.2/s", Status: models.CameraOnline},
	}
}

func TestCameraStoreApplyPatchTouchesOnlyTarget(t *testing.T) {
	s := NewCameraStore()
	s.ReplaceAll(seedCameras())

	status := models.CameraError
	if !s.ApplyPatch("cam1", models.CameraPatch{Status: &status}) {
		t.Fatalf("expected patch to apply")
	}

	got := s.Read()
	if got[0].Status != models.CameraError {
		t.Fatalf("cam1 status = %s, want error", got[0].Status)
	}
	if !reflect.DeepEqual(got[1], seedCameras()[1]) {
		t.Fatalf("cam2 changed: %+v", got[1])
	}
	if got[0].Name != "Lobby" {
		t.Fatalf("cam1 name changed: %s", got[0].Name)
	}
}

func TestApplyPatchUnknownIDIsNoOp(t *testing.T) {
	s := NewCameraStore()
	s.ReplaceAll(seedCameras())
	before := s.Read()

	calls := 0
	unsub := s.Subscribe(func([]models.Camera) { calls++ })
	defer unsub()

	status := models.CameraOffline
	if s.ApplyPatch("ghost", models.CameraPatch{Status: &status}) {
		t.Fatalf("patch on unknown id reported applied")
	}

	if !reflect.DeepEqual(before, s.Read()) {
		t.Fatalf("store contents changed after unknown-id patch")
	}
	if calls != 0 {
		t.Fatalf("observers notified %d times for a no-op", calls)
	}
}

func TestReadReturnsCopy(t *testing.T) {
	s := NewCameraStore()
	s.ReplaceAll(seedCameras())

	snap := s.Read()
	snap[0].Name = "mutated"

	if s.Read()[0].Name != "Lobby" {
		t.Fatalf("Read exposed internal storage")
	}
}

func TestReplaceAllCopiesInput(t *testing.T) {
	s := NewCameraStore()
	in := seedCameras()
	s.ReplaceAll(in)
	in[0].Name = "mutated"

	if s.Read()[0].Name != "Lobby" {
		t.Fatalf("ReplaceAll retained caller slice")
	}
}

func TestSubscribeReceivesSnapshotsAndUnsubscribes(t *testing.T) {
	s := NewCameraStore()

	var seen [][]models.Camera
	unsub := s.Subscribe(func(c []models.Camera) { seen = append(seen, c) })

	s.ReplaceAll(seedCameras())
	s.Remove("cam1")
	unsub()
	unsub()
	s.Reset()

	if len(seen) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(seen))
	}
	if len(seen[0]) != 2 || len(seen[1]) != 1 || seen[1][0].ID != "cam2" {
		t.Fatalf("unexpected snapshots: %+v", seen)
	}
}

func TestResetEmptiesCollection(t *testing.T) {
	s := NewCameraStore()
	s.ReplaceAll(seedCameras())
	s.Reset()

	got := s.Read()
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil snapshot, got %#v", got)
	}
}

func event(id string, sec int) models.Event {
	return models.Event{ID: id, CameraID: "cam1", Type: "motion", Timestamp: time.Unix(int64(sec), 0)}
}

func ids(events []models.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}

func TestEventStorePrependTruncates(t *testing.T) {
	s := NewEventStore(3)
	s.ReplaceAll([]models.Event{event("e3", 3), event("e2", 2), event("e1", 1)})

	s.Prepend(event("e4", 4))

	want := []string{"e4", "e3", "e2"}
	if got := ids(s.Read()); !reflect.DeepEqual(got, want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
}

func TestEventStorePrependDeduplicates(t *testing.T) {
	s := NewEventStore(5)
	s.ReplaceAll([]models.Event{event("e2", 2), event("e1", 1)})

	s.Prepend(event("e1", 1))

	want := []string{"e1", "e2"}
	if got := ids(s.Read()); !reflect.DeepEqual(got, want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
}

func TestEventStoreReplaceAllRespectsLimit(t *testing.T) {
	s := NewEventStore(2)
	s.ReplaceAll([]models.Event{event("e3", 3), event("e2", 2), event("e1", 1)})

	if s.Len() != 2 {
		t.Fatalf("expected 2 events, got %d", s.Len())
	}
}

func TestStatsStoreReplaceAndReset(t *testing.T) {
	s := NewStatsStore()
	if _, ok := s.Read(); ok {
		t.Fatalf("fresh stats store should be empty")
	}

	var last models.Stats
	s.Subscribe(func(st models.Stats) { last = st })

	s.Replace(models.Stats{TotalCameras: 4, OnlineCameras: 3})
	got, ok := s.Read()
	if !ok || got.TotalCameras != 4 || last.OnlineCameras != 3 {
		t.Fatalf("unexpected stats: %+v (observer saw %+v)", got, last)
	}

	s.Reset()
	if _, ok := s.Read(); ok {
		t.Fatalf("expected stats to be cleared")
	}
}

func TestConcurrentPatchesAreNotLost(t *testing.T) {
	s := NewCollection(func(c models.Camera) string { return c.ID })
	s.ReplaceAll([]models.Camera{{ID: "cam1"}})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.ApplyPatch("cam1", func(c *models.Camera) { c.FPS++ })
		}()
	}
	wg.Wait()

	cam, _ := s.Get("cam1")
	if cam.FPS != 50 {
		t.Fatalf("expected 50 increments, got %d", cam.FPS)
	}
}

func TestObserversSeeSnapshotsInOrder(t *testing.T) {
	s := NewEventStore(100)

	var mu sync.Mutex
	var lens []int
	s.Subscribe(func(e []models.Event) {
		mu.Lock()
		lens = append(lens, len(e))
		mu.Unlock()
	})

	for i := 0; i < 10; i++ {
		s.Prepend(event(fmt.Sprintf("e%d", i), i))
	}

	for i, n := range lens {
		if n != i+1 {
			t.Fatalf("notification %d carried %d events", i, n)
		}
	}
}
