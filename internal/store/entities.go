package store

import (
	"camdash/pkg/models"
)

// CameraStore holds the camera list.
type CameraStore struct {
	*Collection[models.Camera]
}

func NewCameraStore() *CameraStore {
	return &CameraStore{NewCollection(func(c models.Camera) string { return c.ID })}
}

// ApplyPatch merges p into the camera with the given id. It reports false
// for an unknown camera.
func (s *CameraStore) ApplyPatch(id string, p models.CameraPatch) bool {
	return s.Collection.ApplyPatch(id, p.Apply)
}

// EventStore holds the most recent events, newest first, bounded by a limit.
type EventStore struct {
	*Collection[models.Event]
	limit int
}

func NewEventStore(limit int) *EventStore {
	if limit <= 0 {
		limit = 20
	}
	return &EventStore{
		Collection: NewCollection(func(e models.Event) string { return e.ID }),
		limit:      limit,
	}
}

// Limit is the maximum number of events kept.
func (s *EventStore) Limit() int { return s.limit }

// ReplaceAll keeps at most Limit events from items, in the given order.
func (s *EventStore) ReplaceAll(items []models.Event) {
	if len(items) > s.limit {
		items = items[:s.limit]
	}
	s.Collection.ReplaceAll(items)
}

// Prepend puts e at the head and truncates to the limit. An event already
// present is moved rather than duplicated.
func (s *EventStore) Prepend(e models.Event) {
	s.Update(func(cur []models.Event) ([]models.Event, bool) {
		next := make([]models.Event, 0, s.limit)
		next = append(next, e)
		for _, old := range cur {
			if len(next) == s.limit {
				break
			}
			if old.ID == e.ID {
				continue
			}
			next = append(next, old)
		}
		return next, true
	})
}

// StatsStore holds the latest stats snapshot. It only supports Replace.
type StatsStore struct {
	*Value[models.Stats]
}

func NewStatsStore() *StatsStore {
	return &StatsStore{NewValue[models.Stats]()}
}
