// Package ledger holds the alert and notification lists, which unlike the
// entity stores carry their own dedup and expiry rules.
package ledger

import (
	"time"

	"github.com/google/uuid"

	"camdash/internal/store"
	"camdash/pkg/models"
)

// Alerts keeps at most one alert per camera. A newer alert for a camera
// replaces the older one and moves to the end of the list.
type Alerts struct {
	list *store.Collection[models.Alert]
	now  func() time.Time
}

func NewAlerts() *Alerts {
	return &Alerts{
		list: store.NewCollection(func(a models.Alert) string { return a.ID }),
		now:  time.Now,
	}
}

// Upsert drops any alert for a.CameraID, appends a under a new identity and
// returns that identity.
func (l *Alerts) Upsert(a models.Alert) string {
	a.ID = uuid.NewString()
	if a.RaisedAt.IsZero() {
		a.RaisedAt = l.now().UTC()
	}

	l.list.Update(func(cur []models.Alert) ([]models.Alert, bool) {
		next := make([]models.Alert, 0, len(cur)+1)
		for _, old := range cur {
			if old.CameraID != a.CameraID {
				next = append(next, old)
			}
		}
		return append(next, a), true
	})
	return a.ID
}

// Remove drops the alert with the given identity. Unknown ids are ignored.
func (l *Alerts) Remove(id string) bool {
	return l.list.Remove(id)
}

// ClearCamera drops the alert for cameraID, if any.
func (l *Alerts) ClearCamera(cameraID string) bool {
	return l.list.Update(func(cur []models.Alert) ([]models.Alert, bool) {
		for i, a := range cur {
			if a.CameraID == cameraID {
				next := make([]models.Alert, 0, len(cur)-1)
				next = append(next, cur[:i]...)
				return append(next, cur[i+1:]...), true
			}
		}
		return cur, false
	})
}

func (l *Alerts) Read() []models.Alert                     { return l.list.Read() }
func (l *Alerts) Len() int                                 { return l.list.Len() }
func (l *Alerts) Subscribe(fn func([]models.Alert)) func() { return l.list.Subscribe(fn) }
func (l *Alerts) Reset()                                   { l.list.Reset() }
