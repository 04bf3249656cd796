package ledger

import (
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"camdash/internal/store"
	"camdash/pkg/models"
)

// Notifications is the list of transient user-facing messages.
type Notifications struct {
	clock clockwork.Clock
	list  *store.Collection[models.Notification]

	mu     sync.Mutex
	lastID uint64
	timers map[uint64]clockwork.Timer
}

func NewNotifications(sched clockwork.Clock) *Notifications {
	if sched == nil {
		sched = clockwork.NewRealClock()
	}
	return &Notifications{
		clock:  sched,
		list:   store.NewCollection(func(n models.Notification) string { return notificationKey(n.ID) }),
		timers: make(map[uint64]clockwork.Timer),
	}
}

// Add appends a notification and returns its identity. Identities come from
// a single counter and are never reused. A positive duration schedules
// removal; zero keeps the notification until Remove.
func (l *Notifications) Add(message string, severity models.Severity, duration time.Duration) uint64 {
	l.mu.Lock()
	l.lastID++
	id := l.lastID
	l.mu.Unlock()

	n := models.Notification{
		ID:        id,
		Message:   message,
		Severity:  severity,
		CreatedAt: l.clock.Now().UTC(),
		Duration:  duration,
	}

	l.list.Update(func(cur []models.Notification) ([]models.Notification, bool) {
		next := make([]models.Notification, 0, len(cur)+1)
		next = append(next, cur...)
		// Keep the list ordered by id even when concurrent Adds race here.
		i := len(next)
		for i > 0 && next[i-1].ID > id {
			i--
		}
		next = append(next, models.Notification{})
		copy(next[i+1:], next[i:])
		next[i] = n
		return next, true
	})

	if duration > 0 {
		// The callback takes l.mu, so it cannot run before the handle is stored.
		l.mu.Lock()
		l.timers[id] = l.clock.AfterFunc(duration, func() { l.Remove(id) })
		l.mu.Unlock()
	}
	return id
}

// Remove drops the notification and cancels its expiry timer. It is safe to
// call more than once.
func (l *Notifications) Remove(id uint64) {
	l.mu.Lock()
	if t, ok := l.timers[id]; ok {
		t.Stop()
		delete(l.timers, id)
	}
	l.mu.Unlock()

	l.list.Remove(notificationKey(id))
}

// Reset drops every notification and cancels pending timers. The id counter
// keeps counting.
func (l *Notifications) Reset() {
	l.mu.Lock()
	for id, t := range l.timers {
		t.Stop()
		delete(l.timers, id)
	}
	l.mu.Unlock()

	l.list.Reset()
}

func (l *Notifications) Read() []models.Notification                     { return l.list.Read() }
func (l *Notifications) Len() int                                        { return l.list.Len() }
func (l *Notifications) Subscribe(fn func([]models.Notification)) func() { return l.list.Subscribe(fn) }

func notificationKey(id uint64) string {
	return strconv.FormatUint(id, 10)
}
