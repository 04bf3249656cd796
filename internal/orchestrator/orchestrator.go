// Package orchestrator keeps the push channel and the entity stores in step
// with the session: bootstrap and connect on login, disconnect and clear on
// logout.
package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"camdash/internal/client"
	"camdash/internal/ledger"
	"camdash/internal/store"
	"camdash/pkg/models"
)

// Fetcher is the REST surface used for bootstrap.
type Fetcher interface {
	GetCameras(ctx context.Context) ([]models.Camera, error)
	GetEvents(ctx context.Context, limit int) ([]models.Event, error)
	GetStats(ctx context.Context) (models.Stats, error)
}

// Session is the part of the session machine the orchestrator drives.
type Session interface {
	Subscribe(fn func(models.Session)) func()
	Read() models.Session
	// ExpireIf ends the session if still reports true. still runs while no
	// other session transition can start.
	ExpireIf(still func() bool)
}

// Channel is the push channel lifecycle.
type Channel interface {
	Connect()
	Disconnect()
}

type Config struct {
	EventLimit           int
	NotificationDuration time.Duration
	BootstrapTimeout     time.Duration
}

type Orchestrator struct {
	cfg     Config
	session Session
	api     Fetcher
	channel Channel

	cameras       *store.CameraStore
	events        *store.EventStore
	stats         *store.StatsStore
	alerts        *ledger.Alerts
	notifications *ledger.Notifications

	mu          sync.Mutex
	authed      bool
	userID      int64
	epoch       uint64
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	unsubscribe func()

	noticeMu sync.Mutex
	noticeID uint64
}

// Stores groups the containers the orchestrator fills and clears.
type Stores struct {
	Cameras       *store.CameraStore
	Events        *store.EventStore
	Stats         *store.StatsStore
	Alerts        *ledger.Alerts
	Notifications *ledger.Notifications
}

func New(cfg Config, sess Session, api Fetcher, channel Channel, s Stores) *Orchestrator {
	if cfg.EventLimit <= 0 {
		cfg.EventLimit = client.DefaultEventLimit
	}
	if cfg.NotificationDuration <= 0 {
		cfg.NotificationDuration = 5 * time.Second
	}
	if cfg.BootstrapTimeout <= 0 {
		cfg.BootstrapTimeout = 30 * time.Second
	}
	return &Orchestrator{
		cfg:           cfg,
		session:       sess,
		api:           api,
		channel:       channel,
		cameras:       s.Cameras,
		events:        s.Events,
		stats:         s.Stats,
		alerts:        s.Alerts,
		notifications: s.Notifications,
	}
}

// SetChannel attaches the push channel. The channel's Reporter is usually the
// orchestrator itself, so the two are built in two steps.
func (o *Orchestrator) SetChannel(ch Channel) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.channel = ch
}

// Start subscribes to the session and applies its current state.
func (o *Orchestrator) Start() {
	o.mu.Lock()
	if o.unsubscribe != nil {
		o.mu.Unlock()
		return
	}
	o.mu.Unlock()

	unsub := o.session.Subscribe(o.onSession)

	o.mu.Lock()
	o.unsubscribe = unsub
	o.mu.Unlock()

	o.onSession(o.session.Read())
}

// Stop unsubscribes and tears down as if the session ended. It waits for
// in-flight bootstrap goroutines.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	unsub := o.unsubscribe
	o.unsubscribe = nil
	o.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	o.leave()
	o.wg.Wait()
}

// Wait blocks until bootstrap goroutines started so far have finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Epoch identifies the current authenticated session; it moves on every
// transition into or out of Authenticated.
func (o *Orchestrator) Epoch() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.epoch
}

func (o *Orchestrator) onSession(s models.Session) {
	if s.IsAuthenticated {
		o.enter(s)
		return
	}
	o.leave()
}

func (o *Orchestrator) enter(s models.Session) {
	var id int64
	if s.User != nil {
		id = s.User.ID
	}

	o.mu.Lock()
	switched := o.authed && o.userID != id
	if o.authed && !switched {
		o.mu.Unlock()
		return
	}
	o.mu.Unlock()

	// A different user: end the old session before anything of the new one
	// is fetched.
	if switched {
		slog.Info("sync: user changed, restarting session", "epoch", o.Epoch())
		o.leave()
	}

	o.mu.Lock()
	if o.authed {
		o.mu.Unlock()
		return
	}
	o.authed = true
	o.userID = id
	o.epoch++
	epoch := o.epoch
	ctx, cancel := context.WithTimeout(context.Background(), o.cfg.BootstrapTimeout)
	o.cancel = cancel
	ch := o.channel
	o.mu.Unlock()

	user := ""
	if s.User != nil {
		user = s.User.Username
	}
	slog.Info("sync: session started, bootstrapping", "user", user, "epoch", epoch)

	o.bootstrap(ctx, epoch)
	if ch != nil {
		ch.Connect()
	}
}

func (o *Orchestrator) leave() {
	o.mu.Lock()
	if !o.authed {
		o.mu.Unlock()
		return
	}
	o.authed = false
	o.userID = 0
	ch := o.channel
	o.mu.Unlock()

	// Channel first, so no delta lands after the stores are cleared.
	if ch != nil {
		ch.Disconnect()
	}

	o.mu.Lock()
	o.epoch++
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.cameras.Reset()
	o.events.Reset()
	o.stats.Reset()
	o.alerts.Reset()
	o.mu.Unlock()

	o.ChannelCleared()
	slog.Info("sync: session ended, stores cleared")
}

// bootstrap fetches every collection in parallel. Each fetch succeeds or
// fails on its own; results are applied only while epoch is current.
func (o *Orchestrator) bootstrap(ctx context.Context, epoch uint64) {
	fetches := []struct {
		name  string
		fetch func(context.Context) error
	}{
		{"cameras", func(ctx context.Context) error {
			cams, err := o.api.GetCameras(ctx)
			if err != nil {
				o.apply(epoch, func() { o.cameras.ReplaceAll(nil) })
				return err
			}
			o.apply(epoch, func() { o.cameras.ReplaceAll(cams) })
			return nil
		}},
		{"events", func(ctx context.Context) error {
			evts, err := o.api.GetEvents(ctx, o.cfg.EventLimit)
			if err != nil {
				o.apply(epoch, func() { o.events.ReplaceAll(nil) })
				return err
			}
			o.apply(epoch, func() { o.events.ReplaceAll(evts) })
			return nil
		}},
		{"stats", func(ctx context.Context) error {
			st, err := o.api.GetStats(ctx)
			if err != nil {
				o.apply(epoch, func() { o.stats.Reset() })
				return err
			}
			o.apply(epoch, func() { o.stats.Replace(st) })
			return nil
		}},
	}

	for _, f := range fetches {
		f := f
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			err := f.fetch(ctx)
			if err == nil {
				slog.Debug("sync: bootstrap complete", "collection", f.name, "epoch", epoch)
				return
			}
			if !o.isCurrent(epoch) {
				return
			}
			if client.IsAuthError(err) {
				slog.Warn("sync: session rejected during bootstrap", "collection", f.name)
				o.session.ExpireIf(func() bool { return o.isCurrent(epoch) })
				return
			}
			slog.Error("sync: bootstrap failed", "collection", f.name, "error", err)
			o.notifications.Add("Failed to load "+f.name, models.SeverityError, o.cfg.NotificationDuration)
		}()
	}
}

// apply runs fn only if epoch still identifies the live session. Holding mu
// keeps leave() from clearing the stores halfway through.
func (o *Orchestrator) apply(epoch uint64, fn func()) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.authed || o.epoch != epoch {
		slog.Debug("sync: discarded stale bootstrap response", "epoch", epoch)
		return false
	}
	fn()
	return true
}

func (o *Orchestrator) isCurrent(epoch uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.authed && o.epoch == epoch
}

// ChannelDegraded implements push.Reporter with a notification that stays up
// until the channel recovers.
func (o *Orchestrator) ChannelDegraded(attempts int) {
	o.noticeMu.Lock()
	defer o.noticeMu.Unlock()
	if o.noticeID != 0 {
		return
	}
	slog.Warn("sync: live updates unavailable", "attempts", attempts)
	o.noticeID = o.notifications.Add("Live updates are unavailable, reconnecting...", models.SeverityWarning, 0)
}

// ChannelCleared implements push.Reporter.
func (o *Orchestrator) ChannelCleared() {
	o.noticeMu.Lock()
	defer o.noticeMu.Unlock()
	if o.noticeID == 0 {
		return
	}
	o.notifications.Remove(o.noticeID)
	o.noticeID = 0
}
