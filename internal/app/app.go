// Package app builds the process-wide client context: every store, the
// session machine, the push channel and the orchestrator, wired once and
// passed to whoever needs them.
package app

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"camdash/internal/client"
	"camdash/internal/config"
	"camdash/internal/ledger"
	"camdash/internal/metrics"
	"camdash/internal/orchestrator"
	"camdash/internal/push"
	"camdash/internal/session"
	"camdash/internal/store"
	"camdash/pkg/models"
)

// pushReadTimeout drops a silent connection; server pings keep it alive.
const pushReadTimeout = 90 * time.Second

// Context holds the client's components. Fields are replaced by Reset, so
// references taken before a Reset must not be used after it.
type Context struct {
	Settings config.Settings

	API           *client.Client
	Session       *session.Machine
	Cameras       *store.CameraStore
	Events        *store.EventStore
	Stats         *store.StatsStore
	Alerts        *ledger.Alerts
	Notifications *ledger.Notifications
	Push          *push.Manager
	Sync          *orchestrator.Orchestrator
	Registry      *prometheus.Registry

	sched   clockwork.Clock
	mu      sync.Mutex
	started bool
}

// Option customizes New.
type Option func(*Context)

// WithScheduler replaces the wall clock used for notification expiry and
// reconnect backoff.
func WithScheduler(s clockwork.Clock) Option {
	return func(c *Context) { c.sched = s }
}

// New wires a context from settings. Nothing runs until Start.
func New(settings config.Settings, opts ...Option) (*Context, error) {
	c := &Context{Settings: settings, sched: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.build(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Context) build() error {
	s := c.Settings

	api, err := client.New(client.ClientConfig{
		BaseURL:            s.BaseURL,
		Timeout:            s.RequestTimeout,
		InsecureSkipVerify: s.InsecureSkipVerify,
	})
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	api.UseSession(s.SessionToken)

	notifications := ledger.NewNotifications(c.sched)
	cameras := store.NewCameraStore()
	events := store.NewEventStore(s.EventLimit)
	stats := store.NewStatsStore()
	alerts := ledger.NewAlerts()
	sess := session.New(api, notifications)
	counters := metrics.NewPushCounters()

	orch := orchestrator.New(orchestrator.Config{
		EventLimit:           s.EventLimit,
		NotificationDuration: s.NotificationDuration,
		BootstrapTimeout:     s.RequestTimeout * 3,
	}, sess, api, nil, orchestrator.Stores{
		Cameras:       cameras,
		Events:        events,
		Stats:         stats,
		Alerts:        alerts,
		Notifications: notifications,
	})

	dialer := &push.WebSocketDialer{
		URL:              api.PushURL(),
		Jar:              api.Jar(),
		HandshakeTimeout: s.RequestTimeout,
		ReadTimeout:      pushReadTimeout,
	}
	if s.InsecureSkipVerify {
		dialer.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}
	router := &push.Router{Cameras: cameras, Events: events, Stats: stats, Alerts: alerts, Recorder: counters}
	manager := push.NewManager(dialer, router,
		push.WithClock(c.sched),
		push.WithReporter(orch),
		push.WithRecorder(counters),
		push.WithRetry(push.RetryConfig{
			InitialDelay: s.Reconnect.InitialDelay,
			MaxDelay:     s.Reconnect.MaxDelay,
			MaxRetries:   s.Reconnect.MaxRetries,
			NotifyAfter:  s.Reconnect.NotifyAfter,
		}),
	)
	orch.SetChannel(manager)

	collector := metrics.NewCollector(metrics.Sources{
		Authenticated: func() bool { return sess.Read().IsAuthenticated },
		Push:          manager,
		Cameras:       cameras,
		Events:        events,
		Stats:         stats,
		Alerts:        alerts,
		Notifications: notifications,
	})
	registry, err := metrics.NewRegistry(collector, counters)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	c.API = api
	c.Session = sess
	c.Cameras = cameras
	c.Events = events
	c.Stats = stats
	c.Alerts = alerts
	c.Notifications = notifications
	c.Push = manager
	c.Sync = orch
	c.Registry = registry
	return nil
}

// Start hooks the orchestrator to the session and resolves the session
// against the server. It returns the resolved session.
func (c *Context) Start(ctx context.Context) models.Session {
	c.mu.Lock()
	if !c.started {
		c.started = true
		c.Sync.Start()
	}
	c.mu.Unlock()

	s := c.Session.Init(ctx)
	slog.Info("app: session resolved",
		"authenticated", s.IsAuthenticated, "setup_required", s.SetupRequired)
	return s
}

// Close stops synchronization, drops the live channel and cancels pending
// notification timers.
func (c *Context) Close() {
	c.mu.Lock()
	started := c.started
	c.started = false
	c.mu.Unlock()

	if started {
		c.Sync.Stop()
	}
	c.Push.Disconnect()
	c.Notifications.Reset()
}

// Reset closes the context and rebuilds every component from the same
// settings, leaving a fresh unresolved session and empty stores.
func (c *Context) Reset() error {
	c.Close()
	c.Settings.SessionToken = ""
	return c.build()
}
