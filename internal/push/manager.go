// Package push owns the live channel to the dashboard server: one connection
// at a time, reconnect with backoff, and in-order routing of inbound
// messages into the stores.
package push

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/jonboulle/clockwork"
)

// State of the live channel.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// Conn is one established channel connection.
type Conn interface {
	// ReadMessage blocks until the next data message or an error. It must
	// return once Close has been called.
	ReadMessage() ([]byte, error)
	Close() error
}

// Dialer opens connections. Dial must honor ctx cancellation.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// Handler consumes one inbound message. Errors are logged and counted; they
// never close the channel.
type Handler interface {
	Handle(data []byte) error
}

// Reporter is told when the channel has been failing for a while, and when
// that is no longer the case.
type Reporter interface {
	ChannelDegraded(attempts int)
	ChannelCleared()
}

// Recorder receives channel counters.
type Recorder interface {
	Received(msgType string)
	Dropped(reason string)
	Reconnect()
}

type nopReporter struct{}

func (nopReporter) ChannelDegraded(int) {}
func (nopReporter) ChannelCleared()     {}

type nopRecorder struct{}

func (nopRecorder) Received(string) {}
func (nopRecorder) Dropped(string)  {}
func (nopRecorder) Reconnect()      {}

// Option configures a Manager.
type Option func(*Manager)

func WithRetry(cfg RetryConfig) Option   { return func(m *Manager) { m.cfg = cfg.withDefaults() } }
func WithClock(c clockwork.Clock) Option { return func(m *Manager) { m.clock = c } }
func WithReporter(r Reporter) Option     { return func(m *Manager) { m.reporter = r } }
func WithRecorder(r Recorder) Option     { return func(m *Manager) { m.recorder = r } }

// Manager runs the channel state machine
// Disconnected → Connecting → Connected → Disconnected, retrying from
// Disconnected until Disconnect is called.
//
// Observers registered with Subscribe run while the manager's lock is held
// and must not call back into the Manager.
type Manager struct {
	dialer   Dialer
	handler  Handler
	cfg      RetryConfig
	clock    clockwork.Clock
	reporter Reporter
	recorder Recorder

	state atomic.Int32

	mu       sync.Mutex
	gen      uint64 // identifies the current connection attempt
	conn     Conn
	cancel   context.CancelFunc
	timer    clockwork.Timer
	attempts int // consecutive failures
	degraded bool
	obsNext  int
	obs      map[int]func(State)

	dispatchMu sync.Mutex
}

func NewManager(d Dialer, h Handler, opts ...Option) *Manager {
	m := &Manager{
		dialer:   d,
		handler:  h,
		cfg:      DefaultRetryConfig(),
		clock:    clockwork.NewRealClock(),
		reporter: nopReporter{},
		recorder: nopRecorder{},
		obs:      make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current channel state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// Attempts returns the number of consecutive failed connection attempts.
func (m *Manager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// Subscribe registers fn for state changes.
func (m *Manager) Subscribe(fn func(State)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.obsNext
	m.obsNext++
	m.obs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.obs, id)
		})
	}
}

// Connect opens the channel in the background. A live or pending connection
// is torn down first, so there is never more than one.
func (m *Manager) Connect() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.gen++
	m.teardownLocked()
	m.attempts = 0
	m.startLocked()
}

// Disconnect closes the channel and cancels any pending retry. It is
// idempotent. When it returns, no message from the closed connection will
// reach the Handler.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.gen++
	m.teardownLocked()
	m.attempts = 0
	if m.degraded {
		m.degraded = false
		m.reporter.ChannelCleared()
	}
	if m.State() != Disconnected {
		slog.Info("push: disconnected")
	}
	m.setStateLocked(Disconnected)
	m.mu.Unlock()

	// Wait out a dispatch that passed its generation check before gen moved.
	m.dispatchMu.Lock()
	m.dispatchMu.Unlock()
}

func (m *Manager) startLocked() {
	gen := m.gen
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.setStateLocked(Connecting)
	go m.run(ctx, gen)
}

func (m *Manager) teardownLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if m.conn != nil {
		if err := m.conn.Close(); err != nil {
			slog.Debug("push: close failed", "error", err)
		}
		m.conn = nil
	}
}

func (m *Manager) setStateLocked(s State) {
	if State(m.state.Swap(int32(s))) == s {
		return
	}
	for _, fn := range m.obs {
		fn(s)
	}
}

func (m *Manager) current(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen == gen
}

func (m *Manager) run(ctx context.Context, gen uint64) {
	conn, err := m.dialer.Dial(ctx)
	if err != nil {
		m.fail(gen, err)
		return
	}

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		if err := conn.Close(); err != nil {
			slog.Debug("push: close of superseded connection failed", "error", err)
		}
		return
	}
	m.conn = conn
	m.attempts = 0
	if m.degraded {
		m.degraded = false
		m.reporter.ChannelCleared()
	}
	m.setStateLocked(Connected)
	m.mu.Unlock()
	slog.Info("push: connection established")

	for {
		data, err := conn.ReadMessage()
		if err != nil {
			m.fail(gen, err)
			return
		}
		m.dispatch(gen, data)
	}
}

// dispatch hands data to the Handler unless the connection it came from has
// been superseded. Messages of one connection are dispatched one at a time
// in arrival order.
func (m *Manager) dispatch(gen uint64, data []byte) {
	m.dispatchMu.Lock()
	defer m.dispatchMu.Unlock()

	if !m.current(gen) {
		m.recorder.Dropped("stale")
		slog.Debug("push: dropped message from closed connection")
		return
	}
	if err := m.handler.Handle(data); err != nil {
		slog.Warn("push: message dropped", "error", err)
	}
}

func (m *Manager) fail(gen uint64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen {
		// Superseded by Connect/Disconnect; the error is our own close.
		return
	}
	m.teardownLocked()
	m.attempts++
	m.setStateLocked(Disconnected)

	if m.cfg.NotifyAfter > 0 && m.attempts >= m.cfg.NotifyAfter && !m.degraded {
		m.degraded = true
		m.reporter.ChannelDegraded(m.attempts)
	}

	if m.cfg.MaxRetries > 0 && m.attempts > m.cfg.MaxRetries {
		slog.Error("push: max retries exceeded, giving up",
			"attempts", m.attempts,
			"error", err,
		)
		return
	}

	delay := backoff(m.attempts, m.cfg)
	slog.Warn("push: connection lost, retrying",
		"error", err,
		"attempt", m.attempts,
		"delay", delay,
	)
	m.timer = m.clock.AfterFunc(delay, func() { m.retry(gen) })
}

func (m *Manager) retry(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen || m.State() != Disconnected {
		return
	}
	m.timer = nil
	m.gen++
	m.recorder.Reconnect()
	m.startLocked()
}
