package push

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

// fakeConn delivers messages pushed into msgs. Close does not unblock a
// pending read on purpose, so tests can deliver a message after Disconnect.
type fakeConn struct {
	msgs     chan []byte
	errs     chan error
	closeErr error
	mu       sync.Mutex
	closed   bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{msgs: make(chan []byte, 16), errs: make(chan error, 1)}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case m := <-c.msgs:
		return m, nil
	case err := <-c.errs:
		return nil, err
	}
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return c.closeErr
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// fakeDialer returns queued results in order; with an empty queue it blocks
// until ctx is cancelled.
type fakeDialer struct {
	mu      sync.Mutex
	results []dialResult
	dials   int
}

type dialResult struct {
	conn *fakeConn
	err  error
}

func (d *fakeDialer) queue(r ...dialResult) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.results = append(d.results, r...)
}

func (d *fakeDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *fakeDialer) Dial(ctx context.Context) (Conn, error) {
	d.mu.Lock()
	d.dials++
	if len(d.results) > 0 {
		r := d.results[0]
		d.results = d.results[1:]
		d.mu.Unlock()
		if r.err != nil {
			return nil, r.err
		}
		return r.conn, nil
	}
	d.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

type recordingHandler struct {
	mu   sync.Mutex
	msgs []string
}

func (h *recordingHandler) Handle(data []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = append(h.msgs, string(data))
	return nil
}

func (h *recordingHandler) received() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.msgs...)
}

type fakeReporter struct {
	mu       sync.Mutex
	degraded []int
	cleared  int
}

func (r *fakeReporter) ChannelDegraded(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.degraded = append(r.degraded, n)
}

func (r *fakeReporter) ChannelCleared() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleared++
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// waitTimers blocks until exactly n retry timers are pending on clk.
func waitTimers(t *testing.T, clk *clockwork.FakeClock, n int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := clk.BlockUntilContext(ctx, n); err != nil {
		t.Fatalf("expected %d pending timers: %v", n, err)
	}
}

func TestBackoffSchedule(t *testing.T) {
	cfg := DefaultRetryConfig()
	want := []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second, 30 * time.Second, 30 * time.Second}
	for i, w := range want {
		if got := backoff(i+1, cfg); got != w {
			t.Fatalf("attempt %d: backoff = %s, want %s", i+1, got, w)
		}
	}
}

func TestConnectMovesToConnectingThenConnected(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager(d, &recordingHandler{}, WithClock(clockwork.NewFakeClockAt(time.Unix(0, 0))))

	m.Connect()
	if m.State() != Connecting {
		t.Fatalf("state = %s, want connecting", m.State())
	}

	waitFor(t, "first dial", func() bool { return d.count() == 1 })

	conn := newFakeConn()
	d.queue(dialResult{conn: conn})
	m.Connect() // replaces the pending attempt
	waitFor(t, "connected", func() bool { return m.State() == Connected })

	m.Disconnect()
	if m.State() != Disconnected {
		t.Fatalf("state = %s, want disconnected", m.State())
	}
	if !conn.isClosed() {
		t.Fatalf("Disconnect did not close the connection")
	}
}

func TestMessagesAreHandledInOrder(t *testing.T) {
	d := &fakeDialer{}
	conn := newFakeConn()
	d.queue(dialResult{conn: conn})
	h := &recordingHandler{}
	m := NewManager(d, h, WithClock(clockwork.NewFakeClockAt(time.Unix(0, 0))))

	m.Connect()
	for _, s := range []string{"a", "b", "c"} {
		conn.msgs <- []byte(s)
	}
	waitFor(t, "three messages", func() bool { return len(h.received()) == 3 })
	m.Disconnect()

	got := h.received()
	if got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("messages out of order: %v", got)
	}
}

func TestNoDispatchAfterDisconnect(t *testing.T) {
	d := &fakeDialer{}
	conn := newFakeConn()
	d.queue(dialResult{conn: conn})
	h := &recordingHandler{}
	m := NewManager(d, h, WithClock(clockwork.NewFakeClockAt(time.Unix(0, 0))))

	m.Connect()
	waitFor(t, "connected", func() bool { return m.State() == Connected })

	m.Disconnect()
	// The read loop is still blocked; this message arrives after the call.
	conn.msgs <- []byte("late")
	time.Sleep(20 * time.Millisecond)

	if got := h.received(); len(got) != 0 {
		t.Fatalf("message dispatched after Disconnect: %v", got)
	}
}

func TestReconnectWithBackoffAndCancel(t *testing.T) {
	clk := clockwork.NewFakeClockAt(time.Unix(0, 0))
	d := &fakeDialer{}
	d.queue(dialResult{err: errors.New("refused")})
	m := NewManager(d, &recordingHandler{}, WithClock(clk), WithRetry(RetryConfig{InitialDelay: time.Second, MaxDelay: 4 * time.Second}))

	m.Connect()
	waitFor(t, "first failure", func() bool { return m.State() == Disconnected })
	waitTimers(t, clk, 1)
	if m.Attempts() != 1 {
		t.Fatalf("attempts = %d, want 1", m.Attempts())
	}

	d.queue(dialResult{err: errors.New("refused")})
	clk.Advance(time.Second)
	waitFor(t, "second failure", func() bool { return m.Attempts() == 2 })
	waitTimers(t, clk, 1)

	// Second retry is 2s out; 1s is not enough.
	clk.Advance(time.Second)
	if d.count() != 2 {
		t.Fatalf("retried too early: %d dials", d.count())
	}

	m.Disconnect()
	waitTimers(t, clk, 0)
	clk.Advance(time.Minute)
	time.Sleep(20 * time.Millisecond)
	if d.count() != 2 {
		t.Fatalf("dialed after Disconnect: %d dials", d.count())
	}
}

func TestConnectionDropTriggersRetry(t *testing.T) {
	clk := clockwork.NewFakeClockAt(time.Unix(0, 0))
	d := &fakeDialer{}
	first := newFakeConn()
	second := newFakeConn()
	d.queue(dialResult{conn: first}, dialResult{conn: second})
	m := NewManager(d, &recordingHandler{}, WithClock(clk))

	m.Connect()
	waitFor(t, "connected", func() bool { return m.State() == Connected })

	first.errs <- errors.New("reset by peer")
	waitFor(t, "drop", func() bool { return m.State() == Disconnected })
	waitTimers(t, clk, 1)

	clk.Advance(time.Second)
	waitFor(t, "reconnected", func() bool { return m.State() == Connected })
	if m.Attempts() != 0 {
		t.Fatalf("attempts not reset after reconnect: %d", m.Attempts())
	}
	m.Disconnect()
}

func TestReporterDegradedAfterThresholdAndCleared(t *testing.T) {
	clk := clockwork.NewFakeClockAt(time.Unix(0, 0))
	d := &fakeDialer{}
	rep := &fakeReporter{}
	for i := 0; i < 3; i++ {
		d.queue(dialResult{err: errors.New("refused")})
	}
	conn := newFakeConn()
	d.queue(dialResult{conn: conn})
	m := NewManager(d, &recordingHandler{}, WithClock(clk), WithReporter(rep),
		WithRetry(RetryConfig{InitialDelay: time.Second, MaxDelay: time.Second, NotifyAfter: 2}))

	m.Connect()
	for i := 1; i <= 3; i++ {
		n := i
		waitFor(t, "failure", func() bool { return m.Attempts() == n })
		waitTimers(t, clk, 1)
		clk.Advance(time.Second)
	}
	waitFor(t, "connected", func() bool { return m.State() == Connected })

	rep.mu.Lock()
	defer rep.mu.Unlock()
	if len(rep.degraded) != 1 || rep.degraded[0] != 2 {
		t.Fatalf("expected one degraded report at 2 attempts, got %v", rep.degraded)
	}
	if rep.cleared != 1 {
		t.Fatalf("expected one cleared report, got %d", rep.cleared)
	}
	m.Disconnect()
}

func TestMaxRetriesStopsReconnecting(t *testing.T) {
	clk := clockwork.NewFakeClockAt(time.Unix(0, 0))
	d := &fakeDialer{}
	d.queue(dialResult{err: errors.New("refused")}, dialResult{err: errors.New("refused")})
	m := NewManager(d, &recordingHandler{}, WithClock(clk), WithRetry(RetryConfig{InitialDelay: time.Second, MaxRetries: 1}))

	m.Connect()
	waitFor(t, "first failure", func() bool { return m.Attempts() == 1 })
	clk.Advance(time.Second)
	waitFor(t, "second failure", func() bool { return m.Attempts() == 2 })

	waitTimers(t, clk, 0)
	if m.State() != Disconnected {
		t.Fatalf("state = %s", m.State())
	}
}

func TestDisconnectIsIdempotent(t *testing.T) {
	m := NewManager(&fakeDialer{}, &recordingHandler{}, WithClock(clockwork.NewFakeClockAt(time.Unix(0, 0))))

	var states []State
	m.Subscribe(func(s State) { states = append(states, s) })

	m.Disconnect()
	m.Disconnect()
	if len(states) != 0 {
		t.Fatalf("Disconnect from Disconnected published %v", states)
	}

	m.Connect()
	m.Disconnect()
	m.Disconnect()
	if len(states) != 2 || states[0] != Connecting || states[1] != Disconnected {
		t.Fatalf("unexpected transitions: %v", states)
	}
}

// slowDialer ignores cancellation and completes only when release is closed.
type slowDialer struct {
	release chan struct{}
	conn    *fakeConn
}

func (d *slowDialer) Dial(context.Context) (Conn, error) {
	<-d.release
	return d.conn, nil
}

func TestDialCompletingAfterDisconnectIsClosed(t *testing.T) {
	conn := newFakeConn()
	conn.closeErr = errors.New("already gone")
	d := &slowDialer{release: make(chan struct{}), conn: conn}
	m := NewManager(d, &recordingHandler{}, WithClock(clockwork.NewFakeClockAt(time.Unix(0, 0))))

	m.Connect()
	m.Disconnect()
	close(d.release)

	waitFor(t, "late connection closed", conn.isClosed)
	if m.State() != Disconnected {
		t.Fatalf("state = %s, want disconnected", m.State())
	}
}
