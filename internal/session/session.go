// Package session resolves whether first-run setup is required and whether
// the user is logged in, and publishes every transition to its observers.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"camdash/internal/client"
	"camdash/pkg/models"
)

// API is the slice of the dashboard REST API the machine needs.
type API interface {
	CheckSetup(ctx context.Context) (models.SetupStatus, error)
	CheckAuthStatus(ctx context.Context) (models.AuthStatus, error)
	Login(ctx context.Context, username, password string) (models.User, error)
	Register(ctx context.Context, username, password string) (models.RegisterResponse, error)
	Logout(ctx context.Context) error
}

// Notifier receives user-facing failure reports.
type Notifier interface {
	Add(message string, severity models.Severity, duration time.Duration) uint64
}

// Machine owns the Session. Only its operations mutate it.
type Machine struct {
	api    API
	notify Notifier

	opMu    sync.Mutex // serializes operations so transitions publish in order
	mu      sync.RWMutex
	current models.Session

	obsMu   sync.Mutex
	obsNext int
	obs     map[int]func(models.Session)
	obsIDs  []int
}

// New returns a machine in the unresolved state (Loading=true).
func New(api API, notify Notifier) *Machine {
	return &Machine{
		api:     api,
		notify:  notify,
		current: models.Session{Loading: true},
		obs:     make(map[int]func(models.Session)),
	}
}

// Read returns the current session.
func (m *Machine) Read() models.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copySession(m.current)
}

// State names the current state.
func (m *Machine) State() State {
	return stateOf(m.Read())
}

// Subscribe registers fn for every transition and returns an unsubscribe
// function. fn runs synchronously on the goroutine that caused the change.
func (m *Machine) Subscribe(fn func(models.Session)) func() {
	m.obsMu.Lock()
	defer m.obsMu.Unlock()
	id := m.obsNext
	m.obsNext++
	m.obs[id] = fn
	m.obsIDs = append(m.obsIDs, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			m.obsMu.Lock()
			defer m.obsMu.Unlock()
			delete(m.obs, id)
			for i, v := range m.obsIDs {
				if v == id {
					m.obsIDs = append(m.obsIDs[:i], m.obsIDs[i+1:]...)
					break
				}
			}
		})
	}
}

// Init queries setup status and then auth status. It never leaves the
// session loading: any failure resolves to Unauthenticated.
func (m *Machine) Init(ctx context.Context) models.Session {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	setup, err := m.api.CheckSetup(ctx)
	if err != nil {
		m.initFailed(err)
		return m.Read()
	}
	if setup.SetupRequired {
		slog.Info("session: initial setup required")
		m.set(models.Session{SetupRequired: true})
		return m.Read()
	}

	status, err := m.api.CheckAuthStatus(ctx)
	if err != nil {
		m.initFailed(err)
		return m.Read()
	}
	if status.Authenticated && status.User != nil {
		slog.Info("session: resumed", "user", status.User.Username)
		m.set(authenticated(*status.User))
		return m.Read()
	}

	slog.Info("session: not authenticated")
	m.set(models.Session{})
	return m.Read()
}

func (m *Machine) initFailed(err error) {
	slog.Error("session: init failed", "error", err)
	m.report("Could not reach the server: "+err.Error(), models.SeverityError)
	m.set(models.Session{})
}

// Login authenticates and, on success, moves to Authenticated. Expected
// failures are returned in the Result rather than as errors.
func (m *Machine) Login(ctx context.Context, username, password string) Result {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Result{Outcome: InvalidCredentials, Message: "username and password are required"}
	}

	user, err := m.api.Login(ctx, username, password)
	if err != nil {
		res := failure(err)
		slog.Warn("session: login failed", "user", username, "outcome", res.Outcome, "error", err)
		return res
	}

	slog.Info("session: logged in", "user", user.Username, "role", user.Role)
	m.set(authenticated(user))
	return Result{Outcome: OK, User: &user}
}

// Register creates a user. The session becomes Authenticated only when the
// server logged the new user in. Otherwise an existing authenticated session
// is kept, and an unauthenticated one settles on Unauthenticated with setup
// cleared.
func (m *Machine) Register(ctx context.Context, username, password string) Result {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Result{Outcome: Rejected, Message: "username and password are required"}
	}

	resp, err := m.api.Register(ctx, username, password)
	if err != nil {
		res := failure(err)
		slog.Warn("session: register failed", "user", username, "outcome", res.Outcome, "error", err)
		return res
	}

	user := resp.User
	switch {
	case resp.AutoLogin:
		slog.Info("session: registered and logged in", "user", user.Username)
		m.set(authenticated(user))
	case m.Read().IsAuthenticated:
		// An admin creating another account stays signed in as themselves.
		slog.Info("session: registered", "user", user.Username)
	default:
		slog.Info("session: registered", "user", user.Username)
		m.set(models.Session{})
	}
	return Result{Outcome: OK, User: &user, AutoLogin: resp.AutoLogin}
}

// Logout tells the server on a best-effort basis and always ends the local
// session.
func (m *Machine) Logout(ctx context.Context) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if err := m.api.Logout(ctx); err != nil {
		slog.Warn("session: logout request failed", "error", err)
	}
	slog.Info("session: logged out")
	m.set(models.Session{})
}

// Expire drops an authenticated session after the server rejected it.
func (m *Machine) Expire() {
	m.ExpireIf(nil)
}

// ExpireIf is Expire guarded by still, which runs after every earlier
// transition has been published and before any later one starts. A rejection
// that belongs to a session that has since ended passes a still that reports
// false, and the current session is left alone.
func (m *Machine) ExpireIf(still func() bool) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if !m.Read().IsAuthenticated {
		return
	}
	if still != nil && !still() {
		slog.Debug("session: ignored rejection from an earlier session")
		return
	}
	slog.Warn("session: expired")
	m.report("Your session has expired, please log in again", models.SeverityWarning)
	m.set(models.Session{})
}

// set publishes next. Callers hold opMu.
func (m *Machine) set(next models.Session) {
	m.mu.Lock()
	m.current = next
	m.mu.Unlock()

	m.obsMu.Lock()
	fns := make([]func(models.Session), 0, len(m.obsIDs))
	for _, id := range m.obsIDs {
		fns = append(fns, m.obs[id])
	}
	m.obsMu.Unlock()

	for _, fn := range fns {
		fn(copySession(next))
	}
}

func (m *Machine) report(msg string, sev models.Severity) {
	if m.notify != nil {
		m.notify.Add(msg, sev, reportDuration)
	}
}

func authenticated(u models.User) models.Session {
	return models.Session{IsAuthenticated: true, User: &u}
}

func copySession(s models.Session) models.Session {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

func failure(err error) Result {
	switch {
	case errors.Is(err, client.ErrInvalidCredentials):
		return Result{Outcome: InvalidCredentials, Message: "invalid username or password", Err: err}
	case client.IsNetworkError(err), errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return Result{Outcome: NetworkError, Message: "could not reach the server", Err: err}
	default:
		return Result{Outcome: Rejected, Message: err.Error(), Err: err}
	}
}
