package demo

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"camdash/internal/auth"
	"camdash/pkg/models"
)

// SessionCookie matches the name the client looks for.
const SessionCookie = "camdash_session"

const maxEventLimit = 100

// Server exposes a Backend over the dashboard REST and websocket API.
type Server struct {
	backend  *Backend
	hub      *Hub
	signer   *auth.Signer
	upgrader websocket.Upgrader
	router   *mux.Router
}

func NewServer(b *Backend, hub *Hub, signer *auth.Signer) *Server {
	s := &Server{
		backend: b,
		hub:     hub,
		signer:  signer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/setup/status", s.handleSetupStatus).Methods(http.MethodGet)
	api.HandleFunc("/auth/status", s.handleAuthStatus).Methods(http.MethodGet)
	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", s.handleLogout).Methods(http.MethodPost)

	private := api.NewRoute().Subrouter()
	private.Use(s.requireSession)
	private.HandleFunc("/cameras", s.handleCameras).Methods(http.MethodGet)
	private.HandleFunc("/cameras/{id}/status", s.handleCameraStatus).Methods(http.MethodPut)
	private.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)
	private.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	private.HandleFunc("/ws", s.handleWebSocket).Methods(http.MethodGet)
	return r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleSetupStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.SetupStatus{SetupRequired: s.backend.SetupRequired()})
}

func (s *Server) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	ck, err := r.Cookie(SessionCookie)
	if err != nil || ck.Value == "" {
		writeJSON(w, http.StatusOK, models.AuthStatus{})
		return
	}
	u, ok := s.userFromToken(ck.Value)
	if !ok {
		writeError(w, http.StatusUnauthorized, "session expired")
		return
	}
	writeJSON(w, http.StatusOK, models.AuthStatus{Authenticated: true, User: &u})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	u, err := s.backend.Authenticate(creds.Username, creds.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}
	if err := s.startSession(w, u); err != nil {
		writeError(w, http.StatusInternalServerError, "could not create session")
		return
	}
	slog.Info("demo: user logged in", "user", u.Username)
	writeJSON(w, http.StatusOK, models.LoginResponse{User: u})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	u, first, err := s.backend.Register(creds.Username, creds.Password)
	switch {
	case errors.Is(err, ErrMissingCredentials):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, ErrUserExists):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "could not create user")
		return
	}

	// The administrator created during setup is signed in immediately.
	if first {
		if err := s.startSession(w, u); err != nil {
			writeError(w, http.StatusInternalServerError, "could not create session")
			return
		}
	}
	slog.Info("demo: user registered", "user", u.Username, "role", u.Role)
	writeJSON(w, http.StatusCreated, models.RegisterResponse{User: u, AutoLogin: first})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleCameras(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.CameraListResponse{Data: s.backend.Cameras()})
}

func (s *Server) handleCameraStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status models.CameraStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	err := s.backend.SetCameraStatus(mux.Vars(r)["id"], body.Status)
	switch {
	case errors.Is(err, ErrUnknownCamera):
		writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxEventLimit)
	}
	writeJSON(w, http.StatusOK, models.EventListResponse{Data: s.backend.Events(limit)})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.StatsResponse{Data: s.backend.Stats()})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		slog.Debug("demo: websocket upgrade failed", "error", err)
		return
	}
	s.hub.Serve(conn)
}

func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ck, err := r.Cookie(SessionCookie)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "not logged in")
			return
		}
		if _, ok := s.userFromToken(ck.Value); !ok {
			writeError(w, http.StatusUnauthorized, "session expired")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) userFromToken(token string) (models.User, bool) {
	claims, err := s.signer.Parse(token)
	if err != nil {
		return models.User{}, false
	}
	return s.backend.LookupUser(claims.UserID)
}

func (s *Server) startSession(w http.ResponseWriter, u models.User) error {
	token, err := s.signer.Issue(u)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(auth.DefaultTTL),
	})
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Stack is a backend with its hub and HTTP server, ready to serve.
type Stack struct {
	Backend *Backend
	Hub     *Hub
	Server  *Server
}

// NewStack wires a fresh backend behind a server signing sessions with secret.
func NewStack(secret []byte, pingInterval time.Duration) *Stack {
	hub := NewHub(pingInterval)
	b := NewBackend(hub)
	return &Stack{
		Backend: b,
		Hub:     hub,
		Server:  NewServer(b, hub, auth.NewSigner(secret, auth.DefaultTTL)),
	}
}
