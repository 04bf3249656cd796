package demo

import (
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"camdash/pkg/models"
)

func newTestServer(t *testing.T) (*Stack, *httptest.Server, *http.Client) {
	t.Helper()
	st := NewStack([]byte("test-secret"), time.Second)
	srv := httptest.NewServer(st.Server)
	t.Cleanup(func() {
		st.Hub.Close()
		srv.Close()
	})
	jar, _ := cookiejar.New(nil)
	return st, srv, &http.Client{Jar: jar}
}

func postJSON(t *testing.T, c *http.Client, url string, body any) *http.Response {
	t.Helper()
	raw, _ := json.Marshal(body)
	resp, err := c.Post(url, "application/json", strings.NewReader(string(raw)))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestSetupThenFirstUserIsAdminAndLoggedIn(t *testing.T) {
	_, srv, c := newTestServer(t)

	resp, err := c.Get(srv.URL + "/api/setup/status")
	if err != nil {
		t.Fatal(err)
	}
	var setup models.SetupStatus
	decodeBody(t, resp, &setup)
	if !setup.SetupRequired {
		t.Fatalf("expected setup to be required on a fresh server")
	}

	resp = postJSON(t, c, srv.URL+"/api/auth/register", models.Credentials{Username: "root", Password: "pw"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d", resp.StatusCode)
	}
	var reg models.RegisterResponse
	decodeBody(t, resp, &reg)
	if !reg.AutoLogin || reg.User.Role != models.RoleAdmin {
		t.Fatalf("unexpected register response: %+v", reg)
	}

	resp, err = c.Get(srv.URL + "/api/auth/status")
	if err != nil {
		t.Fatal(err)
	}
	var status models.AuthStatus
	decodeBody(t, resp, &status)
	if !status.Authenticated || status.User == nil || status.User.Username != "root" {
		t.Fatalf("expected root to be logged in, got %+v", status)
	}

	resp = postJSON(t, c, srv.URL+"/api/auth/register", models.Credentials{Username: "bob", Password: "pw"})
	decodeBody(t, resp, &reg)
	if reg.AutoLogin || reg.User.Role != models.RoleUser {
		t.Fatalf("second user should be a plain user without auto login: %+v", reg)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	st, srv, c := newTestServer(t)
	if _, _, err := st.Backend.Register("alice", "secret"); err != nil {
		t.Fatal(err)
	}

	resp := postJSON(t, c, srv.URL+"/api/auth/login", models.Credentials{Username: "alice", Password: "nope"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestPrivateEndpointsNeedSession(t *testing.T) {
	st, srv, c := newTestServer(t)
	if _, _, err := st.Backend.Register("alice", "secret"); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{"/api/cameras", "/api/events", "/api/stats", "/api/ws"} {
		resp, err := c.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s without session: status = %d", path, resp.StatusCode)
		}
	}

	resp := postJSON(t, c, srv.URL+"/api/auth/login", models.Credentials{Username: "alice", Password: "secret"})
	resp.Body.Close()

	resp, err := c.Get(srv.URL + "/api/events?limit=5")
	if err != nil {
		t.Fatal(err)
	}
	var events models.EventListResponse
	decodeBody(t, resp, &events)
	if len(events.Data) != 5 {
		t.Fatalf("expected 5 events, got %d", len(events.Data))
	}
	for i := 1; i < len(events.Data); i++ {
		if events.Data[i].Timestamp.After(events.Data[i-1].Timestamp) {
			t.Fatalf("events not newest first")
		}
	}
}

func TestWebSocketReceivesStatusChange(t *testing.T) {
	st, srv, c := newTestServer(t)
	if _, _, err := st.Backend.Register("alice", "secret"); err != nil {
		t.Fatal(err)
	}
	resp := postJSON(t, c, srv.URL+"/api/auth/login", models.Credentials{Username: "alice", Password: "secret"})
	resp.Body.Close()

	dialer := websocket.Dialer{Jar: c.Jar}
	conn, _, err := dialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for st.Hub.Clients() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	if err := st.Backend.SetCameraStatus("cam1", models.CameraError); err != nil {
		t.Fatal(err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg models.PushMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != models.MsgCameraStatusChanged {
		t.Fatalf("first message type = %q", msg.Type)
	}
	var p models.CameraStatusPayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		t.Fatal(err)
	}
	if p.ID != "cam1" || p.Status != models.CameraError {
		t.Fatalf("unexpected payload: %+v", p)
	}
}

func TestBackendAlertsOnePerCamera(t *testing.T) {
	b := NewBackend(nil)
	if err := b.RaiseAlert("cam1", "tamper", "first", models.SeverityWarning); err != nil {
		t.Fatal(err)
	}
	if err := b.RaiseAlert("cam1", "tamper", "second", models.SeverityWarning); err != nil {
		t.Fatal(err)
	}
	alerts := b.Alerts()
	if len(alerts) != 1 || alerts[0].Message != "second" {
		t.Fatalf("unexpected alerts: %+v", alerts)
	}
	if b.Stats().ActiveAlerts != 1 {
		t.Fatalf("stats do not count the alert")
	}
	if !b.ClearAlert("cam1") || b.ClearAlert("cam1") {
		t.Fatalf("ClearAlert should succeed exactly once")
	}
	if err := b.RaiseAlert("ghost", "tamper", "x", models.SeverityWarning); err == nil {
		t.Fatalf("expected error for unknown camera")
	}
}

func TestSimulatorStepsKeepBackendConsistent(t *testing.T) {
	b := NewBackend(nil)
	sim := NewSimulator(b, time.Second, 1)
	before := len(b.Events(0))

	for i := 0; i < 35; i++ {
		sim.Step()
	}

	if got := len(b.Events(0)); got <= before {
		t.Fatalf("simulator added no events (%d -> %d)", before, got)
	}
	st := b.Stats()
	if st.OnlineCameras+st.OfflineCameras+st.ErrorCameras != st.TotalCameras {
		t.Fatalf("inconsistent stats: %+v", st)
	}
	if len(b.Alerts()) > st.TotalCameras {
		t.Fatalf("more alerts than cameras")
	}
}
