package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "camdash.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	InitConfig(writeConfig(t, "base_url: http://nvr.local:8080/\n"))

	s, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.BaseURL != "http://nvr.local:8080" {
		t.Fatalf("BaseURL = %q", s.BaseURL)
	}
	if s.EventLimit != 20 || s.RequestTimeout != 10*time.Second {
		t.Fatalf("unexpected defaults: %+v", s)
	}
	if s.Reconnect.InitialDelay != time.Second || s.Reconnect.MaxDelay != 30*time.Second || s.Reconnect.NotifyAfter != 5 {
		t.Fatalf("unexpected reconnect defaults: %+v", s.Reconnect)
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("CAMDASH_EVENT_LIMIT", "50")
	t.Setenv("CAMDASH_RECONNECT_MAX_DELAY", "1m")
	InitConfig(writeConfig(t, "base_url: http://nvr.local\nevent_limit: 10\n"))

	s, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.EventLimit != 50 {
		t.Fatalf("EventLimit = %d, want 50", s.EventLimit)
	}
	if s.Reconnect.MaxDelay != time.Minute {
		t.Fatalf("MaxDelay = %s, want 1m", s.Reconnect.MaxDelay)
	}
}

func TestValidateRejectsBadSettings(t *testing.T) {
	good := Settings{
		BaseURL:        "https://nvr.local",
		EventLimit:     20,
		RequestTimeout: time.Second,
		Reconnect:      Reconnect{InitialDelay: time.Second, MaxDelay: time.Minute},
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("good settings rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Settings)
		want   string
	}{
		{"no url", func(s *Settings) { s.BaseURL = "" }, "base_url"},
		{"bad scheme", func(s *Settings) { s.BaseURL = "ftp://nvr" }, "http(s)"},
		{"zero limit", func(s *Settings) { s.EventLimit = 0 }, "event_limit"},
		{"max below initial", func(s *Settings) { s.Reconnect.MaxDelay = time.Millisecond }, "reconnect"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := good
			tt.mutate(&s)
			err := s.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate() = %v, want error mentioning %q", err, tt.want)
			}
		})
	}
}

func TestSaveAndClearSession(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	path := writeConfig(t, "event_limit: 30\n")
	InitConfig(path)

	if err := SaveSession("http://nvr.local/", "tok"); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	viper.Reset()
	InitConfig(path)
	s, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.SessionToken != "tok" || s.BaseURL != "http://nvr.local" || s.EventLimit != 30 {
		t.Fatalf("unexpected settings after save: %+v", s)
	}

	if err := ClearSession(); err != nil {
		t.Fatalf("ClearSession: %v", err)
	}
	viper.Reset()
	InitConfig(path)
	if got := viper.GetString("session_token"); got != "" {
		t.Fatalf("session_token = %q after ClearSession", got)
	}
}
