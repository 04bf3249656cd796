package cmd

import (
	"net/http/httptest"
	"testing"
	"time"

	"camdash/internal/config"
	"camdash/internal/demo"
)

func TestWatchStopRightAfterStartShutsDownMetrics(t *testing.T) {
	st := demo.NewStack([]byte("test-secret"), time.Second)
	srv := httptest.NewServer(st.Server)
	t.Cleanup(func() {
		st.Hub.Close()
		srv.Close()
	})

	p := &program{settings: config.Settings{
		BaseURL:        srv.URL,
		RequestTimeout: time.Second,
		MetricsPort:    "0",
	}}
	if err := p.Start(nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	if p.server == nil || len(p.unsubs) == 0 {
		t.Fatalf("Start returned before the server and subscriptions were set up")
	}
	if err := p.Stop(nil); err != nil {
		t.Fatalf("stop: %v", err)
	}

	select {
	case <-p.done:
	case <-time.After(5 * time.Second):
		t.Fatalf("metrics server still running after Stop")
	}
}
