package dashboard

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestStart_EphemeralPortAndShutdown(t *testing.T) {
	_, st := newTestRouter(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	port, err := Start(ctx, Opts{Store: st, Port: 0})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if port == 0 {
		t.Fatal("port = 0, want a bound port")
	}

	url := fmt.Sprintf("http://localhost:%d/healthz", port)
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	cancel()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := http.Get(url); err != nil {
			return // server is down
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Error("server still serving after context cancellation")
}

func TestStart_RequiresStore(t *testing.T) {
	if _, err := Start(context.Background(), Opts{}); err == nil {
		t.Fatal("expected error without store")
	}
}

func TestStart_RejectsNegativePort(t *testing.T) {
	_, st := newTestRouter(t)
	if _, err := Start(context.Background(), Opts{Store: st, Port: -1}); err == nil {
		t.Fatal("expected error for negative port")
	}
}
