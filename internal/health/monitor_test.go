package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/QuantumLaunch-hq/brandtruth-ai-sub001/internal/logging"
	"github.com/QuantumLaunch-hq/brandtruth-ai-sub001/internal/orchestrator"
)

func newMonitorAgainst(t *testing.T, handler http.Handler, interval time.Duration) *Monitor {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := orchestrator.NewClient(server.URL, 2*time.Second)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return NewMonitor(client, interval, logging.NewNop())
}

func TestMonitorStartsOptimistic(t *testing.T) {
	monitor := newMonitorAgainst(t, http.NotFoundHandler(), time.Minute)

	if !monitor.Available() {
		t.Fatal("expected optimistic initial availability")
	}
	if !monitor.Snapshot().LastCheckedAt.IsZero() {
		t.Fatal("expected no probe to have run yet")
	}
}

func TestCheckNowBodyFlagIsAuthoritative(t *testing.T) {
	var available atomic.Bool
	monitor := newMonitorAgainst(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if available.Load() {
			w.Write([]byte(`{"available": true}`))
		} else {
			// Reachable but degraded: 200 with available=false.
			w.Write([]byte(`{"available": false, "message": "warming up"}`))
		}
	}), time.Minute)

	if monitor.CheckNow(context.Background()) {
		t.Fatal("degraded backend must count as unavailable")
	}
	if monitor.Available() {
		t.Fatal("cached state should reflect the probe")
	}
	if monitor.Snapshot().LastCheckedAt.IsZero() {
		t.Fatal("probe must stamp LastCheckedAt")
	}

	available.Store(true)
	if !monitor.CheckNow(context.Background()) {
		t.Fatal("expected availability after backend recovered")
	}
}

func TestCheckNowProbeFailureMarksUnavailable(t *testing.T) {
	client, err := orchestrator.NewClient("http://127.0.0.1:1", time.Second)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	monitor := NewMonitor(client, time.Minute, logging.NewNop())

	if monitor.CheckNow(context.Background()) {
		t.Fatal("unreachable backend must be unavailable")
	}
	if monitor.Available() {
		t.Fatal("cached state should be unavailable")
	}
}

func TestAvailableProbesSignalDrainChannel(t *testing.T) {
	monitor := newMonitorAgainst(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"available": true}`))
	}), time.Minute)

	monitor.CheckNow(context.Background())

	select {
	case <-monitor.AvailableSignal():
	default:
		t.Fatal("expected a pending availability tick")
	}

	// Ticks coalesce; two back-to-back probes leave at most one pending.
	monitor.CheckNow(context.Background())
	monitor.CheckNow(context.Background())
	select {
	case <-monitor.AvailableSignal():
	default:
		t.Fatal("expected a pending availability tick")
	}
	select {
	case <-monitor.AvailableSignal():
		t.Fatal("ticks must coalesce to one")
	default:
	}
}

func TestUnavailableProbeDoesNotSignal(t *testing.T) {
	monitor := newMonitorAgainst(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}), time.Minute)

	monitor.CheckNow(context.Background())

	select {
	case <-monitor.AvailableSignal():
		t.Fatal("unavailable probe must not signal")
	default:
	}
}

func TestMonitorStartProbesImmediately(t *testing.T) {
	var probes atomic.Int32
	monitor := newMonitorAgainst(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		probes.Add(1)
		w.Write([]byte(`{"available": true}`))
	}), time.Hour)

	if err := monitor.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := monitor.Start(context.Background()); err == nil {
		t.Fatal("expected error for double start")
	}

	deadline := time.After(2 * time.Second)
	for probes.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("first probe did not run")
		case <-time.After(10 * time.Millisecond):
		}
	}
	monitor.Stop()
	monitor.Stop() // idempotent

	if got := probes.Load(); got != 1 {
		t.Fatalf("expected exactly the immediate probe, got %d", got)
	}
}
