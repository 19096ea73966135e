package health

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/QuantumLaunch-hq/brandtruth-ai-sub001/internal/logging"
	"github.com/QuantumLaunch-hq/brandtruth-ai-sub001/internal/orchestrator"
)

// State is the cached verdict of backend reachability. It is process-wide
// and never persisted; every agent start re-verifies.
type State struct {
	Available     bool
	LastCheckedAt time.Time
}

// Monitor probes the orchestrator on a fixed interval and caches the result.
// The monitor is the single writer of the availability state; everything else
// reads snapshots. Each probe that reports available also signals the drain
// channel so queued work is attempted immediately.
type Monitor struct {
	client   *orchestrator.Client
	interval time.Duration
	logger   *slog.Logger

	stateMu sync.Mutex
	state   State

	available chan struct{}

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewMonitor constructs a monitor. The initial state is optimistically
// available so a submission on cold start is attempted directly rather than
// queued before the first probe completes.
func NewMonitor(client *orchestrator.Client, interval time.Duration, logger *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Monitor{
		client:    client,
		interval:  interval,
		logger:    logging.NewComponentLogger(logger, "health"),
		state:     State{Available: true},
		available: make(chan struct{}, 1),
	}
}

// Snapshot returns the current cached state.
func (m *Monitor) Snapshot() State {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	return m.state
}

// Available reports the cached availability verdict.
func (m *Monitor) Available() bool {
	return m.Snapshot().Available
}

// AvailableSignal delivers a tick whenever a probe reports the backend
// available. The channel is buffered with depth one: coalesced ticks are
// fine because a drain pass empties the whole queue.
func (m *Monitor) AvailableSignal() <-chan struct{} {
	return m.available
}

// CheckNow issues one probe and updates the cached state. The probe body is
// authoritative: a reachable backend that reports available=false counts as
// unavailable.
func (m *Monitor) CheckNow(ctx context.Context) bool {
	status, err := m.client.Health(ctx)
	available := err == nil && status.Available

	m.stateMu.Lock()
	previous := m.state.Available
	m.state = State{Available: available, LastCheckedAt: time.Now().UTC()}
	m.stateMu.Unlock()

	switch {
	case err != nil && !errors.Is(err, context.Canceled):
		m.logger.Debug("health probe failed", logging.Error(err))
	case available != previous:
		m.logger.Info("backend availability changed", logging.Bool("available", available))
	}

	if available {
		select {
		case m.available <- struct{}{}:
		default:
		}
	}
	return available
}

// Start begins periodic probing. The first probe runs immediately.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("health monitor already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	go m.run(runCtx)
	return nil
}

// Stop halts probing and waits for the loop to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Monitor) run(ctx context.Context) {
	defer m.wg.Done()

	m.CheckNow(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CheckNow(ctx)
		}
	}
}
