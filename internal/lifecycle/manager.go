package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/QuantumLaunch-hq/brandtruth-ai-sub001/internal/config"
	"github.com/QuantumLaunch-hq/brandtruth-ai-sub001/internal/health"
	"github.com/QuantumLaunch-hq/brandtruth-ai-sub001/internal/logging"
	"github.com/QuantumLaunch-hq/brandtruth-ai-sub001/internal/orchestrator"
	"github.com/QuantumLaunch-hq/brandtruth-ai-sub001/internal/queue"
)

// Manager wires the starter and drainer to the health monitor's availability
// signal. Every tick that reports the backend available triggers a drain
// pass; the drainer's reentrancy guard makes overlapping ticks a no-op.
type Manager struct {
	cfg     *config.Config
	store   *queue.Store
	monitor *health.Monitor
	starter *Starter
	drainer *Drainer
	logger  *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager constructs the lifecycle manager.
func NewManager(cfg *config.Config, store *queue.Store, client *orchestrator.Client, monitor *health.Monitor, logger *slog.Logger) *Manager {
	m := &Manager{
		cfg:     cfg,
		store:   store,
		monitor: monitor,
		logger:  logging.NewComponentLogger(logger, "lifecycle"),
	}
	m.starter = NewStarter(store, client, func(ctx context.Context) bool {
		return monitor.CheckNow(ctx)
	}, logger)
	m.drainer = NewDrainer(store, client, cfg.StartedGrace(), logger)
	return m
}

// Drainer exposes the drainer for hook registration and direct passes.
func (m *Manager) Drainer() *Drainer { return m.drainer }

// StartWorkflow is the caller-facing entry point for starting a job.
func (m *Manager) StartWorkflow(ctx context.Context, req orchestrator.StartRequest) (Outcome, error) {
	return m.starter.Start(ctx, req)
}

// Start begins reacting to availability ticks.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("lifecycle manager already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	go m.run(runCtx)
	return nil
}

// Stop halts drain scheduling and waits for in-flight work, including
// pending grace-delay removals.
func (m *Manager) Stop() {
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
	m.drainer.Wait()
}

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.monitor.AvailableSignal():
			summary, skipped, err := m.drainer.DrainPass(ctx)
			switch {
			case err != nil && !errors.Is(err, context.Canceled):
				m.logger.Error("drain pass failed", logging.Error(err))
			case skipped:
				// A pass was already running; the availability flag is
				// still updated by the monitor.
			case summary.Attempted > 0:
				m.logger.Info("drain pass finished",
					logging.Int("attempted", summary.Attempted),
					logging.Int("started", summary.Started),
					logging.Int("requeued", summary.Requeued),
					logging.Int("frozen", summary.Frozen),
				)
			}
		}
	}
}
