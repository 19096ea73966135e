package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/gofrs/flock"

	"github.com/QuantumLaunch-hq/brandtruth-ai-sub001/internal/config"
	"github.com/QuantumLaunch-hq/brandtruth-ai-sub001/internal/health"
	"github.com/QuantumLaunch-hq/brandtruth-ai-sub001/internal/lifecycle"
	"github.com/QuantumLaunch-hq/brandtruth-ai-sub001/internal/logging"
	"github.com/QuantumLaunch-hq/brandtruth-ai-sub001/internal/orchestrator"
	"github.com/QuantumLaunch-hq/brandtruth-ai-sub001/internal/progress"
	"github.com/QuantumLaunch-hq/brandtruth-ai-sub001/internal/queue"
)

// ErrAlreadyRunning indicates another agent process holds the lock file.
var ErrAlreadyRunning = errors.New("another agent instance is already running")

// Agent is the long-running lifecycle process: it owns the queue store, the
// health monitor, the drain manager, and the local status API.
type Agent struct {
	cfg      *config.Config
	store    *queue.Store
	client   *orchestrator.Client
	monitor  *health.Monitor
	manager  *lifecycle.Manager
	streamer *progress.Streamer
	logger   *slog.Logger

	lock *flock.Flock
	api  *apiServer
}

// New wires an agent from configuration. The caller owns the store and must
// close it after Stop.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger) (*Agent, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	client, err := orchestrator.NewClient(cfg.Orchestrator.BaseURL, cfg.RequestTimeout())
	if err != nil {
		return nil, err
	}

	monitor := health.NewMonitor(client, cfg.HealthCheckInterval(), logger)
	manager := lifecycle.NewManager(cfg, store, client, monitor, logger)

	a := &Agent{
		cfg:      cfg,
		store:    store,
		client:   client,
		monitor:  monitor,
		manager:  manager,
		streamer: progress.NewStreamer(client, cfg.Stream.ReconnectAttempts, cfg.ReconnectDelayStep(), logger),
		logger:   logging.NewComponentLogger(logger, "agent"),
		lock:     flock.New(cfg.LockFilePath()),
	}
	a.api = newAPIServer(cfg.Paths.APIBind, a, logger)
	return a, nil
}

// Manager exposes the lifecycle manager, e.g. for CLI-driven starts while
// the agent runs in-process.
func (a *Agent) Manager() *lifecycle.Manager { return a.manager }

// Start acquires the single-instance lock and launches the monitor, the
// drain manager, and the status API.
func (a *Agent) Start(ctx context.Context) error {
	locked, err := a.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire agent lock: %w", err)
	}
	if !locked {
		return ErrAlreadyRunning
	}

	// A crash mid-drain leaves rows behind as retrying or started; neither
	// state is eligible for draining, so repair them before the first pass.
	requeued, removed, err := a.store.RecoverStuck(ctx)
	if err != nil {
		return fmt.Errorf("recover interrupted queue items: %w", err)
	}
	if requeued > 0 || removed > 0 {
		a.logger.Info("recovered interrupted queue items",
			logging.Int64("requeued", requeued),
			logging.Int64("removed", removed),
		)
	}

	// Jobs started out of the queue have no CLI session watching them; the
	// agent attaches its own subscription. One subscription at a time: a
	// later queue start replaces the previous watch.
	a.manager.Drainer().OnStarted(func(job queue.Job, jobID string) {
		if err := a.streamer.Start(ctx, jobID, a.streamCallbacks()); err != nil {
			a.logger.Warn("attach progress stream",
				logging.String(logging.FieldWorkflowID, jobID),
				logging.Error(err),
			)
		}
	})

	if err := a.monitor.Start(ctx); err != nil {
		return err
	}
	if err := a.manager.Start(ctx); err != nil {
		a.monitor.Stop()
		return err
	}
	if err := a.api.start(ctx); err != nil {
		a.manager.Stop()
		a.monitor.Stop()
		return err
	}

	a.logger.Info("agent started",
		logging.Int("pid", os.Getpid()),
		logging.String("queue_db", a.store.Path()),
		logging.String("orchestrator", a.cfg.Orchestrator.BaseURL),
	)
	return nil
}

func (a *Agent) streamCallbacks() progress.Callbacks {
	return progress.Callbacks{
		OnProgress: func(snapshot orchestrator.Snapshot) {
			a.logger.Info("workflow progress",
				logging.String(logging.FieldWorkflowID, snapshot.JobID),
				logging.String(logging.FieldStage, string(snapshot.Stage)),
				logging.Float64("percent", snapshot.ProgressPercent),
			)
		},
		OnComplete: func(snapshot orchestrator.Snapshot) {
			a.logger.Info("workflow complete",
				logging.String(logging.FieldWorkflowID, snapshot.JobID),
			)
		},
		OnError: func(err error) {
			a.logger.Warn("workflow stream ended", logging.Error(err))
		},
	}
}

// Stop shuts everything down in reverse start order and releases the lock.
func (a *Agent) Stop() {
	a.api.stop()
	a.manager.Stop()
	a.streamer.Stop()
	a.monitor.Stop()
	if err := a.lock.Unlock(); err != nil && !errors.Is(err, os.ErrNotExist) {
		a.logger.Warn("release agent lock", logging.Error(err))
	}
	a.logger.Info("agent stopped")
}
