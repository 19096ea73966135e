package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/QuantumLaunch-hq/brandtruth-ai-sub001/internal/logging"
	"github.com/QuantumLaunch-hq/brandtruth-ai-sub001/internal/orchestrator"
)

// ErrDisconnected reports that reconnection attempts were exhausted. The job
// may still be running server-side; this is a transport verdict, not a job
// failure.
var ErrDisconnected = errors.New("progress stream disconnected")

// ErrStreamTimeout reports a server-signaled timeout event.
var ErrStreamTimeout = errors.New("progress stream timed out")

// ApplicationError carries a structured error payload delivered on the push
// channel. It describes a failure of the job itself, so no reconnection is
// attempted.
type ApplicationError struct {
	Snapshot orchestrator.Snapshot
}

func (e *ApplicationError) Error() string {
	if e.Snapshot.Error != "" {
		return e.Snapshot.Error
	}
	return "workflow failed"
}

// Callbacks receive streaming updates. Nil callbacks are skipped.
type Callbacks struct {
	OnProgress func(orchestrator.Snapshot)
	OnComplete func(orchestrator.Snapshot)
	OnError    func(error)
}

// Streamer owns at most one push-channel subscription at a time and delivers
// typed lifecycle events for a running workflow. Progress is not persisted:
// a new process must re-subscribe and history is not replayed.
type Streamer struct {
	client        *orchestrator.Client
	maxReconnects int
	delayStep     time.Duration
	logger        *slog.Logger

	mu           sync.Mutex
	workflowID   string
	cancel       context.CancelFunc
	done         chan struct{}
	snapshot     orchestrator.Snapshot
	haveSnapshot bool
	terminal     bool
}

// NewStreamer constructs a streamer with bounded linear reconnect backoff
// (attempt number times delayStep).
func NewStreamer(client *orchestrator.Client, maxReconnects int, delayStep time.Duration, logger *slog.Logger) *Streamer {
	if maxReconnects < 0 {
		maxReconnects = 0
	}
	if delayStep <= 0 {
		delayStep = time.Second
	}
	return &Streamer{
		client:        client,
		maxReconnects: maxReconnects,
		delayStep:     delayStep,
		logger:        logging.NewComponentLogger(logger, "progress"),
	}
}

// Snapshot returns the latest observed progress and whether one exists.
func (s *Streamer) Snapshot() (orchestrator.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot, s.haveSnapshot
}

// Start opens a subscription for workflowID, tearing down any prior
// subscription first. Callbacks are invoked from the streaming goroutine
// until a terminal event arrives or Stop is called.
func (s *Streamer) Start(ctx context.Context, workflowID string, cb Callbacks) error {
	if workflowID == "" {
		return errors.New("workflow id required")
	}

	s.Stop()

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	s.mu.Lock()
	s.workflowID = workflowID
	s.cancel = cancel
	s.done = done
	s.snapshot = orchestrator.Snapshot{}
	s.haveSnapshot = false
	s.terminal = false
	s.mu.Unlock()

	go s.run(runCtx, workflowID, cb, done)
	return nil
}

// Stop closes the subscription if open and clears bookkeeping, including any
// pending reconnect delay. Safe to call repeatedly and from teardown paths.
func (s *Streamer) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.done = nil
	s.workflowID = ""
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Streamer) run(ctx context.Context, workflowID string, cb Callbacks, done chan struct{}) {
	defer close(done)

	attempt := 0
	for {
		received := false
		err := s.client.StreamEvents(ctx, workflowID, func(event orchestrator.StreamEvent) error {
			received = true
			return s.handleEvent(workflowID, event, cb)
		})

		switch {
		case err == nil:
			// Handler stopped the stream after a terminal event.
			return
		case errors.Is(err, context.Canceled):
			return
		case errors.Is(err, orchestrator.ErrStreamClosed), orchestrator.IsUnavailable(err):
			// Transport drop without a structured payload: transient.
		default:
			s.emitError(cb, err)
			return
		}

		if s.isTerminal() {
			return
		}
		if received {
			attempt = 0
		}
		attempt++
		if attempt > s.maxReconnects {
			s.logger.Warn("progress stream reconnects exhausted",
				logging.String(logging.FieldWorkflowID, workflowID),
				logging.Int("attempts", s.maxReconnects),
			)
			s.emitError(cb, fmt.Errorf("%w: gave up after %d attempts", ErrDisconnected, s.maxReconnects))
			return
		}

		delay := time.Duration(attempt) * s.delayStep
		s.logger.Debug("progress stream reconnecting",
			logging.String(logging.FieldWorkflowID, workflowID),
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay),
		)
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

func (s *Streamer) handleEvent(workflowID string, event orchestrator.StreamEvent, cb Callbacks) error {
	if s.isTerminal() {
		// The subscription is logically finished; late events are dropped.
		return orchestrator.ErrStopStream
	}

	switch event.Name {
	case orchestrator.EventProgress:
		snapshot, err := s.decode(workflowID, event.Data)
		if err != nil {
			s.logger.Warn("malformed progress event", logging.Error(err))
			return nil
		}
		terminal := snapshot.Stage.Terminal()
		s.store(snapshot, terminal)
		if cb.OnProgress != nil {
			cb.OnProgress(snapshot)
		}
		if terminal {
			return orchestrator.ErrStopStream
		}
		return nil

	case orchestrator.EventComplete:
		snapshot, err := s.decode(workflowID, event.Data)
		if err != nil {
			s.logger.Warn("malformed complete event", logging.Error(err))
			snapshot = orchestrator.Snapshot{JobID: workflowID, Stage: orchestrator.StageCompleted, ProgressPercent: 100}
		}
		s.store(snapshot, true)
		if cb.OnComplete != nil {
			cb.OnComplete(snapshot)
		}
		return orchestrator.ErrStopStream

	case orchestrator.EventError:
		snapshot, err := s.decode(workflowID, event.Data)
		if err != nil {
			snapshot = orchestrator.Snapshot{JobID: workflowID, Stage: orchestrator.StageFailed}
		}
		if snapshot.Stage == "" {
			snapshot.Stage = orchestrator.StageFailed
		}
		s.store(snapshot, true)
		s.emitError(cb, &ApplicationError{Snapshot: snapshot})
		return orchestrator.ErrStopStream

	case orchestrator.EventTimeout:
		s.markTerminal()
		s.emitError(cb, ErrStreamTimeout)
		return orchestrator.ErrStopStream

	default:
		return nil
	}
}

func (s *Streamer) decode(workflowID string, data []byte) (orchestrator.Snapshot, error) {
	var snapshot orchestrator.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return orchestrator.Snapshot{}, err
	}
	if snapshot.JobID == "" {
		snapshot.JobID = workflowID
	}
	return snapshot, nil
}

// store replaces the snapshot in full; events are never merged field by field.
func (s *Streamer) store(snapshot orchestrator.Snapshot, terminal bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snapshot
	s.haveSnapshot = true
	if terminal {
		s.terminal = true
	}
}

func (s *Streamer) markTerminal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terminal = true
}

func (s *Streamer) isTerminal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminal
}

func (s *Streamer) emitError(cb Callbacks, err error) {
	if cb.OnError != nil {
		cb.OnError(err)
	}
}
