package lifecycle

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/QuantumLaunch-hq/brandtruth-ai-sub001/internal/logging"
	"github.com/QuantumLaunch-hq/brandtruth-ai-sub001/internal/orchestrator"
	"github.com/QuantumLaunch-hq/brandtruth-ai-sub001/internal/queue"
)

// Outcome reports how a start request was handled. Exactly one of JobID and
// QueueID is set: JobID is a backend-issued id for a running job, QueueID
// identifies a pending request awaiting drain and must not be treated as a
// job id.
type Outcome struct {
	JobID   string
	QueueID string
}

// Queued reports whether the request was deferred to the durable queue.
func (o Outcome) Queued() bool { return o.QueueID != "" }

// AvailabilityFunc answers whether the backend can accept work right now.
type AvailabilityFunc func(ctx context.Context) bool

// Starter is the single entry point for "start this job".
type Starter struct {
	store        *queue.Store
	client       *orchestrator.Client
	availability AvailabilityFunc
	logger       *slog.Logger
}

// NewStarter constructs a starter. availability is consulted before every
// direct submission; when nil the starter always attempts submission.
func NewStarter(store *queue.Store, client *orchestrator.Client, availability AvailabilityFunc, logger *slog.Logger) *Starter {
	return &Starter{
		store:        store,
		client:       client,
		availability: availability,
		logger:       logging.NewComponentLogger(logger, "starter"),
	}
}

// Start submits a job directly when the backend is available, and enqueues
// the request otherwise. Connectivity failures during submission also fall
// back to the queue — the availability check may have gone stale mid-request.
// Application-level rejections propagate without queueing: the queue exists
// for availability problems, never validity problems.
func (s *Starter) Start(ctx context.Context, req orchestrator.StartRequest) (Outcome, error) {
	if s.availability != nil && !s.availability(ctx) {
		return s.enqueue(ctx, req, "backend unavailable")
	}

	started, err := s.client.StartJob(ctx, req)
	switch {
	case err == nil:
		s.logger.Info("workflow started",
			logging.String(logging.FieldWorkflowID, started.JobID),
			logging.String("platform", req.Platform),
		)
		return Outcome{JobID: started.JobID}, nil
	case orchestrator.IsUnavailable(err):
		return s.enqueue(ctx, req, err.Error())
	default:
		return Outcome{}, err
	}
}

func (s *Starter) enqueue(ctx context.Context, req orchestrator.StartRequest, reason string) (Outcome, error) {
	job, err := s.store.Enqueue(ctx, queue.Request{
		URL:          req.URL,
		VariantCount: req.VariantCount,
		Platform:     req.Platform,
		CampaignName: req.CampaignName,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("enqueue start request: %w", err)
	}
	s.logger.Info("start request queued for retry",
		logging.String(logging.FieldQueueID, job.ID),
		logging.String("reason", reason),
	)
	return Outcome{QueueID: job.ID}, nil
}
