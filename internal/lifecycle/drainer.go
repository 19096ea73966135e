package lifecycle

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/QuantumLaunch-hq/brandtruth-ai-sub001/internal/logging"
	"github.com/QuantumLaunch-hq/brandtruth-ai-sub001/internal/orchestrator"
	"github.com/QuantumLaunch-hq/brandtruth-ai-sub001/internal/queue"
)

// DrainSummary reports the outcome of one drain pass.
type DrainSummary struct {
	Attempted int
	Started   int
	Requeued  int
	Frozen    int
}

// Drainer converts queued requests into running jobs once the backend is
// reachable, strictly in enqueue order and without double-submitting.
type Drainer struct {
	store  *queue.Store
	client *orchestrator.Client
	logger *slog.Logger
	grace  time.Duration

	// onStarted fires after a queued item is confirmed started, with the
	// backend job id. Used to attach progress streaming.
	onStarted func(job queue.Job, jobID string)

	draining atomic.Bool
	graceWG  sync.WaitGroup
}

// NewDrainer constructs a drainer. grace is how long a started item stays
// visible before removal, so callers can observe the transition.
func NewDrainer(store *queue.Store, client *orchestrator.Client, grace time.Duration, logger *slog.Logger) *Drainer {
	return &Drainer{
		store:  store,
		client: client,
		logger: logging.NewComponentLogger(logger, "drainer"),
		grace:  grace,
	}
}

// OnStarted registers the started hook. Must be called before draining begins.
func (d *Drainer) OnStarted(fn func(job queue.Job, jobID string)) {
	d.onStarted = fn
}

// Draining reports whether a pass is currently active.
func (d *Drainer) Draining() bool {
	return d.draining.Load()
}

// DrainPass runs one sweep of the queue. Only one pass may be active at a
// time; a call that arrives mid-pass returns skipped=true and does nothing.
// Each eligible item is attempted at most once per pass: failures go back to
// queued (or freeze as failed at the retry cap) and wait for the next
// availability tick.
func (d *Drainer) DrainPass(ctx context.Context) (summary DrainSummary, skipped bool, err error) {
	if !d.draining.CompareAndSwap(false, true) {
		return DrainSummary{}, true, nil
	}
	defer d.draining.Store(false)

	attempted := make(map[string]struct{})
	for {
		select {
		case <-ctx.Done():
			return summary, false, ctx.Err()
		default:
		}

		job, nextErr := d.store.NextEligible(ctx, keys(attempted)...)
		if nextErr != nil {
			return summary, false, nextErr
		}
		if job == nil {
			return summary, false, nil
		}
		attempted[job.ID] = struct{}{}
		summary.Attempted++
		d.drainItem(ctx, job, &summary)
	}
}

func (d *Drainer) drainItem(ctx context.Context, job *queue.Job, summary *DrainSummary) {
	// Carry the previous failure reason through the retrying window so a
	// mid-pass observer still sees why the last attempt failed.
	if err := d.store.SetStatus(ctx, job.ID, queue.StatusRetrying, job.LastError); err != nil {
		d.logger.Warn("mark retrying failed", logging.String(logging.FieldQueueID, job.ID), logging.Error(err))
		return
	}

	started, err := d.client.StartJob(ctx, orchestrator.StartRequest{
		URL:          job.URL,
		VariantCount: job.VariantCount,
		Platform:     job.Platform,
		CampaignName: job.CampaignName,
	})
	if err != nil {
		updated, retryErr := d.store.IncrementRetry(ctx, job.ID)
		if retryErr != nil {
			d.logger.Warn("retry accounting failed", logging.String(logging.FieldQueueID, job.ID), logging.Error(retryErr))
			// Put the row back where the next pass can see it rather than
			// leaving it stranded as retrying.
			if setErr := d.store.SetStatus(ctx, job.ID, queue.StatusQueued, err.Error()); setErr != nil {
				d.logger.Warn("requeue after accounting failure", logging.String(logging.FieldQueueID, job.ID), logging.Error(setErr))
			}
			return
		}
		if setErr := d.store.SetStatus(ctx, job.ID, updated.Status, err.Error()); setErr != nil {
			d.logger.Warn("record drain error failed", logging.String(logging.FieldQueueID, job.ID), logging.Error(setErr))
		}
		if updated.Status == queue.StatusFailed {
			summary.Frozen++
			d.logger.Warn("queued request exhausted retries",
				logging.String(logging.FieldQueueID, job.ID),
				logging.Int("retry_count", updated.RetryCount),
				logging.Error(err),
			)
		} else {
			summary.Requeued++
			d.logger.Info("queued request will retry on next pass",
				logging.String(logging.FieldQueueID, job.ID),
				logging.Int("retry_count", updated.RetryCount),
			)
		}
		return
	}

	if err := d.store.SetStatus(ctx, job.ID, queue.StatusStarted, ""); err != nil {
		d.logger.Warn("mark started failed", logging.String(logging.FieldQueueID, job.ID), logging.Error(err))
	}
	summary.Started++
	d.logger.Info("queued request started",
		logging.String(logging.FieldQueueID, job.ID),
		logging.String(logging.FieldWorkflowID, started.JobID),
	)
	if d.onStarted != nil {
		d.onStarted(*job, started.JobID)
	}
	d.scheduleRemoval(ctx, job.ID)
}

// scheduleRemoval removes a started item after the grace delay so callers see
// the queued → started transition before the row disappears.
func (d *Drainer) scheduleRemoval(ctx context.Context, id string) {
	d.graceWG.Add(1)
	go func() {
		defer d.graceWG.Done()
		select {
		case <-time.After(d.grace):
		case <-ctx.Done():
			// Shutdown mid-grace: remove immediately, the start already
			// succeeded and the row is done.
		}
		removeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := d.store.Remove(removeCtx, id); err != nil {
			d.logger.Warn("remove started item failed", logging.String(logging.FieldQueueID, id), logging.Error(err))
		}
	}()
}

// Wait blocks until all pending grace-delay removals have finished.
func (d *Drainer) Wait() {
	d.graceWG.Wait()
}

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for key := range set {
		out = append(out, key)
	}
	return out
}
