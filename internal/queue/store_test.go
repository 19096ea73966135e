package queue_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/QuantumLaunch-hq/brandtruth-ai-sub001/internal/queue"
	"github.com/QuantumLaunch-hq/brandtruth-ai-sub001/internal/testsupport"
)

func TestEnqueueAssignsIDAndDefaults(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job, err := store.Enqueue(ctx, queue.Request{URL: "https://a.com", VariantCount: 5, Platform: "meta"})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if job.ID == "" {
		t.Fatal("expected generated id")
	}
	if job.Status != queue.StatusQueued {
		t.Fatalf("expected status queued, got %s", job.Status)
	}
	if job.RetryCount != 0 {
		t.Fatalf("expected retry count 0, got %d", job.RetryCount)
	}
	if job.QueuedAt.IsZero() {
		t.Fatal("expected queued_at to be set")
	}

	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil || fetched.URL != "https://a.com" || fetched.VariantCount != 5 {
		t.Fatalf("unexpected fetched job: %#v", fetched)
	}
}

func TestEnqueueValidatesRequest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	cases := []struct {
		name string
		req  queue.Request
	}{
		{"missing url", queue.Request{VariantCount: 1, Platform: "meta"}},
		{"zero variants", queue.Request{URL: "https://a.com", Platform: "meta"}},
		{"missing platform", queue.Request{URL: "https://a.com", VariantCount: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := store.Enqueue(ctx, tc.req); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestNextEligibleReturnsInsertionOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	var ids []string
	for i := 0; i < 4; i++ {
		job := testsupport.Enqueue(t, store, fmt.Sprintf("https://site-%d.com", i), "meta", 2)
		ids = append(ids, job.ID)
	}

	for _, want := range ids {
		job, err := store.NextEligible(ctx)
		if err != nil {
			t.Fatalf("NextEligible failed: %v", err)
		}
		if job == nil || job.ID != want {
			t.Fatalf("expected %s next, got %#v", want, job)
		}
		// NextEligible never dequeues; removal is explicit.
		if _, err := store.Remove(ctx, job.ID); err != nil {
			t.Fatalf("Remove failed: %v", err)
		}
	}

	job, err := store.NextEligible(ctx)
	if err != nil {
		t.Fatalf("NextEligible failed: %v", err)
	}
	if job != nil {
		t.Fatalf("expected empty queue, got %#v", job)
	}
}

func TestNextEligibleSkipsExcludedAndIneligible(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first := testsupport.Enqueue(t, store, "https://first.com", "meta", 1)
	second := testsupport.Enqueue(t, store, "https://second.com", "tiktok", 1)

	job, err := store.NextEligible(ctx, first.ID)
	if err != nil {
		t.Fatalf("NextEligible failed: %v", err)
	}
	if job == nil || job.ID != second.ID {
		t.Fatalf("expected second item, got %#v", job)
	}

	if err := store.SetStatus(ctx, second.ID, queue.StatusFailed, "boom"); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	job, err = store.NextEligible(ctx, first.ID)
	if err != nil {
		t.Fatalf("NextEligible failed: %v", err)
	}
	if job != nil {
		t.Fatalf("expected no eligible item, got %#v", job)
	}
}

func TestIncrementRetryFreezesAtCap(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.Enqueue(t, store, "https://a.com", "meta", 5)

	for attempt := 1; attempt <= store.MaxRetries(); attempt++ {
		updated, err := store.IncrementRetry(ctx, job.ID)
		if err != nil {
			t.Fatalf("IncrementRetry failed: %v", err)
		}
		if updated.RetryCount != attempt {
			t.Fatalf("expected retry count %d, got %d", attempt, updated.RetryCount)
		}
		wantStatus := queue.StatusQueued
		if attempt == store.MaxRetries() {
			wantStatus = queue.StatusFailed
		}
		if updated.Status != wantStatus {
			t.Fatalf("attempt %d: expected status %s, got %s", attempt, wantStatus, updated.Status)
		}
	}

	// Frozen items are no longer eligible.
	eligible, err := store.NextEligible(ctx)
	if err != nil {
		t.Fatalf("NextEligible failed: %v", err)
	}
	if eligible != nil {
		t.Fatalf("expected frozen item to be skipped, got %#v", eligible)
	}
}

func TestSetStatusRecordsErrorWithoutTouchingRetries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.Enqueue(t, store, "https://a.com", "meta", 1)

	if err := store.SetStatus(ctx, job.ID, queue.StatusRetrying, "connection refused"); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	updated, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if updated.Status != queue.StatusRetrying {
		t.Fatalf("expected status retrying, got %s", updated.Status)
	}
	if updated.LastError != "connection refused" {
		t.Fatalf("expected last error recorded, got %q", updated.LastError)
	}
	if updated.RetryCount != 0 {
		t.Fatalf("SetStatus must not change retry count, got %d", updated.RetryCount)
	}

	if err := store.SetStatus(ctx, job.ID, queue.Status("bogus"), ""); err == nil {
		t.Fatal("expected error for unknown status")
	}
	if err := store.SetStatus(ctx, "missing", queue.StatusQueued, ""); err != queue.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRetryFailedResetsAccounting(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.Enqueue(t, store, "https://a.com", "meta", 1)
	for i := 0; i < store.MaxRetries(); i++ {
		if _, err := store.IncrementRetry(ctx, job.ID); err != nil {
			t.Fatalf("IncrementRetry failed: %v", err)
		}
	}

	reset, err := store.RetryFailed(ctx)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if reset != 1 {
		t.Fatalf("expected 1 reset, got %d", reset)
	}

	updated, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if updated.Status != queue.StatusQueued || updated.RetryCount != 0 || updated.LastError != "" {
		t.Fatalf("expected clean queued item, got %#v", updated)
	}
}

func TestClearAndClearFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	keep := testsupport.Enqueue(t, store, "https://keep.com", "meta", 1)
	frozen := testsupport.Enqueue(t, store, "https://frozen.com", "tiktok", 1)
	if err := store.SetStatus(ctx, frozen.ID, queue.StatusFailed, "exhausted"); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}

	removed, err := store.ClearFailed(ctx)
	if err != nil {
		t.Fatalf("ClearFailed failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	remaining, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != keep.ID {
		t.Fatalf("unexpected remaining items: %#v", remaining)
	}

	removed, err = store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
}

func TestHealthAggregatesCounts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.Enqueue(t, store, "https://one.com", "meta", 1)
	second := testsupport.Enqueue(t, store, "https://two.com", "meta", 1)
	if err := store.SetStatus(ctx, second.ID, queue.StatusFailed, "nope"); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if health.Total != 2 || health.Queued != 1 || health.Failed != 1 {
		t.Fatalf("unexpected health summary: %#v", health)
	}
}

func TestRecoverStuckRepairsInterruptedRows(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	ctx := context.Background()

	interrupted := testsupport.Enqueue(t, store, "https://interrupted.com", "meta", 1)
	if _, err := store.IncrementRetry(ctx, interrupted.ID); err != nil {
		t.Fatalf("IncrementRetry failed: %v", err)
	}
	if err := store.SetStatus(ctx, interrupted.ID, queue.StatusRetrying, "connection reset"); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}

	orphaned := testsupport.Enqueue(t, store, "https://orphaned.com", "meta", 1)
	if err := store.SetStatus(ctx, orphaned.ID, queue.StatusStarted, ""); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	untouched := testsupport.Enqueue(t, store, "https://untouched.com", "meta", 1)

	// Process dies mid-drain; the rows stay behind in their in-flight states.
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	reopened := testsupport.MustOpenStore(t, cfg)

	// Without recovery, neither draining nor manual retry sees the row.
	job, err := reopened.NextEligible(ctx)
	if err != nil {
		t.Fatalf("NextEligible failed: %v", err)
	}
	if job == nil || job.ID != untouched.ID {
		t.Fatalf("expected only the untouched item to be eligible, got %#v", job)
	}

	requeued, removed, err := reopened.RecoverStuck(ctx)
	if err != nil {
		t.Fatalf("RecoverStuck failed: %v", err)
	}
	if requeued != 1 || removed != 1 {
		t.Fatalf("expected 1 requeued and 1 removed, got %d/%d", requeued, removed)
	}

	recovered, err := reopened.GetByID(ctx, interrupted.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if recovered.Status != queue.StatusQueued {
		t.Fatalf("expected interrupted item requeued, got %s", recovered.Status)
	}
	if recovered.RetryCount != 1 {
		t.Fatalf("retry accounting must survive recovery, got %d", recovered.RetryCount)
	}

	gone, err := reopened.GetByID(ctx, orphaned.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if gone != nil {
		t.Fatalf("started row must be removed on recovery, got %#v", gone)
	}

	job, err = reopened.NextEligible(ctx)
	if err != nil {
		t.Fatalf("NextEligible failed: %v", err)
	}
	if job == nil || job.ID != interrupted.ID {
		t.Fatalf("recovered item must drain first, got %#v", job)
	}
}

func TestQueueSurvivesReopen(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	job, err := store.Enqueue(context.Background(), queue.Request{URL: "https://a.com", VariantCount: 2, Platform: "meta"})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened := testsupport.MustOpenStore(t, cfg)
	fetched, err := reopened.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil || fetched.Status != queue.StatusQueued {
		t.Fatalf("expected persisted queued item, got %#v", fetched)
	}
}
