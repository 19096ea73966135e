package testsupport

import (
	"context"
	"testing"

	"github.com/QuantumLaunch-hq/brandtruth-ai-sub001/internal/config"
	"github.com/QuantumLaunch-hq/brandtruth-ai-sub001/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// Enqueue inserts a start request for tests using the provided store.
func Enqueue(t testing.TB, store *queue.Store, url, platform string, variants int) *queue.Job {
	t.Helper()

	job, err := store.Enqueue(context.Background(), queue.Request{
		URL:          url,
		VariantCount: variants,
		Platform:     platform,
	})
	if err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	return job
}
