package testsupport

import (
	"path/filepath"
	"testing"

	"github.com/QuantumLaunch-hq/brandtruth-ai-sub001/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// WithBaseURL points the configuration at a test orchestrator.
func WithBaseURL(baseURL string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Orchestrator.BaseURL = baseURL
	}
}

// WithMaxRetries overrides the queue retry cap.
func WithMaxRetries(max int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Queue.MaxRetries = max
	}
}

// NewConfig produces a config seeded with unique temp directories per test
// and timings short enough for test runs.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Queue.StartedGrace = 0

	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	return &cfg
}
