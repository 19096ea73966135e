package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
	APIBind string `toml:"api_bind"`
}

// Orchestrator contains connection settings for the pipeline backend.
type Orchestrator struct {
	BaseURL        string `toml:"base_url"`
	RequestTimeout int    `toml:"request_timeout"`
	UserID         string `toml:"user_id"`
}

// Health contains configuration for backend availability probing.
type Health struct {
	CheckInterval int `toml:"check_interval"`
}

// Queue contains configuration for the durable start-request queue.
type Queue struct {
	MaxRetries   int `toml:"max_retries"`
	StartedGrace int `toml:"started_grace"`
}

// Stream contains configuration for progress stream reconnection.
type Stream struct {
	ReconnectAttempts  int `toml:"reconnect_attempts"`
	ReconnectDelayStep int `toml:"reconnect_delay_step"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config is the root agent configuration.
type Config struct {
	Paths        Paths        `toml:"paths"`
	Orchestrator Orchestrator `toml:"orchestrator"`
	Health       Health       `toml:"health"`
	Queue        Queue        `toml:"queue"`
	Stream       Stream       `toml:"stream"`
	Logging      Logging      `toml:"logging"`
}

// DefaultConfigPath returns the canonical config file location.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "brandtruth", "config.toml"), nil
}

// Load reads configuration from path, falling back to the default location
// when path is empty. A missing file yields defaults rather than an error so
// first-run commands work before `config init`.
func Load(path string) (*Config, string, error) {
	resolved := strings.TrimSpace(path)
	if resolved == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return nil, "", err
		}
		resolved = defaultPath
	}
	expanded, err := ExpandPath(resolved)
	if err != nil {
		return nil, "", err
	}

	cfg := Default()
	data, err := os.ReadFile(expanded)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, expanded, fmt.Errorf("parse config %s: %w", expanded, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// Defaults apply.
	default:
		return nil, expanded, fmt.Errorf("read config %s: %w", expanded, err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, expanded, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, expanded, err
	}
	return &cfg, expanded, nil
}

// WriteSample writes the embedded sample configuration to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := ExpandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// EnsureDirectories creates the data and log directories if missing.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// QueueDBPath returns the SQLite database location for the durable queue.
func (c *Config) QueueDBPath() string {
	return filepath.Join(c.Paths.DataDir, "queue.db")
}

// LockFilePath returns the agent single-instance lock file location.
func (c *Config) LockFilePath() string {
	return filepath.Join(c.Paths.DataDir, "agent.lock")
}

// RequestTimeout returns the orchestrator request timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Orchestrator.RequestTimeout) * time.Second
}

// HealthCheckInterval returns the probe interval as a duration.
func (c *Config) HealthCheckInterval() time.Duration {
	return time.Duration(c.Health.CheckInterval) * time.Second
}

// StartedGrace returns the delay between marking a queue item started and
// removing it.
func (c *Config) StartedGrace() time.Duration {
	return time.Duration(c.Queue.StartedGrace) * time.Second
}

// ReconnectDelayStep returns the linear backoff step between stream
// reconnection attempts.
func (c *Config) ReconnectDelayStep() time.Duration {
	return time.Duration(c.Stream.ReconnectDelayStep) * time.Second
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = ExpandPath(c.Paths.DataDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = ExpandPath(c.Paths.LogDir); err != nil {
		return err
	}
	c.Orchestrator.BaseURL = strings.TrimRight(strings.TrimSpace(c.Orchestrator.BaseURL), "/")
	return nil
}

// ExpandPath resolves a leading ~ against the current user's home directory.
func ExpandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" || !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:]), nil
	}
	return "", fmt.Errorf("unsupported home-relative path %q", path)
}
