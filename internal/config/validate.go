package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateOrchestrator(); err != nil {
		return err
	}
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateIntervals(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateOrchestrator() error {
	base := strings.TrimSpace(c.Orchestrator.BaseURL)
	if base == "" {
		return errors.New("orchestrator.base_url must be set")
	}
	parsed, err := url.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("orchestrator.base_url %q is not a valid URL", base)
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	return nil
}

func (c *Config) validateIntervals() error {
	return ensurePositiveMap(map[string]int{
		"orchestrator.request_timeout": c.Orchestrator.RequestTimeout,
		"health.check_interval":        c.Health.CheckInterval,
		"queue.max_retries":            c.Queue.MaxRetries,
		"stream.reconnect_attempts":    c.Stream.ReconnectAttempts,
		"stream.reconnect_delay_step":  c.Stream.ReconnectDelayStep,
	})
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format %q is not supported (console, json)", c.Logging.Format)
	}
	if c.Queue.StartedGrace < 0 {
		return errors.New("queue.started_grace must not be negative")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
