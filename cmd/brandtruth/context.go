package main

import (
	"log/slog"

	"github.com/QuantumLaunch-hq/brandtruth-ai-sub001/internal/config"
	"github.com/QuantumLaunch-hq/brandtruth-ai-sub001/internal/logging"
	"github.com/QuantumLaunch-hq/brandtruth-ai-sub001/internal/orchestrator"
	"github.com/QuantumLaunch-hq/brandtruth-ai-sub001/internal/queue"
)

// commandContext carries lazily-initialized shared state across commands.
type commandContext struct {
	configFlag *string

	cfg     *config.Config
	cfgPath string
	logger  *slog.Logger
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	path := ""
	if c.configFlag != nil {
		path = *c.configFlag
	}
	cfg, resolved, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	c.cfgPath = resolved
	return cfg, nil
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	if c.logger != nil {
		return c.logger, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	c.logger = logger
	return logger, nil
}

func (c *commandContext) openStore() (*queue.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return queue.Open(cfg)
}

func (c *commandContext) newClient() (*orchestrator.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return orchestrator.NewClient(cfg.Orchestrator.BaseURL, cfg.RequestTimeout())
}
