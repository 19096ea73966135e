// Package logging builds slog loggers with console and JSON handlers plus the
// attribute helpers used across the agent. Component loggers carry a stable
// "component" attribute so queue, health, and streaming activity can be
// filtered in one shared log.
package logging
