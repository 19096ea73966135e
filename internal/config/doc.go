// Package config loads, validates, and defaults the agent's TOML
// configuration. All timing knobs (probe interval, retry cap, reconnect
// backoff, started grace) live here so deployments can tune responsiveness
// versus backend load without code changes.
package config
