// Package agent assembles the lifecycle subsystem into a long-running
// process: single-instance lock, health monitor, queue drain manager, and a
// local status API consumed by the dashboard and CLI.
package agent
