// Package progress streams near-real-time visibility into one running
// workflow over the orchestrator's push channel. Transport drops reconnect
// with bounded linear backoff; structured error payloads surface as
// application errors and never reconnect.
package progress
