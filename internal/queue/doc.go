// Package queue persists job-start requests that could not be submitted to
// the orchestrator. Items survive agent restarts; only durable job facts and
// retry bookkeeping are stored. Draining order is strictly FIFO by enqueue
// time, and NextEligible never removes an item — removal is explicit.
package queue
