// Package lifecycle owns the job-start path: direct submission when the
// backend is reachable, durable queueing when it is not, and FIFO draining of
// the queue on every availability tick. Queue item status is mutated only
// here; the health monitor and progress streaming never touch it.
package lifecycle
