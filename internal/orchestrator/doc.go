// Package orchestrator implements the HTTP contract of the pipeline backend:
// health probing, job submission, progress snapshots, terminal results, and
// the server-sent event push channel. Submission failures are classified into
// availability errors (queue and retry) and rejections (propagate verbatim);
// every other package keys its recovery behavior off that split.
package orchestrator
