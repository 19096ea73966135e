package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a queued start request.
type Status string

const (
	StatusQueued   Status = "queued"
	StatusRetrying Status = "retrying"
	StatusStarted  Status = "started"
	StatusFailed   Status = "failed"
)

var allStatuses = []Status{
	StatusQueued,
	StatusRetrying,
	StatusStarted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Request is the durable portion of a job-start request.
type Request struct {
	URL          string
	VariantCount int
	Platform     string
	CampaignName string
}

// Job is one persisted start request with its retry bookkeeping. Only job
// facts live here; transient process state (drain in progress, cached
// availability) is never written to the store.
type Job struct {
	ID           string
	URL          string
	VariantCount int
	Platform     string
	CampaignName string
	Status       Status
	RetryCount   int
	LastError    string
	QueuedAt     time.Time
	UpdatedAt    time.Time
}

// Frozen reports whether the job has exhausted automatic retries and now
// requires explicit user action.
func (j Job) Frozen() bool {
	return j.Status == StatusFailed
}

// HealthSummary describes aggregated queue counts per lifecycle state.
type HealthSummary struct {
	Total    int
	Queued   int
	Retrying int
	Started  int
	Failed   int
}
