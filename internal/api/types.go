// Package api defines the JSON payloads shared by the agent's local HTTP
// API and the CLI.
package api

import (
	"time"

	"github.com/QuantumLaunch-hq/brandtruth-ai-sub001/internal/orchestrator"
	"github.com/QuantumLaunch-hq/brandtruth-ai-sub001/internal/queue"
)

// QueueItem is the wire form of one durable queue entry.
type QueueItem struct {
	ID           string    `json:"id"`
	URL          string    `json:"url"`
	VariantCount int       `json:"variantCount"`
	Platform     string    `json:"platform"`
	CampaignName string    `json:"campaignName,omitempty"`
	Status       string    `json:"status"`
	RetryCount   int       `json:"retryCount"`
	LastError    string    `json:"lastError,omitempty"`
	QueuedAt     time.Time `json:"queuedAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// QueueSummary aggregates queue counts per lifecycle state.
type QueueSummary struct {
	Total    int `json:"total"`
	Queued   int `json:"queued"`
	Retrying int `json:"retrying"`
	Started  int `json:"started"`
	Failed   int `json:"failed"`
}

// WorkflowProgress is the latest streamed snapshot for a workflow the agent
// started out of the queue.
type WorkflowProgress struct {
	JobID           string  `json:"jobId"`
	Stage           string  `json:"stage"`
	ProgressPercent float64 `json:"progressPercent"`
	Message         string  `json:"message,omitempty"`
	Error           string  `json:"error,omitempty"`
}

// AgentStatus is the payload of GET /api/status.
type AgentStatus struct {
	Running          bool              `json:"running"`
	PID              int               `json:"pid"`
	BackendAvailable bool              `json:"backendAvailable"`
	LastCheckedAt    time.Time         `json:"lastCheckedAt"`
	Draining         bool              `json:"draining"`
	Queue            QueueSummary      `json:"queue"`
	ActiveWorkflow   *WorkflowProgress `json:"activeWorkflow,omitempty"`
}

// QueueListResponse is the payload of GET /api/queue.
type QueueListResponse struct {
	Items []QueueItem `json:"items"`
}

// RetryResponse reports how many frozen items were reset.
type RetryResponse struct {
	Reset int64 `json:"reset"`
}

// FromJob converts a stored queue job to its wire form.
func FromJob(job *queue.Job) QueueItem {
	return QueueItem{
		ID:           job.ID,
		URL:          job.URL,
		VariantCount: job.VariantCount,
		Platform:     job.Platform,
		CampaignName: job.CampaignName,
		Status:       string(job.Status),
		RetryCount:   job.RetryCount,
		LastError:    job.LastError,
		QueuedAt:     job.QueuedAt,
		UpdatedAt:    job.UpdatedAt,
	}
}

// FromJobs converts a job list to wire form, never returning nil.
func FromJobs(jobs []*queue.Job) []QueueItem {
	items := make([]QueueItem, 0, len(jobs))
	for _, job := range jobs {
		items = append(items, FromJob(job))
	}
	return items
}

// FromSnapshot converts a streamed progress snapshot to wire form.
func FromSnapshot(snapshot orchestrator.Snapshot) *WorkflowProgress {
	return &WorkflowProgress{
		JobID:           snapshot.JobID,
		Stage:           string(snapshot.Stage),
		ProgressPercent: snapshot.ProgressPercent,
		Message:         snapshot.Message,
		Error:           snapshot.Error,
	}
}

// FromHealthSummary converts store counts to wire form.
func FromHealthSummary(summary queue.HealthSummary) QueueSummary {
	return QueueSummary{
		Total:    summary.Total,
		Queued:   summary.Queued,
		Retrying: summary.Retrying,
		Started:  summary.Started,
		Failed:   summary.Failed,
	}
}
