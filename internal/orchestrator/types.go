package orchestrator

import "strings"

// Stage identifies a phase of a pipeline workflow's server-side execution.
type Stage string

const (
	StagePending          Stage = "pending"
	StageExtracting       Stage = "extracting"
	StageGenerating       Stage = "generating"
	StageMatching         Stage = "matching"
	StageComposing        Stage = "composing"
	StageScoring          Stage = "scoring"
	StageAwaitingApproval Stage = "awaiting_approval"
	StageApproved         Stage = "approved"
	StageCompleted        Stage = "completed"
	StageFailed           Stage = "failed"
)

var allStages = []Stage{
	StagePending,
	StageExtracting,
	StageGenerating,
	StageMatching,
	StageComposing,
	StageScoring,
	StageAwaitingApproval,
	StageApproved,
	StageCompleted,
	StageFailed,
}

var stageSet = func() map[Stage]struct{} {
	set := make(map[Stage]struct{}, len(allStages))
	for _, stage := range allStages {
		set[stage] = struct{}{}
	}
	return set
}()

// AllStages returns the ordered list of known stages.
func AllStages() []Stage {
	cp := make([]Stage, len(allStages))
	copy(cp, allStages)
	return cp
}

// ParseStage converts a string into a known Stage.
func ParseStage(value string) (Stage, bool) {
	normalized := Stage(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := stageSet[normalized]
	return normalized, ok
}

// Terminal reports whether no further progress events are expected after this
// stage on the same subscription.
func (s Stage) Terminal() bool {
	switch s {
	case StageCompleted, StageFailed, StageApproved:
		return true
	default:
		return false
	}
}

// StartRequest is the job submission payload for POST /start.
type StartRequest struct {
	URL          string `json:"url"`
	VariantCount int    `json:"variantCount"`
	Platform     string `json:"platform"`
	UserID       string `json:"userId,omitempty"`
	CampaignName string `json:"campaignName,omitempty"`
}

// StartResponse is the orchestrator's acknowledgement of a started job.
type StartResponse struct {
	JobID   string `json:"jobId"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// HealthStatus is the parsed body of GET /health. The Available flag is
// authoritative: a reachable but degraded backend reports false.
type HealthStatus struct {
	Available bool   `json:"available"`
	Message   string `json:"message,omitempty"`
}

// Snapshot is a point-in-time view of a running workflow's progress.
type Snapshot struct {
	JobID           string  `json:"jobId"`
	Stage           Stage   `json:"stage"`
	ProgressPercent float64 `json:"progressPercent"`
	Message         string  `json:"message"`
	Error           string  `json:"error,omitempty"`
}

// Result is the terminal payload of GET /result/{jobId}.
type Result struct {
	JobID        string          `json:"jobId"`
	Status       string          `json:"status"`
	CampaignName string          `json:"campaignName,omitempty"`
	Variants     []ResultVariant `json:"variants,omitempty"`
}

// ResultVariant describes one generated creative variant.
type ResultVariant struct {
	VariantID string  `json:"variantId"`
	Platform  string  `json:"platform"`
	Headline  string  `json:"headline,omitempty"`
	BodyText  string  `json:"bodyText,omitempty"`
	AssetURL  string  `json:"assetUrl,omitempty"`
	Score     float64 `json:"score,omitempty"`
}
