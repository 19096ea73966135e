package main

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/QuantumLaunch-hq/brandtruth-ai-sub001/internal/orchestrator"
)

var titleCaser = cases.Title(language.English)

// platformLabel renders a platform identifier for display. Known initialisms
// keep their casing.
func platformLabel(platform string) string {
	platform = strings.TrimSpace(platform)
	switch strings.ToLower(platform) {
	case "":
		return "-"
	case "tiktok":
		return "TikTok"
	case "linkedin":
		return "LinkedIn"
	case "youtube":
		return "YouTube"
	default:
		return titleCaser.String(strings.ToLower(platform))
	}
}

func stageLabel(stage orchestrator.Stage) string {
	if stage == "" {
		return "-"
	}
	return strings.ReplaceAll(string(stage), "_", " ")
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 1 {
		return s[:max]
	}
	return s[:max-1] + "…"
}
