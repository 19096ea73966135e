package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/QuantumLaunch-hq/brandtruth-ai-sub001/internal/orchestrator"
	"github.com/QuantumLaunch-hq/brandtruth-ai-sub001/internal/queue"
)

// tableColumn describes one rendered column. Numeric columns (counts,
// retries, scores, ages) align right.
type tableColumn struct {
	title   string
	numeric bool
}

var queueColumns = []tableColumn{
	{title: "ID"},
	{title: "URL"},
	{title: "PLATFORM"},
	{title: "VARIANTS", numeric: true},
	{title: "STATUS"},
	{title: "RETRIES", numeric: true},
	{title: "AGE", numeric: true},
	{title: "LAST ERROR"},
}

// renderQueueTable renders durable start requests for `queue list`.
func renderQueueTable(jobs []*queue.Job) string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, []string{
			shortID(job.ID),
			truncate(job.URL, 40),
			platformLabel(job.Platform),
			fmt.Sprintf("%d", job.VariantCount),
			string(job.Status),
			fmt.Sprintf("%d", job.RetryCount),
			formatAge(job.QueuedAt),
			truncate(job.LastError, 36),
		})
	}
	return renderTable(queueColumns, rows)
}

var variantColumns = []tableColumn{
	{title: "VARIANT"},
	{title: "PLATFORM"},
	{title: "HEADLINE"},
	{title: "SCORE", numeric: true},
}

// renderVariantTable renders the generated creatives of a completed workflow.
func renderVariantTable(variants []orchestrator.ResultVariant) string {
	rows := make([][]string, 0, len(variants))
	for _, variant := range variants {
		rows = append(rows, []string{
			variant.VariantID,
			platformLabel(variant.Platform),
			truncate(variant.Headline, 48),
			fmt.Sprintf("%.2f", variant.Score),
		})
	}
	return renderTable(variantColumns, rows)
}

func renderTable(columns []tableColumn, rows [][]string) string {
	if len(columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, len(columns))
	for i, col := range columns {
		header[i] = col.title
		align := text.AlignLeft
		if col.numeric {
			align = text.AlignRight
		}
		configs[i] = table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		cells := make(table.Row, len(columns))
		for i := range cells {
			if i < len(row) {
				cells[i] = row[i]
			} else {
				cells[i] = ""
			}
		}
		tw.AppendRow(cells)
	}

	return tw.Render()
}
