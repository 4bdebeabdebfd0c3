// Package output renders command results for the terminal.
package output

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/logsentry/logsentry/internal/store"
)

// FormatRuns renders run history as an ASCII table, newest first.
func FormatRuns(records []store.RunRecord) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Started", "Outcome", "Severity", "Notified", "Summary"})

	for _, rec := range records {
		severity := rec.Severity
		if severity == "" && rec.Reason != "" {
			severity = "(" + rec.Reason + ")"
		}
		t.AppendRow(table.Row{
			rec.StartedAt.UTC().Format(time.RFC3339),
			rec.Outcome,
			severity,
			notifiedLabel(rec.Notified),
			truncate(rec.Summary, 60),
		})
	}

	t.AppendFooter(table.Row{"", "", "", "", fmt.Sprintf("%d runs", len(records))})
	return t.Render()
}

func notifiedLabel(notified bool) string {
	if notified {
		return "yes"
	}
	return "-"
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
