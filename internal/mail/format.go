// Package mail renders and delivers alert notifications. The pipeline core
// only supplies severity, summary, and details; everything here is the
// formatter/transport collaborator.
package mail

import (
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"

	"github.com/logsentry/logsentry/internal/core"
)

// Message is a composed dual-body notification.
type Message struct {
	Subject  string
	TextBody string
	HTMLBody string
}

var severityLabels = map[core.Severity]string{
	core.SeverityNone:     "OK",
	core.SeverityLow:      "LOW",
	core.SeverityMedium:   "MEDIUM",
	core.SeverityHigh:     "HIGH",
	core.SeverityCritical: "CRITICAL",
}

var severityColors = map[core.Severity]string{
	core.SeverityNone:     "#d4edda",
	core.SeverityLow:      "#d4edda",
	core.SeverityMedium:   "#fff3cd",
	core.SeverityHigh:     "#f8d7da",
	core.SeverityCritical: "#f8d7da",
}

var htmlTemplate = template.Must(template.New("alert").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; }
    .header { background: {{.Color}}; padding: 15px; border-radius: 5px; margin-bottom: 20px; }
    .severity { font-size: 24px; font-weight: bold; }
    .section { margin: 20px 0; }
    .findings { background: #f8f9fa; padding: 10px; border-left: 4px solid #6c757d; }
  </style>
</head>
<body>
  <div class="header">
    <div class="severity">Severity: {{.Label}}</div>
    <div>Host: {{.Hostname}}</div>
    <div>Time: {{.Timestamp}}</div>
  </div>
  <div class="section">
    <h2>Summary</h2>
    <p>{{.Summary}}</p>
  </div>
{{- if .Findings}}
  <div class="section findings">
    <h3>Findings</h3>
    <ul>
{{- range .Findings}}
      <li><strong>{{.Name}}:</strong> {{.Text}}</li>
{{- end}}
    </ul>
  </div>
{{- end}}
</body>
</html>
`))

type finding struct {
	Name string
	Text string
}

type alertData struct {
	Label     string
	Color     string
	Hostname  string
	Timestamp string
	Summary   string
	Findings  []finding
}

// ComposeVerdict renders the notification for a classified digest.
func ComposeVerdict(v *core.Verdict, hostname string, now time.Time) (*Message, error) {
	label := severityLabels[v.Severity]
	data := alertData{
		Label:     label,
		Color:     severityColors[v.Severity],
		Hostname:  hostname,
		Timestamp: now.Format("2006-01-02 15:04:05 MST"),
		Summary:   v.Summary,
		Findings:  sortedFindings(v.Details),
	}

	return compose(fmt.Sprintf("[%s] Log digest alert - severity %s - %s",
		hostname, label, now.Format("2006-01-02")), data)
}

// ComposeDegraded renders the analysis-failure notice sent when retries are
// exhausted. It is independent of the alert threshold.
func ComposeDegraded(runErr error, hostname string, now time.Time) (*Message, error) {
	detail := "unknown error"
	if runErr != nil {
		detail = runErr.Error()
	}
	data := alertData{
		Label:     "ANALYSIS FAILED",
		Color:     "#f8d7da",
		Hostname:  hostname,
		Timestamp: now.Format("2006-01-02 15:04:05 MST"),
		Summary:   "Log digest classification failed; today's logs were not analyzed.",
		Findings:  []finding{{Name: "error", Text: detail}},
	}

	return compose(fmt.Sprintf("[%s] Log digest analysis failed - %s",
		hostname, now.Format("2006-01-02")), data)
}

func compose(subject string, data alertData) (*Message, error) {
	var html strings.Builder
	if err := htmlTemplate.Execute(&html, data); err != nil {
		return nil, fmt.Errorf("render html body: %w", err)
	}

	return &Message{
		Subject:  subject,
		TextBody: renderText(data),
		HTMLBody: html.String(),
	}, nil
}

func renderText(data alertData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "LOG DIGEST REPORT - %s\n", data.Timestamp)
	b.WriteString(strings.Repeat("=", 60) + "\n")
	fmt.Fprintf(&b, "Host: %s\n", data.Hostname)
	fmt.Fprintf(&b, "Severity: %s\n", data.Label)
	fmt.Fprintf(&b, "Summary: %s\n", data.Summary)
	if len(data.Findings) > 0 {
		b.WriteString("\nFindings:\n")
		for _, f := range data.Findings {
			fmt.Fprintf(&b, "  - %s: %s\n", f.Name, f.Text)
		}
	}
	return b.String()
}

func sortedFindings(details map[string]string) []finding {
	if len(details) == 0 {
		return nil
	}
	names := make([]string, 0, len(details))
	for name := range details {
		names = append(names, name)
	}
	sort.Strings(names)

	findings := make([]finding, 0, len(names))
	for _, name := range names {
		findings = append(findings, finding{Name: name, Text: details[name]})
	}
	return findings
}
