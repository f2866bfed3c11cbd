package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
)

// CheckRow is one line of the doctor report.
type CheckRow struct {
	Name    string
	Present bool
	Detail  string
}

// DoctorMarkdown builds the doctor report as markdown.
func DoctorMarkdown(rows []CheckRow) string {
	var b strings.Builder
	b.WriteString("# envup doctor\n\n")
	b.WriteString("| Check | Status | Detail |\n")
	b.WriteString("|-------|--------|--------|\n")
	healthy := true
	for _, r := range rows {
		status := "ok"
		if !r.Present {
			status = "missing"
			healthy = false
		}
		fmt.Fprintf(&b, "| %s | %s | %s |\n", r.Name, status, r.Detail)
	}
	b.WriteString("\n")
	if healthy {
		b.WriteString("All checks passed. Nothing to install.\n")
	} else {
		b.WriteString("Run `envup up` to install what is missing.\n")
	}
	return b.String()
}

// RenderMarkdown renders markdown for the terminal.
func RenderMarkdown(md string) (string, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", fmt.Errorf("create renderer: %w", err)
	}
	out, err := renderer.Render(md)
	if err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return out, nil
}
