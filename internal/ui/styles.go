// Package ui renders envup's terminal output: status lines, the wait
// spinner, and the final banner.
package ui

import "github.com/charmbracelet/lipgloss"

// Semantic colors shared across commands.
var (
	Success = lipgloss.Color("#8BC34A") // Lime Green
	Warning = lipgloss.Color("#FFC107") // Yellow
	Failure = lipgloss.Color("#e53935") // Red
	Info    = lipgloss.Color("#2196F3") // Blue
	Muted   = lipgloss.Color("#7f8c8d")
)

// Styles holds the rendered styles for one output stream.
type Styles struct {
	Step    lipgloss.Style
	OK      lipgloss.Style
	Warn    lipgloss.Style
	Fail    lipgloss.Style
	Detail  lipgloss.Style
	Banner  lipgloss.Style
	BannerF lipgloss.Style
	Spinner lipgloss.Style
}

// DefaultStyles returns the envup look.
func DefaultStyles() Styles {
	return Styles{
		Step:    lipgloss.NewStyle().Bold(true),
		OK:      lipgloss.NewStyle().Foreground(Success).Bold(true),
		Warn:    lipgloss.NewStyle().Foreground(Warning),
		Fail:    lipgloss.NewStyle().Foreground(Failure).Bold(true),
		Detail:  lipgloss.NewStyle().Foreground(Muted),
		Banner:  lipgloss.NewStyle().Foreground(Success).Bold(true).Border(lipgloss.RoundedBorder()).Padding(0, 2),
		BannerF: lipgloss.NewStyle().Foreground(Failure).Bold(true).Border(lipgloss.RoundedBorder()).Padding(0, 2),
		Spinner: lipgloss.NewStyle().Foreground(Info),
	}
}
