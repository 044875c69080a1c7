// Package render formats Doctor and Race Driver results for a terminal,
// following the color and style conventions of the teacher's tui package
// but scoped to the two tables the CLI actually prints: adapter readiness
// and ranked agent scores.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hydra-cli/hydra/internal/core"
	"github.com/hydra-cli/hydra/internal/doctor"
)

var (
	colorSuccess = lipgloss.Color("#10B981")
	colorWarning = lipgloss.Color("#F59E0B")
	colorError   = lipgloss.Color("#EF4444")
	colorMuted   = lipgloss.Color("#9CA3AF")
	colorHeader  = lipgloss.Color("#7C3AED")

	headerStyle  = lipgloss.NewStyle().Foreground(colorHeader).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	warnStyle    = lipgloss.NewStyle().Foreground(colorWarning)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
)

func statusStyle(status core.ProbeStatus) lipgloss.Style {
	switch status {
	case core.ProbeReady, core.ProbeExperimentalReady:
		return successStyle
	case core.ProbeBlocked:
		return warnStyle
	default:
		return errorStyle
	}
}

// Readiness renders a Doctor report as a human-readable table.
func Readiness(report doctor.Report) string {
	var b strings.Builder
	fmt.Fprintln(&b, headerStyle.Render("ADAPTER READINESS"))
	for _, a := range report.Adapters {
		line := fmt.Sprintf("  %-12s %-6s %s", a.AgentKey, a.Tier, statusStyle(a.Status).Render(string(a.Status)))
		if a.Message != "" {
			line += "  " + mutedStyle.Render(a.Message)
		}
		fmt.Fprintln(&b, line)
	}

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, headerStyle.Render("REPOSITORY"))
	repoStatus := successStyle.Render("ok")
	if !report.Repo.IsRepo || !report.Repo.GitAvailable {
		repoStatus = errorStyle.Render("not ready")
	} else if !report.Repo.Clean {
		repoStatus = warnStyle.Render("dirty")
	}
	fmt.Fprintf(&b, "  %s", repoStatus)
	if report.Repo.Message != "" {
		fmt.Fprintf(&b, "  %s", mutedStyle.Render(report.Repo.Message))
	}
	fmt.Fprintln(&b)

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, headerStyle.Render("RESOURCES"))
	fmt.Fprintf(&b, "  disk free: %.1fGB/%.1fGB  open fds: %d/%d  goroutines: %d\n",
		report.Resources.DiskFreeGB, report.Resources.DiskTotalGB,
		report.Resources.OpenFDs, report.Resources.MaxFDs, report.Resources.Goroutines)

	fmt.Fprintln(&b)
	overall := successStyle.Render("READY")
	if !report.Ready {
		overall = errorStyle.Render("NOT READY")
	}
	fmt.Fprintf(&b, "%s: %s\n", headerStyle.Render("OVERALL"), overall)

	return b.String()
}

// Scoreboard renders ranked ScoreBreakdowns as a human-readable table.
func Scoreboard(scores []core.ScoreBreakdown) string {
	var b strings.Builder
	fmt.Fprintln(&b, headerStyle.Render("RANKING"))
	for i, s := range scores {
		composite := "null"
		if s.Composite != nil {
			composite = fmt.Sprintf("%.1f", *s.Composite)
		}
		mergeStyle := successStyle
		mergeText := "mergeable"
		if !s.Mergeable {
			mergeStyle = errorStyle
			mergeText = "blocked: " + strings.Join(s.GateFailures, ", ")
		}
		fmt.Fprintf(&b, "  %d. %-12s composite=%-6s %s\n", i+1, s.AgentKey, composite, mergeStyle.Render(mergeText))
	}
	return b.String()
}
