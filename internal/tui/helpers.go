package tui

import (
	"fmt"
	"time"

	"github.com/andy/casetrail/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// truncateStr truncates a string to the specified length with ellipsis
func truncateStr(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// formatAge formats how long ago t was, falling back to a date after a week
func formatAge(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Local().Format("2006-01-02")
	}
}

// kindStyle picks the headline style of a timeline entry
func kindStyle(kind domain.EntryKind) lipgloss.Style {
	switch kind {
	case domain.EntryCaseLog:
		return caseLogStyle
	case domain.EntryEdits:
		return editsStyle
	case domain.EntryTransition:
		return stateStyle
	case domain.EntryCreation, domain.EntryDeletion:
		return lifecycleStyle
	default:
		return subtitleStyle
	}
}

func errorLine(err error) string {
	return lipgloss.NewStyle().Foreground(errorColor).Render(fmt.Sprintf("  Error: %v", err))
}

func statusLine(msg string) string {
	return lipgloss.NewStyle().Foreground(successColor).Render("  " + msg)
}
