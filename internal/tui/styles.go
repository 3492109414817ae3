// Package tui supplies the small palette of semantic console styles the
// CLI commands and the pretty-table result renderer share. The engine has
// no separate structured-log package; these styles are applied directly
// to stdout/stderr for human-readable console output.
package tui

import "github.com/charmbracelet/lipgloss"

// Semantic color palette - use these consistently across all commands.
const (
	ColorPrimary   = "255" // White - main text, emphasis
	ColorSecondary = "245" // Light gray - supporting text
	ColorMuted     = "240" // Dark gray - hints, less important info
	ColorSuccess   = "42"  // Green - operations succeeded
	ColorError     = "203" // Red - errors, failures
	ColorWarning   = "214" // Orange - cautions, attention needed
	ColorAccent    = "45"  // Cyan - highlights, state names
)

// Common styles used across all commands.
var (
	PrimaryStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorPrimary))
	SecondaryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSecondary))
	MutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorMuted))
	HintStyle      = MutedStyle.Italic(true)

	SuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSuccess))
	ErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorError))
	WarningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorWarning))
	AccentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccent))

	BoldStyle        = lipgloss.NewStyle().Bold(true)
	BoldPrimaryStyle = PrimaryStyle.Bold(true)

	// HeaderStyle renders a pretty-table's column header row.
	HeaderStyle = BoldStyle.Foreground(lipgloss.Color(ColorAccent))
	// BorderStyle renders a pretty-table's rule lines.
	BorderStyle = MutedStyle
)

// StatusIcon returns the appropriate icon for a status.
func StatusIcon(success bool) string {
	if success {
		return SuccessStyle.Render("✓")
	}
	return ErrorStyle.Render("✗")
}

// Bullet returns a muted bullet point.
func Bullet() string {
	return MutedStyle.Render("·")
}

// Arrow returns a muted arrow.
func Arrow() string {
	return MutedStyle.Render("→")
}

// ExitError formats a top-level fatal error for stderr, matching the
// teacher's main.go unified exit format.
func ExitError(msg string) string {
	return ErrorStyle.Render("✗ "+msg)
}

// StateStyle colors a workpackage state name for status/info output.
func StateStyle(state string) lipgloss.Style {
	switch state {
	case "done":
		return SuccessStyle
	case "error":
		return ErrorStyle
	case "awaiting_sentinel":
		return WarningStyle
	case "running":
		return AccentStyle
	default:
		return MutedStyle
	}
}
