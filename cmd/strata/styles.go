// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/strata-dev/strata/pkg/install"
)

// Color palette shared by all CLI output.
const (
	// ColorPrimary is purple - used for titles and module names.
	ColorPrimary = lipgloss.Color("#7C3AED")

	// ColorMuted is gray - used for subtitles, counts and secondary text.
	ColorMuted = lipgloss.Color("#6B7280")

	// ColorSuccess is green - used for installed and updated modules.
	ColorSuccess = lipgloss.Color("#10B981")

	// ColorError is red - used for failed modules.
	ColorError = lipgloss.Color("#EF4444")

	// ColorWarning is amber - used for skipped modules, warnings and preserved edits.
	ColorWarning = lipgloss.Color("#F59E0B")

	// ColorHighlight is blue - used for paths and commands.
	ColorHighlight = lipgloss.Color("#3B82F6")
)

var (
	// TitleStyle is for primary headers and section titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	// SubtitleStyle is for secondary headers and descriptions.
	SubtitleStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// SuccessStyle is for success messages and positive indicators.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	// ErrorStyle is for error messages and failure indicators.
	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorError)

	// WarningStyle is for warning messages and caution indicators.
	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	// CmdStyle is for paths, keys and command names.
	CmdStyle = lipgloss.NewStyle().
			Foreground(ColorHighlight)
)

// statusStyle returns the style for a module outcome status.
func statusStyle(s install.Status) lipgloss.Style {
	switch s {
	case install.StatusInstalled, install.StatusUpdated:
		return SuccessStyle
	case install.StatusSkipped:
		return WarningStyle
	default:
		return ErrorStyle
	}
}
