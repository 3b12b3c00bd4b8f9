// SPDX-License-Identifier: MPL-2.0

// Package tui renders strata's interactive configuration prompts with
// charmbracelet/huh.
package tui

import (
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// Theme represents the visual theme for prompts.
type Theme string

const (
	// ThemeAuto adapts to the terminal background.
	ThemeAuto Theme = "auto"
	// ThemeDark uses a palette for dark backgrounds.
	ThemeDark Theme = "dark"
	// ThemeLight uses a palette for light backgrounds.
	ThemeLight Theme = "light"
)

// Config holds common configuration for prompts.
type Config struct {
	// Theme specifies the visual theme to use.
	Theme Theme
	// Accessible enables line-based prompts for screen readers and pipes.
	Accessible bool
	// Input is where answers are read from (default: stdin).
	Input io.Reader
	// Output is where prompts are written (default: stderr).
	Output io.Writer
}

// DefaultConfig returns the default prompt configuration. Accessible mode
// is enabled when stdin is not a terminal or the ACCESSIBLE environment
// variable is set.
//
// Prompts go to stderr so that stdout stays reserved for the install summary.
func DefaultConfig() Config {
	return Config{
		Theme:      ThemeAuto,
		Accessible: !isInputTerminal() || os.Getenv("ACCESSIBLE") != "",
		Input:      os.Stdin,
		Output:     os.Stderr,
	}
}

// isInputTerminal returns true if stdin is connected to a terminal.
func isInputTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// huhTheme converts a Theme to a huh.Theme.
func huhTheme(t Theme) *huh.Theme {
	switch t {
	case ThemeDark:
		return huh.ThemeDracula()
	case ThemeLight:
		return huh.ThemeBase16()
	default:
		return huh.ThemeCharm()
	}
}
