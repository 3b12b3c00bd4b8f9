// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"io"
	"log/slog"

	"github.com/charmbracelet/log"
)

// newLogger returns an slog logger backed by a charmbracelet/log handler.
// Verbose mode logs at debug level; otherwise only warnings and errors show.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := log.WarnLevel
	if verbose {
		level = log.DebugLevel
	}
	handler := log.NewWithOptions(w, log.Options{
		Level:           level,
		Prefix:          "strata",
		ReportTimestamp: verbose,
	})
	return slog.New(handler)
}
