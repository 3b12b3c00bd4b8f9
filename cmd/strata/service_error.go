// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/fang"
	"golang.org/x/term"

	"github.com/strata-dev/strata/internal/config"
	"github.com/strata-dev/strata/internal/issue"
)

// ServiceError is an error that carries optional rendering information for
// the CLI layer. When the CLI layer receives a ServiceError, it renders the
// styled error message (if present) before the issue catalog entry.
// Always create via newServiceError.
type ServiceError struct {
	// Err is the underlying error (must not be nil).
	Err error
	// IssueID is the optional issue catalog ID for rendering help text.
	IssueID issue.Id
	// StyledMessage is the optional pre-rendered styled error text.
	StyledMessage string
}

// newServiceError creates a ServiceError with a nil-Err panic guard.
func newServiceError(err error, issueID issue.Id, styledMessage string) *ServiceError {
	if err == nil {
		panic("ServiceError: Err must not be nil")
	}
	return &ServiceError{
		Err:           err,
		IssueID:       issueID,
		StyledMessage: styledMessage,
	}
}

// Error implements the error interface.
func (e *ServiceError) Error() string { return e.Err.Error() }

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *ServiceError) Unwrap() error { return e.Err }

// renderServiceError prints the styled message, then the issue help section.
func renderServiceError(stderr io.Writer, svcErr *ServiceError, style string) {
	if svcErr == nil {
		return
	}

	if svcErr.StyledMessage != "" {
		fmt.Fprintln(stderr, ErrorStyle.Render("Error: ")+svcErr.StyledMessage)
	}

	if svcErr.IssueID == 0 {
		return
	}
	renderIssue(stderr, svcErr.IssueID, style)
}

func renderIssue(w io.Writer, id issue.Id, style string) {
	entry := issue.Get(id)
	if entry == nil {
		return
	}
	rendered, err := entry.Render(style)
	if err != nil {
		slog.Warn("failed to render issue catalog entry", "issueID", id, "error", err)
		return
	}
	fmt.Fprint(w, rendered)
}

// issueStyle picks the glamour style for the configured theme. Output that
// is not a terminal gets the plain style.
func issueStyle(w io.Writer, theme config.Theme) string {
	if f, ok := w.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		return "notty"
	}
	switch theme {
	case config.ThemeLight:
		return "light"
	default:
		return "dark"
	}
}

// errorHandler replaces fang's default handler for errors the commands
// already reported.
func (a *App) errorHandler(w io.Writer, styles fang.Styles, err error) {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		renderServiceError(w, svcErr, issueStyle(w, a.settingsOrDefault().UI.Theme))
		return
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}
