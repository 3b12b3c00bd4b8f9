// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/strata-dev/strata/internal/config"
	"github.com/strata-dev/strata/internal/issue"
)

// configDirEnv relocates the user config directory; testscript runs set it.
const configDirEnv = "STRATA_CONFIG_DIR"

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

type rootOptions struct {
	verbose bool
	cfgFile string
}

// NewRootCommand builds the strata command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	opts := &app.flags
	rootCmd := &cobra.Command{
		Use:   "strata",
		Short: "Install and update layered agent modules in a project",
		Long: TitleStyle.Render("strata") + SubtitleStyle.Render(" - Install and update layered agent modules") + `

strata installs feature modules into a project and keeps them in sync on
every rerun. Files you edited after an install are detected and left alone;
everything else is updated to the latest module version.

` + SubtitleStyle.Render("Examples:") + `
  strata install                      Install core into the current directory
  strata install --modules bmm        Install core and the bmm module
  strata install --custom-path ./mod  Register and install a local module
  strata status                       Show installed modules and edited files
  strata config show                  Show current configuration`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.initRootConfig(cmd.Context(), false)
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default is $HOME/.config/strata/config.cue)")

	rootCmd.AddCommand(newInstallCommand(app))
	rootCmd.AddCommand(newStatusCommand(app))
	rootCmd.AddCommand(newConfigCommand(app))
	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)
	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits with the resulting exit code. It is called
// by main.main().
func Execute() {
	os.Exit(Run())
}

// Run executes the command tree against the process arguments and returns
// the exit code.
func Run() int {
	if dir := os.Getenv(configDirEnv); dir != "" {
		restore := config.SetConfigDirOverride(dir)
		defer restore()
	}
	app := NewApp(Dependencies{})
	// fang overrides rootCmd.Version, so the version is passed as an option.
	err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(app.errorHandler),
	)
	return int(exitCode(err))
}

// initRootConfig loads configuration and installs the logger. When tolerant
// is set, an unreadable file is reported as a warning and defaults apply.
func (a *App) initRootConfig(ctx context.Context, tolerant bool) error {
	opts := a.flags
	cfg, path, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: opts.cfgFile})
	if err != nil {
		slog.SetDefault(newLogger(a.logOut, opts.verbose))
		if !tolerant {
			return newServiceError(err, issue.ConfigLoadFailedId, formatErrorForDisplay(err, opts.verbose))
		}
		fmt.Fprintln(a.stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, opts.verbose))
		a.settings = nil
		return nil
	}
	a.settings = cfg
	a.configPath = path
	slog.SetDefault(newLogger(a.logOut, opts.verbose || cfg.UI.Verbose))
	return nil
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
