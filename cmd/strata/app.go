// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"os"

	"github.com/strata-dev/strata/internal/config"
	"github.com/strata-dev/strata/internal/tui"
	"github.com/strata-dev/strata/pkg/collect"
	"github.com/strata-dev/strata/pkg/source"
)

type (
	// App wires CLI services and shared dependencies.
	App struct {
		Config   ConfigProvider
		Prompter PrompterFactory
		Fetcher  source.Fetcher
		stdout   io.Writer
		stderr   io.Writer
		logOut   io.Writer

		flags rootOptions

		// settings is the configuration loaded by the root command.
		settings   *config.Config
		configPath string
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config   ConfigProvider
		Prompter PrompterFactory
		Fetcher  source.Fetcher
		Stdout   io.Writer
		Stderr   io.Writer
		// LogOutput receives log records (default: Stderr).
		LogOutput io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, string, error)
	}

	// PrompterFactory builds the prompter for one install run.
	PrompterFactory func(cfg tui.Config) collect.Prompter
)

// NewApp creates an App, filling unset dependencies with production defaults.
func NewApp(deps Dependencies) *App {
	app := &App{
		Config:   deps.Config,
		Prompter: deps.Prompter,
		Fetcher:  deps.Fetcher,
		stdout:   deps.Stdout,
		stderr:   deps.Stderr,
		logOut:   deps.LogOutput,
	}
	if app.Config == nil {
		app.Config = config.NewProvider()
	}
	if app.Prompter == nil {
		app.Prompter = func(cfg tui.Config) collect.Prompter { return tui.NewPrompter(cfg) }
	}
	if app.Fetcher == nil {
		app.Fetcher = source.NewGitFetcher()
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	if app.logOut == nil {
		app.logOut = app.stderr
	}
	return app
}

// settingsOrDefault returns the loaded configuration, or defaults when the
// root command did not load any.
func (a *App) settingsOrDefault() *config.Config {
	if a.settings == nil {
		return config.DefaultConfig()
	}
	return a.settings
}
