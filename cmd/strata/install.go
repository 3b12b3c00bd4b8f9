// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/strata-dev/strata/internal/builtin"
	"github.com/strata-dev/strata/internal/config"
	"github.com/strata-dev/strata/internal/dag"
	"github.com/strata-dev/strata/internal/issue"
	"github.com/strata-dev/strata/internal/tui"
	"github.com/strata-dev/strata/pkg/collect"
	"github.com/strata-dev/strata/pkg/install"
	"github.com/strata-dev/strata/pkg/moduledef"
	"github.com/strata-dev/strata/pkg/source"
	"github.com/strata-dev/strata/pkg/types"
)

type installOptions struct {
	directory   string
	modules     []string
	customPaths []string
	yes         bool
}

func newInstallCommand(app *App) *cobra.Command {
	opts := &installOptions{}
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install or update modules in a project",
		Long: `Install or update modules in a project.

The core module is always installed. Modules already recorded in the
project's manifest are updated on every run; files you edited since the
last install are preserved and reported.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.runInstall(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVarP(&opts.directory, "directory", "d", ".", "project directory to install into")
	cmd.Flags().StringSliceVarP(&opts.modules, "modules", "m", nil, "modules to install in addition to core")
	cmd.Flags().StringSliceVar(&opts.customPaths, "custom-path", nil, "register and install a local module directory")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "accept every default without prompting")
	return cmd
}

func (a *App) runInstall(ctx context.Context, opts *installOptions) error {
	cfg := a.settingsOrDefault()
	style := issueStyle(a.stderr, cfg.UI.Theme)

	registry, err := a.loadRegistry()
	if err != nil {
		return err
	}
	modules := make([]types.ModuleID, 0, len(opts.modules)+len(opts.customPaths))
	for _, m := range opts.modules {
		modules = append(modules, types.ModuleID(strings.TrimSpace(m)))
	}
	custom, err := registerCustomPaths(registry, opts.customPaths)
	if err != nil {
		return newServiceError(err, issue.SchemaParseErrorId, formatErrorForDisplay(err, a.flags.verbose))
	}
	modules = append(modules, custom...)

	resolver, err := a.newResolver(cfg, registry, false)
	if err != nil {
		return err
	}

	var prompter collect.Prompter = collect.Defaults{}
	if !opts.yes {
		tcfg := tui.DefaultConfig()
		tcfg.Theme = tui.Theme(cfg.UI.Theme)
		tcfg.Accessible = tcfg.Accessible || cfg.UI.Accessible
		prompter = a.Prompter(tcfg)
	}

	summary, err := install.New(install.Options{
		ProjectDir:    opts.directory,
		InstallFolder: cfg.InstallFolder,
		Modules:       modules,
		Resolver:      resolver,
		Prompter:      prompter,
		ToolVersion:   Version,
	}).Run(ctx)
	if summary != nil {
		printSummary(a.stdout, summary)
		printIssues(a.stderr, summary, style)
	}
	if err != nil {
		return classifyRunError(err, a.flags.verbose)
	}
	if code := summary.ExitCode(); code != types.ExitOK {
		return &ExitError{Code: code}
	}
	return nil
}

func (a *App) loadRegistry() (*source.Registry, error) {
	path, err := config.RegistryPath()
	if err != nil {
		return nil, err
	}
	registry, err := source.LoadRegistry(path)
	if err != nil {
		return nil, newServiceError(err, issue.ConfigLoadFailedId, formatErrorForDisplay(err, a.flags.verbose))
	}
	return registry, nil
}

// newResolver builds the module resolver from the settings. offline skips
// remote fetches and dependency installation.
func (a *App) newResolver(cfg *config.Config, registry *source.Registry, offline bool) (*source.Resolver, error) {
	cacheDir, err := config.CacheDir(cfg)
	if err != nil {
		return nil, err
	}
	opts := source.Options{
		CacheDir:       cacheDir,
		Builtin:        builtin.Modules(),
		BuiltinDirs:    cfg.BuiltinDirs,
		Remotes:        cfg.Remotes(),
		Registry:       registry,
		Fetcher:        a.Fetcher,
		NetworkTimeout: cfg.NetworkTimeout,
		Offline:        offline,
	}
	if !offline {
		opts.Dependencies = cfg.Dependencies()
	}
	return source.NewResolver(opts), nil
}

// registerCustomPaths adds each local module directory to the registry,
// saving it when it changed, and returns the registered module codes.
func registerCustomPaths(registry *source.Registry, paths []string) ([]types.ModuleID, error) {
	var ids []types.ModuleID
	changed := false
	for _, p := range paths {
		def, err := moduledef.Load(p)
		if err != nil {
			return nil, customPathError(p, err)
		}
		added, err := registry.Add(def.Code, p)
		if err != nil {
			return nil, customPathError(p, err)
		}
		changed = changed || added
		ids = append(ids, def.Code)
	}
	if changed {
		if err := registry.Save(); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

func customPathError(path string, err error) error {
	return issue.NewErrorContext().
		WithOperation("register custom module").
		WithResource(path).
		WithSuggestion("Check that the directory contains a valid module.yaml").
		WithSuggestion("Module codes are lowercase letters, digits and dashes").
		Wrap(err).
		BuildError()
}

func classifyRunError(err error, verbose bool) error {
	msg := formatErrorForDisplay(err, verbose)
	switch {
	case errors.Is(err, dag.ErrCycle):
		return newServiceError(err, issue.DependencyCycleId, msg)
	case errors.Is(err, os.ErrPermission):
		return newServiceError(err, issue.PermissionDeniedId, msg)
	case errors.Is(err, tui.ErrAborted):
		return &ExitError{Code: types.ExitFailure, Err: err}
	default:
		return newServiceError(err, 0, msg)
	}
}

func printSummary(w io.Writer, s *install.Summary) {
	action := "Installed"
	if s.IsUpdate {
		action = "Updated"
	}
	fmt.Fprintln(w, TitleStyle.Render(action+" modules"))
	for _, o := range s.Modules {
		line := fmt.Sprintf("  %-12s %s", o.Module, statusStyle(o.Status).Render(string(o.Status)))
		if o.Version != "" {
			line += " " + SubtitleStyle.Render(o.Version)
		}
		switch o.Status {
		case install.StatusInstalled, install.StatusUpdated:
			line += SubtitleStyle.Render(fmt.Sprintf("  %d written, %d unchanged, %d preserved", o.Written, o.Unchanged, o.Preserved))
		default:
			if o.Err != nil {
				line += "  " + o.Err.Error()
			}
		}
		fmt.Fprintln(w, line)
		for _, warn := range o.Warnings {
			fmt.Fprintln(w, "    "+WarningStyle.Render("warning: ")+warn)
		}
	}

	if conflicts := s.Conflicts(); len(conflicts) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, WarningStyle.Render("Preserved your edits to:"))
		for _, p := range conflicts {
			fmt.Fprintln(w, "  "+CmdStyle.Render(string(p)))
		}
	}
	if s.Degraded {
		fmt.Fprintln(w)
		fmt.Fprintln(w, WarningStyle.Render("No manifest was found; existing files were adopted and overwritten."))
	}
}

// printIssues renders one catalog entry per distinct failure category.
func printIssues(w io.Writer, s *install.Summary, style string) {
	var ids []issue.Id
	for _, o := range s.Modules {
		id := categoryIssue(o.Category)
		if id == 0 || slices.Contains(ids, id) {
			continue
		}
		ids = append(ids, id)
	}
	if s.Degraded {
		ids = append(ids, issue.ManifestMissingId)
	}
	for _, id := range ids {
		renderIssue(w, id, style)
	}
}

func categoryIssue(c install.Category) issue.Id {
	switch c {
	case install.CategorySourceUnavailable:
		return issue.ModuleNotFoundId
	case install.CategorySchemaParse:
		return issue.SchemaParseErrorId
	case install.CategoryNetworkFetch:
		return issue.NetworkFetchFailedId
	case install.CategoryCompile:
		return issue.CompileErrorId
	case install.CategoryWriteConflict:
		return issue.WriteConflictId
	case install.CategoryConfig:
		return issue.InvalidAnswerId
	default:
		return 0
	}
}
