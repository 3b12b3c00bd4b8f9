// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/strata-dev/strata/internal/issue"
	"github.com/strata-dev/strata/pkg/install"
	"github.com/strata-dev/strata/pkg/manifest"
)

type statusOptions struct {
	directory string
	fetch     bool
}

func newStatusCommand(app *App) *cobra.Command {
	opts := &statusOptions{}
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show installed modules, available updates and edited files",
		Long: `Show installed modules, available updates and edited files.

Latest versions are read from the cached module sources. Pass --fetch to
update remote caches first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.runStatus(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVarP(&opts.directory, "directory", "d", ".", "project directory to inspect")
	cmd.Flags().BoolVar(&opts.fetch, "fetch", false, "update remote module caches before comparing versions")
	return cmd
}

func (a *App) runStatus(ctx context.Context, opts *statusOptions) error {
	cfg := a.settingsOrDefault()
	registry, err := a.loadRegistry()
	if err != nil {
		return err
	}
	resolver, err := a.newResolver(cfg, registry, !opts.fetch)
	if err != nil {
		return err
	}

	report, err := install.ReadStatus(ctx, install.StatusOptions{
		ProjectDir:    opts.directory,
		InstallFolder: cfg.InstallFolder,
		Resolver:      resolver,
	})
	if errors.Is(err, manifest.ErrNotFound) {
		return newServiceError(err, issue.ManifestMissingId, "no strata install found in "+opts.directory)
	}
	if err != nil {
		return err
	}
	printStatus(a.stdout, report)
	return nil
}

func printStatus(w io.Writer, r *install.StatusReport) {
	fmt.Fprintln(w, TitleStyle.Render("Installed modules"))
	fmt.Fprintf(w, "%s: %s\n", CmdStyle.Render("install root"), r.InstallDir)
	fmt.Fprintf(w, "%s: %s\n\n", CmdStyle.Render("installer"), r.Manifest.Installation.Version)
	for _, m := range r.Modules {
		line := fmt.Sprintf("  %-12s %-10s %s", m.ID, m.Installed, SubtitleStyle.Render(m.Source))
		switch {
		case m.Err != nil:
			line += "  " + WarningStyle.Render("source unavailable")
		case m.Outdated:
			line += "  " + WarningStyle.Render("update available: "+m.Latest)
		case m.Latest != "":
			line += "  " + SuccessStyle.Render("up to date")
		}
		fmt.Fprintln(w, line)
	}

	if len(r.Drifted) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, WarningStyle.Render("Edited since install (preserved on update):"))
		for _, p := range r.Drifted {
			fmt.Fprintln(w, "  "+CmdStyle.Render(string(p)))
		}
	}
	if len(r.Missing) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, WarningStyle.Render("Missing (restored on update):"))
		for _, p := range r.Missing {
			fmt.Fprintln(w, "  "+CmdStyle.Render(string(p)))
		}
	}

	var customized []install.OverlayStatus
	for _, o := range r.Overlays {
		if o.Customized {
			customized = append(customized, o)
		}
	}
	if len(customized) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, SubtitleStyle.Render("Customized agents:"))
		for _, o := range customized {
			line := "  " + CmdStyle.Render(string(o.Path))
			if len(o.CustomizedFields) > 0 {
				line += SubtitleStyle.Render(fmt.Sprintf(" %v", o.CustomizedFields))
			}
			fmt.Fprintln(w, line)
		}
	}
}
