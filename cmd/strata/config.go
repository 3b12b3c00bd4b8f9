// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/strata-dev/strata/internal/config"
)

// newConfigCommand creates the `strata config` command tree. Its commands
// still run when the config file is unreadable.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage strata configuration",
		Long: `Manage strata configuration.

Configuration is stored in:
  - Linux: ~/.config/strata/config.cue
  - macOS: ~/Library/Application Support/strata/config.cue
  - Windows: %APPDATA%\strata\config.cue`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.initRootConfig(cmd.Context(), true)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return showConfig(app.stdout, app.settingsOrDefault(), app.configPath)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, created, err := config.CreateDefaultConfig("")
			if err != nil {
				return err
			}
			if !created {
				fmt.Fprintf(app.stdout, "%s %s\n", WarningStyle.Render("Config file already exists:"), path)
				return nil
			}
			fmt.Fprintf(app.stdout, "%s %s\n", SuccessStyle.Render("Created config file:"), path)
			return nil
		},
	})

	return cfgCmd
}

func showConfig(w io.Writer, cfg *config.Config, path string) error {
	keyStyle := CmdStyle
	valueStyle := SuccessStyle

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	if path != "" {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), path)
	} else {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	cacheDir, err := config.CacheDir(cfg)
	if err != nil {
		return err
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("install_folder"), valueStyle.Render(cfg.InstallFolder))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("cache_dir"), valueStyle.Render(cacheDir))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("network_timeout"), valueStyle.Render(cfg.NetworkTimeout.String()))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("builtin_dirs"))
	if len(cfg.BuiltinDirs) == 0 {
		fmt.Fprintf(w, "  %s\n", SubtitleStyle.Render("(none configured)"))
	}
	for _, dir := range cfg.BuiltinDirs {
		fmt.Fprintf(w, "  - %s\n", valueStyle.Render(dir))
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("remote_modules"))
	if len(cfg.RemoteModules) == 0 {
		fmt.Fprintf(w, "  %s\n", SubtitleStyle.Render("(none configured)"))
	}
	for _, rm := range cfg.RemoteModules {
		line := fmt.Sprintf("  - %s %s", valueStyle.Render(string(rm.Code)), rm.URL)
		if rm.Branch != "" {
			line += " (branch: " + rm.Branch + ")"
		}
		if rm.Path != "" {
			line += " (path: " + rm.Path + ")"
		}
		fmt.Fprintln(w, line)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("dependency_install"))
	fmt.Fprintf(w, "  enabled: %s\n", valueStyle.Render(fmt.Sprintf("%v", cfg.DependencyInstall.Enabled)))
	fmt.Fprintf(w, "  command: %s\n", valueStyle.Render(cfg.DependencyInstall.Command))
	fmt.Fprintf(w, "  timeout: %s\n", valueStyle.Render(cfg.DependencyInstall.Timeout.String()))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("ui"))
	fmt.Fprintf(w, "  theme: %s\n", valueStyle.Render(string(cfg.UI.Theme)))
	fmt.Fprintf(w, "  verbose: %s\n", valueStyle.Render(fmt.Sprintf("%v", cfg.UI.Verbose)))
	fmt.Fprintf(w, "  accessible: %s\n", valueStyle.Render(fmt.Sprintf("%v", cfg.UI.Accessible)))
	return nil
}
