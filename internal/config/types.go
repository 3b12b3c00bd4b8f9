// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/strata-dev/strata/pkg/source"
	"github.com/strata-dev/strata/pkg/types"
)

const (
	// ThemeAuto detects the terminal background automatically.
	ThemeAuto Theme = "auto"
	// ThemeDark forces the dark palette.
	ThemeDark Theme = "dark"
	// ThemeLight forces the light palette.
	ThemeLight Theme = "light"

	// DefaultInstallFolder is the install root created inside a project.
	DefaultInstallFolder = "_strata"
)

var (
	// ErrInvalidTheme is returned when a Theme value is not recognized.
	ErrInvalidTheme = errors.New("invalid theme")
	// ErrInvalidRemoteModule is the sentinel error wrapped by InvalidRemoteModuleError.
	ErrInvalidRemoteModule = errors.New("invalid remote module")
)

type (
	// Theme selects the terminal palette.
	Theme string

	// InvalidThemeError is returned when a Theme value is not recognized.
	// It wraps ErrInvalidTheme for errors.Is() compatibility.
	InvalidThemeError struct {
		Value Theme
	}

	// InvalidRemoteModuleError is returned when a remote_modules entry is
	// malformed or duplicates another entry's code.
	InvalidRemoteModuleError struct {
		Index  int
		Code   types.ModuleID
		Reason string
	}

	// Config holds strata's user settings.
	Config struct {
		// InstallFolder is the directory created inside the project (default: _strata)
		InstallFolder string `json:"install_folder" mapstructure:"install_folder"`
		// CacheDir holds materialized builtin modules and remote clones.
		// Empty means the platform user cache directory.
		CacheDir string `json:"cache_dir" mapstructure:"cache_dir"`
		// BuiltinDirs are extra directories whose subdirectories are modules.
		BuiltinDirs []string `json:"builtin_dirs" mapstructure:"builtin_dirs"`
		// RemoteModules declares modules hosted in git repositories.
		RemoteModules []RemoteModule `json:"remote_modules" mapstructure:"remote_modules"`
		// NetworkTimeout bounds one clone or update of a remote module.
		NetworkTimeout time.Duration `json:"network_timeout" mapstructure:"network_timeout"`
		// DependencyInstall configures dependency installation in remote clones.
		DependencyInstall DependencyInstallConfig `json:"dependency_install" mapstructure:"dependency_install"`
		// UI configures the user interface
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// RemoteModule declares one module hosted in a git repository.
	RemoteModule struct {
		Code types.ModuleID `json:"code" mapstructure:"code"`
		URL  string         `json:"url" mapstructure:"url"`
		// Path is the module directory inside the repository (default: root).
		Path string `json:"path,omitempty" mapstructure:"path"`
		// Branch defaults to the remote HEAD.
		Branch string `json:"branch,omitempty" mapstructure:"branch"`
	}

	// DependencyInstallConfig controls dependency installation in remote clones.
	DependencyInstallConfig struct {
		Enabled bool          `json:"enabled" mapstructure:"enabled"`
		Command string        `json:"command" mapstructure:"command"`
		Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// Verbose enables debug logging
		Verbose bool `json:"verbose" mapstructure:"verbose"`
		// Theme sets the palette used for prompts and output
		Theme Theme `json:"theme" mapstructure:"theme"`
		// Accessible forces line-based prompts even on a terminal
		Accessible bool `json:"accessible" mapstructure:"accessible"`
	}
)

// Error implements the error interface for InvalidThemeError.
func (e *InvalidThemeError) Error() string {
	return fmt.Sprintf("invalid theme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns ErrInvalidTheme for errors.Is() compatibility.
func (e *InvalidThemeError) Unwrap() error { return ErrInvalidTheme }

// Validate returns an error if the Theme is not one of the defined themes.
// The zero value is treated as ThemeAuto.
func (t Theme) Validate() error {
	switch t {
	case "", ThemeAuto, ThemeDark, ThemeLight:
		return nil
	default:
		return &InvalidThemeError{Value: t}
	}
}

// String returns the string representation of the Theme.
func (t Theme) String() string { return string(t) }

// Error implements the error interface for InvalidRemoteModuleError.
func (e *InvalidRemoteModuleError) Error() string {
	return fmt.Sprintf("remote_modules[%d] (%s): %s", e.Index, e.Code, e.Reason)
}

// Unwrap returns ErrInvalidRemoteModule for errors.Is() compatibility.
func (e *InvalidRemoteModuleError) Unwrap() error { return ErrInvalidRemoteModule }

// Validate checks the constraints CUE cannot express: remote codes must be
// unique and valid module ids.
func (c *Config) Validate() error {
	var errs []error
	seen := make(map[types.ModuleID]int, len(c.RemoteModules))
	for i, rm := range c.RemoteModules {
		if err := rm.Code.Validate(); err != nil {
			errs = append(errs, &InvalidRemoteModuleError{Index: i, Code: rm.Code, Reason: err.Error()})
			continue
		}
		if first, dup := seen[rm.Code]; dup {
			errs = append(errs, &InvalidRemoteModuleError{Index: i, Code: rm.Code, Reason: fmt.Sprintf("duplicate of remote_modules[%d]", first)})
			continue
		}
		seen[rm.Code] = i
	}
	if err := c.UI.Theme.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Remotes converts the remote module declarations for the source resolver.
func (c *Config) Remotes() []source.Remote {
	out := make([]source.Remote, 0, len(c.RemoteModules))
	for _, rm := range c.RemoteModules {
		out = append(out, source.Remote{Code: rm.Code, URL: rm.URL, Path: rm.Path, Branch: rm.Branch})
	}
	return out
}

// Dependencies returns the dependency installer for the source resolver,
// or nil when dependency installation is disabled.
func (c *Config) Dependencies() *source.DependencyInstaller {
	if !c.DependencyInstall.Enabled {
		return nil
	}
	return &source.DependencyInstaller{Command: c.DependencyInstall.Command, Timeout: c.DependencyInstall.Timeout}
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		InstallFolder:  DefaultInstallFolder,
		CacheDir:       "", // resolved by CacheDir() when empty
		BuiltinDirs:    []string{},
		RemoteModules:  []RemoteModule{},
		NetworkTimeout: source.DefaultNetworkTimeout,
		DependencyInstall: DependencyInstallConfig{
			Enabled: true,
			Command: source.DefaultDependencyCommand,
			Timeout: source.DefaultDependencyTimeout,
		},
		UI: UIConfig{
			Verbose:    false,
			Theme:      ThemeAuto,
			Accessible: false,
		},
	}
}
