// SPDX-License-Identifier: MPL-2.0

// Package config handles strata's user settings using Viper with CUE as the file format.
//
// Settings are loaded from config.cue in the platform config directory
// ($XDG_CONFIG_HOME/strata on Linux, ~/Library/Application Support/strata on
// macOS, %APPDATA%\strata on Windows) or from an explicit --config path. They
// cover the install folder, the module cache, additional builtin module roots,
// remote module declarations, network timeouts, dependency installation and
// UI preferences.
//
// Files are validated against the embedded CUE schema (config_schema.cue)
// before they reach Viper.
package config
