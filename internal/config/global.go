// SPDX-License-Identifier: MPL-2.0

package config

// configDirOverride replaces the platform config directory when set.
// os.UserHomeDir() doesn't reliably respect HOME on all platforms
// (e.g., macOS in CI), so tests and testscript runs set this instead.
var configDirOverride string

// SetConfigDirOverride points ConfigDir at dir and returns a function
// restoring the previous value. An empty dir restores platform lookup.
func SetConfigDirOverride(dir string) (restore func()) {
	prev := configDirOverride
	configDirOverride = dir
	return func() { configDirOverride = prev }
}
