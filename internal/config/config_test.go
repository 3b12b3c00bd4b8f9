// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/strata-dev/strata/internal/issue"
	"github.com/strata-dev/strata/pkg/source"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	if cfg.InstallFolder != "_strata" {
		t.Errorf("InstallFolder = %q, want %q", cfg.InstallFolder, "_strata")
	}
	if cfg.NetworkTimeout != 2*time.Minute {
		t.Errorf("NetworkTimeout = %v, want 2m", cfg.NetworkTimeout)
	}
	if !cfg.DependencyInstall.Enabled {
		t.Error("expected dependency installation to be enabled by default")
	}
	if cfg.DependencyInstall.Command != source.DefaultDependencyCommand {
		t.Errorf("DependencyInstall.Command = %q", cfg.DependencyInstall.Command)
	}
	if cfg.UI.Theme != ThemeAuto {
		t.Errorf("UI.Theme = %q, want auto", cfg.UI.Theme)
	}
	if cfg.UI.Verbose || cfg.UI.Accessible {
		t.Error("expected verbose and accessible to be off by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v", err)
	}
}

func TestConfigDirOverride(t *testing.T) {
	dir := t.TempDir()
	restore := SetConfigDirOverride(dir)
	defer restore()

	got, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() error: %v", err)
	}
	if got != dir {
		t.Errorf("ConfigDir() = %q, want %q", got, dir)
	}

	reg, err := RegistryPath()
	if err != nil {
		t.Fatalf("RegistryPath() error: %v", err)
	}
	if want := filepath.Join(dir, source.RegistryFileName); reg != want {
		t.Errorf("RegistryPath() = %q, want %q", reg, want)
	}
}

func TestConfigDirXDG(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CONFIG_HOME only applies on Linux")
	}
	t.Setenv("XDG_CONFIG_HOME", "/tmp/test-xdg-config")

	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() error: %v", err)
	}
	if want := filepath.Join("/tmp/test-xdg-config", AppName); dir != want {
		t.Errorf("ConfigDir() = %q, want %q", dir, want)
	}
}

func TestCacheDir(t *testing.T) {
	t.Parallel()

	got, err := CacheDir(&Config{CacheDir: "/var/cache/strata"})
	if err != nil || got != "/var/cache/strata" {
		t.Errorf("CacheDir() = %q, %v", got, err)
	}

	got, err = CacheDir(DefaultConfig())
	if err != nil {
		t.Skipf("no user cache directory: %v", err)
	}
	if filepath.Base(got) != AppName {
		t.Errorf("CacheDir() = %q, want a %s directory", got, AppName)
	}
}

func TestLoadReturnsDefaultsWithoutFile(t *testing.T) {
	t.Parallel()

	cfg, path, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if path != "" {
		t.Errorf("resolved path = %q, want empty", path)
	}
	def := DefaultConfig()
	if cfg.InstallFolder != def.InstallFolder || cfg.NetworkTimeout != def.NetworkTimeout ||
		cfg.DependencyInstall != def.DependencyInstall || cfg.UI != def.UI {
		t.Errorf("Load() = %+v, want defaults %+v", cfg, def)
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, `
install_folder: "_agents"
network_timeout: "30s"
builtin_dirs: ["/opt/modules"]
remote_modules: [
	{code: "bmm", url: "https://example.com/bmm.git", branch: "main"},
	{code: "cis", url: "git@example.com:cis.git", path: "src/cis"},
]
dependency_install: {enabled: false}
ui: {theme: "dark"}
`)

	cfg, path, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if path != filepath.Join(dir, "config.cue") {
		t.Errorf("resolved path = %q", path)
	}
	if cfg.InstallFolder != "_agents" {
		t.Errorf("InstallFolder = %q", cfg.InstallFolder)
	}
	if cfg.NetworkTimeout != 30*time.Second {
		t.Errorf("NetworkTimeout = %v, want 30s", cfg.NetworkTimeout)
	}
	if !slices.Equal(cfg.BuiltinDirs, []string{"/opt/modules"}) {
		t.Errorf("BuiltinDirs = %v", cfg.BuiltinDirs)
	}
	if cfg.DependencyInstall.Enabled {
		t.Error("DependencyInstall.Enabled = true, want false")
	}
	if cfg.DependencyInstall.Timeout != source.DefaultDependencyTimeout {
		t.Errorf("DependencyInstall.Timeout = %v, want default", cfg.DependencyInstall.Timeout)
	}
	if cfg.Dependencies() != nil {
		t.Error("Dependencies() should be nil when disabled")
	}
	if cfg.UI.Theme != ThemeDark {
		t.Errorf("UI.Theme = %q, want dark", cfg.UI.Theme)
	}

	want := []source.Remote{
		{Code: "bmm", URL: "https://example.com/bmm.git", Branch: "main"},
		{Code: "cis", URL: "git@example.com:cis.git", Path: "src/cis"},
	}
	if got := cfg.Remotes(); !slices.Equal(got, want) {
		t.Errorf("Remotes() = %+v, want %+v", got, want)
	}
}

func TestLoadRejectsInvalidFiles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{"syntax error", "install_folder: \n"},
		{"unknown field", "container_engine: \"docker\"\n"},
		{"bad theme", "ui: {theme: \"neon\"}\n"},
		{"bad duration", "network_timeout: \"soon\"\n"},
		{"nested install folder", "install_folder: \"a/b\"\n"},
		{"remote without url", "remote_modules: [{code: \"bmm\"}]\n"},
		{"duplicate remote", "remote_modules: [{code: \"bmm\", url: \"a\"}, {code: \"bmm\", url: \"b\"}]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			writeConfig(t, dir, tt.content)
			_, _, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
			if err == nil {
				t.Fatal("Load() succeeded, want error")
			}
			var ae *issue.ActionableError
			if !errors.As(err, &ae) {
				t.Fatalf("Load() error = %T, want *issue.ActionableError", err)
			}
			if !ae.HasSuggestions() {
				t.Error("expected suggestions on config errors")
			}
		})
	}
}

func TestLoadCustomPath(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "custom.cue")
	if err := os.WriteFile(p, []byte("install_folder: \"_custom\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, path, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: p})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if path != p || cfg.InstallFolder != "_custom" {
		t.Errorf("Load() = %q from %q", cfg.InstallFolder, path)
	}

	_, _, err = NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: p + ".missing"})
	if err == nil || !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("Load(missing) error = %v", err)
	}
}

func TestLoadCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := NewProvider().Load(ctx, LoadOptions{ConfigDirPath: t.TempDir()}); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

func TestCreateDefaultConfigRoundTrips(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "strata")
	path, created, err := CreateDefaultConfig(dir)
	if err != nil {
		t.Fatalf("CreateDefaultConfig() error: %v", err)
	}
	if !created {
		t.Error("CreateDefaultConfig() created = false on first call")
	}

	cfg, _, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}
	def := DefaultConfig()
	if cfg.NetworkTimeout != def.NetworkTimeout || cfg.DependencyInstall != def.DependencyInstall || cfg.UI != def.UI {
		t.Errorf("generated config = %+v, want defaults", cfg)
	}

	if err := os.WriteFile(path, []byte("install_folder: \"_mine\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, created, err := CreateDefaultConfig(dir); err != nil || created {
		t.Errorf("CreateDefaultConfig() on existing file = %v, %v", created, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "install_folder: \"_mine\"\n" {
		t.Error("CreateDefaultConfig() overwrote an existing file")
	}
}

func TestGenerateCUEIncludesRemotes(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.RemoteModules = []RemoteModule{{Code: "bmm", URL: "https://example.com/bmm.git", Branch: "main"}}
	out := GenerateCUE(cfg)
	want := `{code: "bmm", url: "https://example.com/bmm.git", branch: "main"},`
	if !strings.Contains(out, want) {
		t.Errorf("GenerateCUE() missing %q:\n%s", want, out)
	}
}

func TestThemeValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		theme   Theme
		wantErr bool
	}{
		{"", false},
		{ThemeAuto, false},
		{ThemeDark, false},
		{ThemeLight, false},
		{"neon", true},
	}
	for _, tt := range tests {
		err := tt.theme.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("Theme(%q).Validate() = %v, wantErr %v", tt.theme, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrInvalidTheme) {
			t.Errorf("error should wrap ErrInvalidTheme, got %v", err)
		}
	}
}

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "config.cue"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
