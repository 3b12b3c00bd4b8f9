// SPDX-License-Identifier: MPL-2.0

package install

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/strata-dev/strata/pkg/agent"
	"github.com/strata-dev/strata/pkg/manifest"
	"github.com/strata-dev/strata/pkg/source"
	"github.com/strata-dev/strata/pkg/types"
)

type (
	// StatusOptions configures ReadStatus.
	StatusOptions struct {
		ProjectDir    string
		InstallFolder string
		// Resolver looks up the latest available versions. Nil skips the comparison.
		Resolver *source.Resolver
	}

	// ModuleStatus compares one installed module with its latest source.
	ModuleStatus struct {
		ID        types.ModuleID
		Name      string
		Installed string
		Source    string
		// Latest is empty when no source was consulted or found.
		Latest   string
		Outdated bool
		// Err is the resolution failure, if any.
		Err error
	}

	// OverlayStatus describes one customization overlay.
	OverlayStatus struct {
		Path types.TrackedPath
		// Customized is set when the overlay differs from the scaffold the
		// installer wrote, or was not written by the installer at all.
		Customized       bool
		CustomizedFields []string
	}

	// StatusReport is the read-only state of an install.
	StatusReport struct {
		InstallDir string
		Manifest   *manifest.Manifest
		Modules    []ModuleStatus
		// Drifted are tracked files whose content no longer matches the manifest.
		Drifted []types.TrackedPath
		// Missing are tracked files that no longer exist.
		Missing  []types.TrackedPath
		Overlays []OverlayStatus
	}
)

// ReadStatus inspects an install without modifying it. It fails with an
// error wrapping manifest.ErrNotFound when the project has no install.
func ReadStatus(ctx context.Context, opts StatusOptions) (*StatusReport, error) {
	if opts.InstallFolder == "" {
		opts.InstallFolder = DefaultInstallFolder
	}
	projectDir, err := filepath.Abs(opts.ProjectDir)
	if err != nil {
		return nil, err
	}
	installDir := filepath.Join(projectDir, opts.InstallFolder)
	m, err := manifest.NewStore(installDir).Load()
	if err != nil {
		return nil, err
	}

	report := &StatusReport{InstallDir: installDir, Manifest: m}
	for _, rec := range m.Modules {
		st := ModuleStatus{ID: rec.ID, Name: rec.Name, Installed: rec.Version, Source: rec.Source}
		if opts.Resolver != nil {
			if src, err := opts.Resolver.Resolve(ctx, rec.ID); err != nil {
				st.Err = err
			} else {
				st.Latest = src.Version()
				st.Outdated = Outdated(rec.Version, st.Latest)
			}
		}
		report.Modules = append(report.Modules, st)
	}

	for _, p := range m.TrackedPaths() {
		h, ok := m.TrackedHash(p)
		if !ok {
			continue
		}
		disk, err := types.HashFile(filepath.Join(projectDir, filepath.FromSlash(string(p))))
		switch {
		case errors.Is(err, os.ErrNotExist):
			report.Missing = append(report.Missing, p)
		case err != nil:
			return nil, fmt.Errorf("failed to hash %s: %w", p, err)
		case disk != h:
			report.Drifted = append(report.Drifted, p)
		}
	}

	overlays, err := readOverlayStatus(projectDir, installDir, m)
	if err != nil {
		return nil, err
	}
	report.Overlays = overlays
	return report, nil
}

func readOverlayStatus(projectDir, installDir string, m *manifest.Manifest) ([]OverlayStatus, error) {
	dir := filepath.Join(installDir, manifest.ConfigDirName, "agents")
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var out []OverlayStatus
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.HasSuffix(e.Name(), agent.OverlaySuffix) {
			continue
		}
		abs := filepath.Join(dir, e.Name())
		key, err := types.NewTrackedPath(projectDir, abs)
		if err != nil {
			return nil, err
		}
		disk, err := types.HashFile(abs)
		if err != nil {
			return nil, err
		}
		st := OverlayStatus{Path: key}
		tracked, ok := m.CustomizationHash(key)
		st.Customized = !ok || tracked != disk
		if ov, err := agent.LoadOverlay(abs); err == nil && ov != nil {
			st.CustomizedFields = ov.CustomizedFields
		}
		out = append(out, st)
	}
	slices.SortFunc(out, func(a, b OverlayStatus) int { return strings.Compare(string(a.Path), string(b.Path)) })
	return out, nil
}

// Outdated reports whether latest is newer than installed. Versions are
// compared as semantic versions, with or without a leading "v"; anything
// else is outdated when the strings differ.
func Outdated(installed, latest string) bool {
	a, b := canonicalVersion(installed), canonicalVersion(latest)
	if semver.IsValid(a) && semver.IsValid(b) {
		return semver.Compare(a, b) < 0
	}
	return latest != "" && installed != latest
}

func canonicalVersion(v string) string {
	if v == "" || strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}
