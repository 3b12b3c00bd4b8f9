// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"cmp"
	"maps"
	"slices"
	"time"

	"github.com/strata-dev/strata/pkg/types"
)

type (
	// Manifest is the installation record stored in manifest.yaml.
	Manifest struct {
		Installation       Installation                              `yaml:"installation"`
		Modules            []ModuleRecord                            `yaml:"modules"`
		TrackedFiles       map[types.TrackedPath]types.ContentHash `yaml:"trackedFiles"`
		CustomizationFiles map[types.TrackedPath]types.ContentHash `yaml:"customizationFiles"`
	}

	// Installation is the manifest metadata block.
	Installation struct {
		// Version is the installer version that last wrote the manifest.
		Version      string    `yaml:"version"`
		InstallDate  time.Time `yaml:"installDate"`
		LastModified time.Time `yaml:"lastModified"`
	}

	// ModuleRecord describes one installed module.
	ModuleRecord struct {
		ID      types.ModuleID `yaml:"id"`
		Name    string         `yaml:"name,omitempty"`
		Version string         `yaml:"version"`
		// Source is the tier the module was resolved from (builtin, remote-cached, local-custom).
		Source string `yaml:"source"`
		// SourcePath is the custom path or remote URL, empty for builtin modules.
		SourcePath string `yaml:"sourcePath,omitempty"`
		// Commit is the resolved commit for remote modules.
		Commit      string    `yaml:"commit,omitempty"`
		InstallDate time.Time `yaml:"installDate"`
		LastUpdated time.Time `yaml:"lastUpdated"`
	}
)

// New creates an empty manifest stamped with the installer version.
func New(toolVersion string, now time.Time) *Manifest {
	now = now.UTC().Truncate(time.Second)
	return &Manifest{
		Installation: Installation{
			Version:      toolVersion,
			InstallDate:  now,
			LastModified: now,
		},
		TrackedFiles:       make(map[types.TrackedPath]types.ContentHash),
		CustomizationFiles: make(map[types.TrackedPath]types.ContentHash),
	}
}

// TrackedHash returns the last known hash of a tracked file.
func (m *Manifest) TrackedHash(p types.TrackedPath) (types.ContentHash, bool) {
	h, ok := m.TrackedFiles[p]
	return h, ok
}

// Track records the hash of a file that is on disk after a reconciliation.
func (m *Manifest) Track(p types.TrackedPath, h types.ContentHash) {
	if m.TrackedFiles == nil {
		m.TrackedFiles = make(map[types.TrackedPath]types.ContentHash)
	}
	m.TrackedFiles[p] = h
}

// Untrack forgets a tracked file.
func (m *Manifest) Untrack(p types.TrackedPath) {
	delete(m.TrackedFiles, p)
}

// CustomizationHash returns the last known hash of an overlay file.
func (m *Manifest) CustomizationHash(p types.TrackedPath) (types.ContentHash, bool) {
	h, ok := m.CustomizationFiles[p]
	return h, ok
}

// TrackCustomization records the hash of an overlay file.
func (m *Manifest) TrackCustomization(p types.TrackedPath, h types.ContentHash) {
	if m.CustomizationFiles == nil {
		m.CustomizationFiles = make(map[types.TrackedPath]types.ContentHash)
	}
	m.CustomizationFiles[p] = h
}

// Module returns the record for id.
func (m *Manifest) Module(id types.ModuleID) (ModuleRecord, bool) {
	for _, rec := range m.Modules {
		if rec.ID == id {
			return rec, true
		}
	}
	return ModuleRecord{}, false
}

// UpsertModule inserts or replaces the record for rec.ID, preserving the
// original install date of an existing record. It reports whether anything
// other than LastUpdated changed.
func (m *Manifest) UpsertModule(rec ModuleRecord) bool {
	for i, existing := range m.Modules {
		if existing.ID != rec.ID {
			continue
		}
		rec.InstallDate = existing.InstallDate
		changed := existing.Version != rec.Version || existing.Source != rec.Source ||
			existing.SourcePath != rec.SourcePath || existing.Commit != rec.Commit || existing.Name != rec.Name
		if !changed {
			rec.LastUpdated = existing.LastUpdated
		}
		m.Modules[i] = rec
		return changed
	}
	m.Modules = append(m.Modules, rec)
	slices.SortStableFunc(m.Modules, func(a, b ModuleRecord) int { return cmp.Compare(a.ID, b.ID) })
	return true
}

// ModuleIDs returns the installed module ids in manifest order.
func (m *Manifest) ModuleIDs() []types.ModuleID {
	ids := make([]types.ModuleID, 0, len(m.Modules))
	for _, rec := range m.Modules {
		ids = append(ids, rec.ID)
	}
	return ids
}

// TrackedPaths returns all tracked file paths, sorted.
func (m *Manifest) TrackedPaths() []types.TrackedPath {
	return slices.Sorted(maps.Keys(m.TrackedFiles))
}

// Touch bumps LastModified.
func (m *Manifest) Touch(toolVersion string, now time.Time) {
	m.Installation.Version = toolVersion
	m.Installation.LastModified = now.UTC().Truncate(time.Second)
}

// Clone returns a deep copy of the manifest.
func (m *Manifest) Clone() *Manifest {
	return &Manifest{
		Installation:       m.Installation,
		Modules:            slices.Clone(m.Modules),
		TrackedFiles:       maps.Clone(m.TrackedFiles),
		CustomizationFiles: maps.Clone(m.CustomizationFiles),
	}
}
