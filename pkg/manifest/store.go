// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/strata-dev/strata/pkg/types"

	"gopkg.in/yaml.v3"
)

const (
	// ConfigDirName is the installer-owned folder inside the install folder.
	ConfigDirName = "_config"
	// FileName is the manifest file name inside ConfigDirName.
	FileName = "manifest.yaml"
)

// ErrNotFound is returned by Load when no manifest exists at the store path.
var ErrNotFound = errors.New("manifest not found")

// Store reads and writes a manifest at a fixed path.
type Store struct {
	path string
}

// NewStore returns the store for the install folder installDir.
func NewStore(installDir string) *Store {
	return &Store{path: filepath.Join(installDir, ConfigDirName, FileName)}
}

// Path returns the manifest file path.
func (s *Store) Path() string { return s.path }

// Exists reports whether a manifest file is present.
func (s *Store) Exists() bool {
	info, err := os.Stat(s.path)
	return err == nil && !info.IsDir()
}

// Load reads the manifest. A missing file returns an error wrapping ErrNotFound.
func (s *Store) Load() (*Manifest, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", s.path, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", s.path, err)
	}
	if m.TrackedFiles == nil {
		m.TrackedFiles = make(map[types.TrackedPath]types.ContentHash)
	}
	if m.CustomizationFiles == nil {
		m.CustomizationFiles = make(map[types.TrackedPath]types.ContentHash)
	}
	return &m, nil
}

// LoadOrNew loads the manifest, or returns a fresh one when none exists.
// The boolean reports whether an existing manifest was found.
func (s *Store) LoadOrNew(toolVersion string, now time.Time) (*Manifest, bool, error) {
	m, err := s.Load()
	if err == nil {
		return m, true, nil
	}
	if errors.Is(err, ErrNotFound) {
		return New(toolVersion, now), false, nil
	}
	return nil, false, err
}

// Save writes the manifest atomically using a temp file and rename.
func (s *Store) Save(m *Manifest) error {
	data, err := Marshal(m)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath) // Best-effort cleanup of temp file
		return fmt.Errorf("failed to rename manifest: %w", err)
	}
	return nil
}

// Marshal renders the manifest document. Map keys are emitted sorted, so equal
// manifests always produce identical bytes.
func Marshal(m *Manifest) ([]byte, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	header := []byte("# Installation manifest - maintained by strata. Do not edit by hand.\n")
	return append(header, data...), nil
}
