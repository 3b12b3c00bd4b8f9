// SPDX-License-Identifier: MPL-2.0

package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/strata-dev/strata/pkg/types"
)

// RegistryFileName is the custom module registry kept in the user config dir.
const RegistryFileName = "custom-modules.toml"

type (
	// CustomModule is a registry entry.
	CustomModule struct {
		Code types.ModuleID `toml:"code"`
		Path string         `toml:"path"`
	}

	// Registry is the set of local module directories the user has registered.
	Registry struct {
		path    string
		Modules []CustomModule `toml:"module"`
	}
)

// LoadRegistry reads the registry at path. A missing file is an empty registry.
func LoadRegistry(path string) (*Registry, error) {
	r := &Registry{path: path}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return r, nil
}

// Lookup returns the registered path for code.
func (r *Registry) Lookup(code types.ModuleID) (string, bool) {
	if r == nil {
		return "", false
	}
	for _, m := range r.Modules {
		if m.Code == code {
			return m.Path, true
		}
	}
	return "", false
}

// Add registers (or re-points) code at the absolute form of dir.
// It reports whether the registry changed.
func (r *Registry) Add(code types.ModuleID, dir string) (bool, error) {
	if err := code.Validate(); err != nil {
		return false, err
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return false, err
	}
	for i := range r.Modules {
		if r.Modules[i].Code == code {
			if r.Modules[i].Path == abs {
				return false, nil
			}
			r.Modules[i].Path = abs
			return true, nil
		}
	}
	r.Modules = append(r.Modules, CustomModule{Code: code, Path: abs})
	slices.SortFunc(r.Modules, func(a, b CustomModule) int { return strings.Compare(string(a.Code), string(b.Code)) })
	return true, nil
}

// Save writes the registry back to the path it was loaded from.
func (r *Registry) Save() error {
	if r.path == "" {
		return errors.New("registry has no backing file")
	}
	data, err := toml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(r.path), err)
	}
	header := []byte("# Local module directories registered with `strata install --custom-path`.\n\n")
	return os.WriteFile(r.path, append(header, data...), 0o644)
}
