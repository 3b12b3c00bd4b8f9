// SPDX-License-Identifier: MPL-2.0

package source

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/strata-dev/strata/pkg/moduledef"
	"github.com/strata-dev/strata/pkg/types"
)

const (
	// KindBuiltin is a module shipped with the binary or found in a builtin dir.
	KindBuiltin Kind = "builtin"
	// KindRemote is a module cloned from a git remote into the cache.
	KindRemote Kind = "remote-cached"
	// KindCustom is a module registered from a local path.
	KindCustom Kind = "local-custom"

	// AgentsDir holds *.agent.yaml definitions inside a module source.
	AgentsDir = "agents"
)

var (
	// ErrModuleNotFound is returned when no tier can provide a module.
	ErrModuleNotFound = errors.New("module not found")

	// ErrNetworkFetch marks a failed clone or update of a remote module.
	ErrNetworkFetch = errors.New("network fetch failed")
)

type (
	// Kind identifies the tier a module was resolved from.
	Kind string

	// ModuleSource is a resolved module.
	ModuleSource interface {
		ID() types.ModuleID
		Kind() Kind
		// Root is the module source directory.
		Root() string
		Version() string
		Dependencies() []types.ModuleID
		// SchemaPath is the module.yaml path.
		SchemaPath() string
		// TemplatePath is the directory holding agent definitions.
		TemplatePath() string
		// ArtifactRoot is the directory whose tree is copied into the install.
		ArtifactRoot() string
		// Definition is the parsed module.yaml.
		Definition() *moduledef.Module
		// Origin describes where the module came from (URL or path) for the manifest.
		Origin() string
		// Commit is the checked out commit for remote modules, empty otherwise.
		Commit() string
	}

	// ModuleNotFoundError reports a module no tier could provide.
	ModuleNotFoundError struct {
		ID types.ModuleID
		// Reasons holds the per-tier failures, if any tier knew the module.
		Reasons []error
	}

	// dirSource is a module living in a local directory.
	dirSource struct {
		def    *moduledef.Module
		kind   Kind
		root   string
		origin string
		commit string
	}
)

func (e *ModuleNotFoundError) Error() string {
	if len(e.Reasons) == 0 {
		return fmt.Sprintf("module %q not found in any source", e.ID)
	}
	return fmt.Sprintf("module %q not found: %v", e.ID, errors.Join(e.Reasons...))
}

func (e *ModuleNotFoundError) Unwrap() []error {
	return append([]error{ErrModuleNotFound}, e.Reasons...)
}

// newDirSource parses root/module.yaml.
func newDirSource(root string, kind Kind, origin string) (*dirSource, error) {
	def, err := moduledef.Load(root)
	if err != nil {
		return nil, err
	}
	if origin == "" {
		origin = root
	}
	return &dirSource{def: def, kind: kind, root: root, origin: origin}, nil
}

func (s *dirSource) ID() types.ModuleID { return s.def.Code }
func (s *dirSource) Kind() Kind { return s.kind }
func (s *dirSource) Root() string { return s.root }
func (s *dirSource) Version() string { return s.def.Version }
func (s *dirSource) Dependencies() []types.ModuleID { return s.def.Dependencies }
func (s *dirSource) SchemaPath() string { return filepath.Join(s.root, moduledef.FileName) }
func (s *dirSource) TemplatePath() string { return filepath.Join(s.root, AgentsDir) }
func (s *dirSource) ArtifactRoot() string { return s.root }
func (s *dirSource) Definition() *moduledef.Module { return s.def }
func (s *dirSource) Origin() string { return s.origin }
func (s *dirSource) Commit() string { return s.commit }
