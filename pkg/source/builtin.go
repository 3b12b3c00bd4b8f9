// SPDX-License-Identifier: MPL-2.0

package source

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/strata-dev/strata/pkg/moduledef"
	"github.com/strata-dev/strata/pkg/types"
)

// treeSumSuffix names the file next to a materialized module that records
// the hash of the tree it was copied from.
const treeSumSuffix = ".sum"

// Materialize copies an embedded module tree to
// <cacheDir>/builtin/<code>@<version> and returns that directory. An existing
// copy is reused only when it was made from an identical tree.
func Materialize(fsys fs.FS, cacheDir string) (string, error) {
	schema, err := fs.ReadFile(fsys, moduledef.FileName)
	if err != nil {
		return "", fmt.Errorf("embedded module has no %s: %w", moduledef.FileName, err)
	}
	def, err := moduledef.Parse(schema, "embedded/"+moduledef.FileName)
	if err != nil {
		return "", err
	}

	version := def.Version
	if version == "" {
		version = "0.0.0"
	}
	dest := filepath.Join(cacheDir, "builtin", fmt.Sprintf("%s@%s", def.Code, version))

	sum, err := treeHash(fsys)
	if err != nil {
		return "", fmt.Errorf("failed to hash builtin module %s: %w", def.Code, err)
	}
	sumPath := dest + treeSumSuffix
	if existing, err := os.ReadFile(sumPath); err == nil && strings.TrimSpace(string(existing)) == string(sum) {
		if _, err := os.Stat(filepath.Join(dest, moduledef.FileName)); err == nil {
			return dest, nil
		}
	}

	// Stage next to the destination so the final rename stays on one filesystem.
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("failed to create builtin cache: %w", err)
	}
	staging, err := os.MkdirTemp(filepath.Dir(dest), ".materialize-*")
	if err != nil {
		return "", fmt.Errorf("failed to create staging dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(staging) }() // best-effort cleanup

	if err := os.CopyFS(staging, fsys); err != nil {
		return "", fmt.Errorf("failed to materialize builtin module %s: %w", def.Code, err)
	}
	if err := os.RemoveAll(dest); err != nil {
		return "", fmt.Errorf("failed to replace %s: %w", dest, err)
	}
	if err := os.Rename(staging, dest); err != nil {
		return "", fmt.Errorf("failed to move builtin module into place: %w", err)
	}
	if err := os.WriteFile(sumPath, []byte(sum+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("failed to record builtin module hash: %w", err)
	}
	return dest, nil
}

// treeHash digests every file path and content of fsys in lexical order.
func treeHash(fsys fs.FS) (types.ContentHash, error) {
	var b bytes.Buffer
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		fmt.Fprintf(&b, "%s\x00%s\n", p, types.HashBytes(data))
		return nil
	})
	if err != nil {
		return "", err
	}
	return types.HashBytes(b.Bytes()), nil
}
