// SPDX-License-Identifier: MPL-2.0

package vendoring

import (
	"io/fs"
	"os"
	"path/filepath"
)

// SkipFunc excludes entries from CopyTree. rel is slash-separated and
// relative to the source root.
type SkipFunc func(rel string, d fs.DirEntry) bool

// CopyTree recursively copies src into dst, overwriting existing files.
// Symlinks and other non-regular files are skipped.
func CopyTree(src, dst string, skip SkipFunc) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if rel != "." && skip != nil && skip(filepath.ToSlash(rel), d) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		switch {
		case d.IsDir():
			return os.MkdirAll(target, 0o755)
		case !d.Type().IsRegular():
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, info.Mode().Perm())
	})
}
