// SPDX-License-Identifier: MPL-2.0

// Package builtin embeds the module sources that ship inside the strata binary.
package builtin

import (
	"embed"
	"io/fs"
)

//go:embed all:core
var modules embed.FS

// Modules returns one filesystem per embedded module, rooted at the module directory.
func Modules() []fs.FS {
	entries, err := fs.ReadDir(modules, ".")
	if err != nil {
		return nil
	}
	var out []fs.FS
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		sub, err := fs.Sub(modules, e.Name())
		if err != nil {
			continue
		}
		out = append(out, sub)
	}
	return out
}
