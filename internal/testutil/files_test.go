// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMustWriteFileCreatesParents(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "a", "b", "c.txt")
	MustWriteFile(t, path, "hello\n")

	if got := MustReadFile(t, path); got != "hello\n" {
		t.Errorf("MustReadFile() = %q, want %q", got, "hello\n")
	}
}

func TestMustWriteFileOverwrites(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "f.txt")
	MustWriteFile(t, path, "one")
	MustWriteFile(t, path, "two")

	if got := MustReadFile(t, path); got != "two" {
		t.Errorf("MustReadFile() = %q, want %q", got, "two")
	}
}

func TestWriteTree(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	WriteTree(t, root, map[string]string{
		"module.yaml":             "code: x\n",
		"agents/pm.agent.yaml":    "agent: {}\n",
		"workflows/a/workflow.md": "# A\n",
	})

	for _, rel := range []string{"module.yaml", "agents/pm.agent.yaml", "workflows/a/workflow.md"} {
		if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel))); err != nil {
			t.Errorf("missing %s: %v", rel, err)
		}
	}
}
