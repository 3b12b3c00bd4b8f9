// SPDX-License-Identifier: MPL-2.0

package reconcile

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/strata-dev/strata/internal/testutil"
	"github.com/strata-dev/strata/pkg/manifest"
	"github.com/strata-dev/strata/pkg/types"
)

func newTestManifest() *manifest.Manifest {
	return manifest.New("test", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
}

func TestFileFirstAdoption(t *testing.T) {
	t.Parallel()

	project := t.TempDir()
	target := filepath.Join(project, "_strata", "core", "a.md")
	testutil.MustWriteFile(t, target, "B")

	m := newTestManifest()
	r := New(project, m.TrackedLedger(), true)
	res, err := r.File(target, []byte("A"), 0o644)
	if err != nil {
		t.Fatalf("File() error: %v", err)
	}

	if res.Decision.Action != ActionWrite {
		t.Errorf("Action = %s, want write", res.Decision.Action)
	}
	if got := testutil.MustReadFile(t, target); got != "A" {
		t.Errorf("disk content = %q, want %q", got, "A")
	}
	if h, ok := m.TrackedHash("_strata/core/a.md"); !ok || h != types.HashBytes([]byte("A")) {
		t.Errorf("tracked hash = %q, %v; want hash of A", h, ok)
	}
}

func TestFileUserEditPreservation(t *testing.T) {
	t.Parallel()

	project := t.TempDir()
	target := filepath.Join(project, "_strata", "core", "a.md")
	m := newTestManifest()

	if _, err := New(project, m.TrackedLedger(), false).File(target, []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}
	before, _ := m.TrackedHash("_strata/core/a.md")

	testutil.MustWriteFile(t, target, "my edit")

	res, err := New(project, m.TrackedLedger(), true).File(target, []byte("v2"), 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if res.Decision.Action != ActionPreserve {
		t.Errorf("Action = %s, want preserve", res.Decision.Action)
	}
	if got := testutil.MustReadFile(t, target); got != "my edit" {
		t.Errorf("disk content = %q, want the user edit", got)
	}
	if after, _ := m.TrackedHash("_strata/core/a.md"); after != before {
		t.Errorf("tracked hash changed from %s to %s", before.Short(), after.Short())
	}

	// The divergence is detected again on the next run.
	res, err = New(project, m.TrackedLedger(), true).File(target, []byte("v3"), 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if res.Decision.Action != ActionPreserve {
		t.Errorf("second run Action = %s, want preserve", res.Decision.Action)
	}
}

func TestTreeIdempotence(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	project := t.TempDir()
	dst := filepath.Join(project, "_strata", "core")
	testutil.MustWriteFile(t, filepath.Join(src, "workflows", "x", "workflow.yaml"), "name: x\n")
	testutil.MustWriteFile(t, filepath.Join(src, "tasks", "t.xml"), "<task/>")
	testutil.MustWriteFile(t, filepath.Join(src, "module.yaml"), "code: core\n")

	skipSchema := TreeOptions{Skip: func(rel string, _ fs.DirEntry) bool { return rel == "module.yaml" }}

	m := newTestManifest()
	var first Report
	results, err := New(project, m.TrackedLedger(), false).Tree(src, dst, skipSchema)
	if err != nil {
		t.Fatalf("Tree() error: %v", err)
	}
	first.Add(results...)
	if first.Count(ActionWrite) != 2 {
		t.Errorf("first run writes = %d, want 2", first.Count(ActionWrite))
	}
	if _, err := os.Stat(filepath.Join(dst, "module.yaml")); !os.IsNotExist(err) {
		t.Error("skipped entry was copied")
	}

	snapshot := m.Clone()
	var second Report
	results, err = New(project, m.TrackedLedger(), true).Tree(src, dst, skipSchema)
	if err != nil {
		t.Fatal(err)
	}
	second.Add(results...)
	if second.Count(ActionWrite) != 0 || second.Count(ActionSkip) != 2 {
		t.Errorf("second run writes=%d skips=%d, want 0 and 2", second.Count(ActionWrite), second.Count(ActionSkip))
	}
	for _, p := range snapshot.TrackedPaths() {
		a, _ := snapshot.TrackedHash(p)
		b, _ := m.TrackedHash(p)
		if a != b {
			t.Errorf("hash for %s changed on an idempotent run", p)
		}
	}
	if len(second.Conflicts()) != 0 {
		t.Errorf("Conflicts() = %v, want none", second.Conflicts())
	}
}

func TestFileRejectsPathOutsideProject(t *testing.T) {
	t.Parallel()

	project := t.TempDir()
	r := New(project, newTestManifest().TrackedLedger(), false)
	if _, err := r.File(filepath.Join(filepath.Dir(project), "escape.txt"), []byte("x"), 0o644); err == nil {
		t.Error("File() outside the project should fail")
	}
}
