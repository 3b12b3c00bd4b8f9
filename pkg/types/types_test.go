// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestModuleIDValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id    ModuleID
		valid bool
	}{
		{"core", true},
		{"bmm", true},
		{"game-dev2", true},
		{"", false},
		{"Core", false},
		{"my_module", false},
		{"1abc", false},
	}

	for _, tt := range tests {
		err := tt.id.Validate()
		if (err == nil) != tt.valid {
			t.Errorf("ModuleID(%q).Validate() error = %v, want valid %v", tt.id, err, tt.valid)
		}
		if err != nil && !errors.Is(err, ErrInvalidModuleID) {
			t.Errorf("ModuleID(%q).Validate() error should wrap ErrInvalidModuleID, got %v", tt.id, err)
		}
	}
}

func TestHashBytes(t *testing.T) {
	t.Parallel()

	// sha256("A")
	const want = ContentHash("559aead08264d5795d3909718cdd05abd49572e84fe55590eef31a88a08fdffd")
	if got := HashBytes([]byte("A")); got != want {
		t.Errorf("HashBytes(%q) = %s, want %s", "A", got, want)
	}
	if err := want.Validate(); err != nil {
		t.Errorf("Validate() returned error for a real digest: %v", err)
	}
	if got := want.Short(); got != "559aead08264" {
		t.Errorf("Short() = %q, want %q", got, "559aead08264")
	}
}

func TestHashFileMatchesHashBytes(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "f.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile() error: %v", err)
	}
	if want := HashBytes([]byte("hello")); got != want {
		t.Errorf("HashFile() = %s, want %s", got, want)
	}
}

func TestContentHashValidateRejectsGarbage(t *testing.T) {
	t.Parallel()

	for _, h := range []ContentHash{"", "abc", ContentHash(string(make([]byte, 64)))} {
		if err := h.Validate(); !errors.Is(err, ErrInvalidContentHash) {
			t.Errorf("ContentHash(%q).Validate() = %v, want ErrInvalidContentHash", h, err)
		}
	}
}

func TestTrackedPath(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	p, err := NewTrackedPath(root, filepath.Join(root, "_strata", "core", "agents", "a.md"))
	if err != nil {
		t.Fatalf("NewTrackedPath() error: %v", err)
	}
	if p != "_strata/core/agents/a.md" {
		t.Errorf("NewTrackedPath() = %q, want %q", p, "_strata/core/agents/a.md")
	}
	if got := p.Abs(root); got != filepath.Join(root, "_strata", "core", "agents", "a.md") {
		t.Errorf("Abs() = %q", got)
	}

	if _, err := NewTrackedPath(root, filepath.Dir(root)); !errors.Is(err, ErrInvalidTrackedPath) {
		t.Errorf("NewTrackedPath() outside root error = %v, want ErrInvalidTrackedPath", err)
	}

	for _, bad := range []TrackedPath{"", "/etc/passwd", "../x", ".", "a/../../b"} {
		if err := bad.Validate(); err == nil {
			t.Errorf("TrackedPath(%q).Validate() = nil, want error", bad)
		}
	}
}
