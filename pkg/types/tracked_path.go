// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// ErrInvalidTrackedPath is the sentinel error wrapped by InvalidTrackedPathError.
var ErrInvalidTrackedPath = errors.New("invalid tracked path")

type (
	// TrackedPath is a manifest key: a slash-separated path relative to the
	// project directory. Keys never start with "/" or escape the project with "..".
	TrackedPath string

	// InvalidTrackedPathError is returned when a TrackedPath is absolute, empty or escapes the root.
	InvalidTrackedPathError struct {
		Value TrackedPath
	}
)

// NewTrackedPath converts an absolute path under root into a TrackedPath.
func NewTrackedPath(root, abs string) (TrackedPath, error) {
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", fmt.Errorf("relativizing %s to %s: %w", abs, root, err)
	}
	p := TrackedPath(filepath.ToSlash(rel))
	if err := p.Validate(); err != nil {
		return "", err
	}
	return p, nil
}

// Error implements the error interface for InvalidTrackedPathError.
func (e *InvalidTrackedPathError) Error() string {
	return fmt.Sprintf("invalid tracked path %q (must be relative to the project and stay inside it)", e.Value)
}

// Unwrap returns ErrInvalidTrackedPath for errors.Is() compatibility.
func (e *InvalidTrackedPathError) Unwrap() error { return ErrInvalidTrackedPath }

// Validate returns an error if the path is empty, absolute or escapes the project root.
func (p TrackedPath) Validate() error {
	s := string(p)
	if strings.TrimSpace(s) == "" || strings.HasPrefix(s, "/") || strings.Contains(s, `\`) {
		return &InvalidTrackedPathError{Value: p}
	}
	clean := path.Clean(s)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return &InvalidTrackedPathError{Value: p}
	}
	return nil
}

// Abs joins the path onto root using the platform separator.
func (p TrackedPath) Abs(root string) string {
	return filepath.Join(root, filepath.FromSlash(string(p)))
}

// String returns the string representation of the TrackedPath.
func (p TrackedPath) String() string { return string(p) }
