// SPDX-License-Identifier: MPL-2.0

package reconcile

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/strata-dev/strata/pkg/types"
)

type (
	// Ledger is the hash record consulted and updated by a Reconciler.
	// *manifest.Ledger satisfies it.
	Ledger interface {
		Lookup(p types.TrackedPath) (types.ContentHash, bool)
		Record(p types.TrackedPath, h types.ContentHash)
	}

	// Reconciler applies Decide to files under a project directory.
	Reconciler struct {
		projectDir string
		ledger     Ledger
		isUpdate   bool
	}

	// Result describes what happened to one target file.
	Result struct {
		Path     types.TrackedPath
		Decision Decision
	}

	// TreeOptions configures Reconciler.Tree.
	TreeOptions struct {
		// Skip excludes source entries. rel is slash-separated and relative to the source root.
		Skip func(rel string, d fs.DirEntry) bool
	}

	// Report accumulates the results of a reconciliation pass.
	Report struct {
		Results []Result
	}
)

// New returns a Reconciler writing under projectDir and recording into ledger.
func New(projectDir string, ledger Ledger, isUpdate bool) *Reconciler {
	return &Reconciler{projectDir: projectDir, ledger: ledger, isUpdate: isUpdate}
}

// File reconciles content into the file at target (an absolute path inside the project).
func (r *Reconciler) File(target string, content []byte, mode fs.FileMode) (Result, error) {
	key, err := types.NewTrackedPath(r.projectDir, target)
	if err != nil {
		return Result{}, err
	}

	in := Input{IsUpdate: r.isUpdate, NewHash: types.HashBytes(content)}
	in.TrackedHash, in.Tracked = r.ledger.Lookup(key)

	diskHash, err := types.HashFile(target)
	switch {
	case err == nil:
		in.OnDisk, in.DiskHash = true, diskHash
	case os.IsNotExist(err):
	default:
		return Result{}, fmt.Errorf("failed to read %s: %w", key, err)
	}

	d := Decide(in)
	if d.Action == ActionWrite {
		if err := writeFile(target, content, mode); err != nil {
			return Result{}, err
		}
	}
	if d.Record {
		r.ledger.Record(key, in.NewHash)
	}

	if d.Action == ActionPreserve {
		slog.Info("preserving user-modified file", "path", key)
	} else {
		slog.Debug("reconciled file", "path", key, "state", d.State, "action", d.Action)
	}
	return Result{Path: key, Decision: d}, nil
}

// Tree reconciles every regular file under srcRoot into the same relative
// location under dstRoot. Symlinks are skipped.
func (r *Reconciler) Tree(srcRoot, dstRoot string, opts TreeOptions) ([]Result, error) {
	var results []Result
	err := filepath.WalkDir(srcRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(srcRoot, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		relSlash := filepath.ToSlash(rel)
		if opts.Skip != nil && opts.Skip(relSlash, d) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || d.Type()&fs.ModeSymlink != 0 || !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		res, err := r.File(filepath.Join(dstRoot, rel), content, info.Mode().Perm())
		if err != nil {
			return err
		}
		results = append(results, res)
		return nil
	})
	if err != nil {
		return results, fmt.Errorf("failed to reconcile tree %s: %w", srcRoot, err)
	}
	return results, nil
}

func writeFile(target string, content []byte, mode fs.FileMode) error {
	if mode == 0 {
		mode = 0o644
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", target, err)
	}
	if err := os.WriteFile(target, content, mode); err != nil {
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	return nil
}

// Add appends results to the report.
func (rep *Report) Add(results ...Result) {
	rep.Results = append(rep.Results, results...)
}

// Count returns the number of results with action a.
func (rep *Report) Count(a Action) int {
	n := 0
	for _, res := range rep.Results {
		if res.Decision.Action == a {
			n++
		}
	}
	return n
}

// Conflicts returns the paths preserved because the user modified them.
func (rep *Report) Conflicts() []types.TrackedPath {
	var out []types.TrackedPath
	for _, res := range rep.Results {
		if res.Decision.Action == ActionPreserve {
			out = append(out, res.Path)
		}
	}
	return out
}
