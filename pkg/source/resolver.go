// SPDX-License-Identifier: MPL-2.0

package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/strata-dev/strata/pkg/moduledef"
	"github.com/strata-dev/strata/pkg/types"
)

// DefaultNetworkTimeout bounds one clone or update of a remote module.
const DefaultNetworkTimeout = 2 * time.Minute

type (
	// Remote declares a module hosted in a git repository.
	Remote struct {
		Code types.ModuleID
		URL  string
		// Path is the module directory inside the repository.
		Path   string
		Branch string
	}

	// Options configures a Resolver.
	Options struct {
		// CacheDir holds materialized builtin modules and remote clones.
		CacheDir string
		// Builtin are embedded module trees, one per module.
		Builtin []fs.FS
		// BuiltinDirs are directories whose subdirectories are builtin modules.
		BuiltinDirs []string
		Remotes     []Remote
		Registry    *Registry
		Fetcher     Fetcher
		// Dependencies is nil to skip dependency installation.
		Dependencies   *DependencyInstaller
		NetworkTimeout time.Duration
		// Offline uses existing remote caches without fetching.
		Offline bool
	}

	// Resolver locates module sources. Results are memoized for the lifetime
	// of the Resolver, which is one install run.
	Resolver struct {
		opts      Options
		resolved  map[types.ModuleID]ModuleSource
		refreshed map[string]string
		fallbacks map[types.ModuleID]error
		builtins  map[types.ModuleID]string
		scanned   bool
		// broken maps builtin directory names to their schema errors.
		broken map[types.ModuleID]error
	}
)

// NewResolver creates a Resolver.
func NewResolver(opts Options) *Resolver {
	if opts.NetworkTimeout <= 0 {
		opts.NetworkTimeout = DefaultNetworkTimeout
	}
	return &Resolver{
		opts:      opts,
		resolved:  make(map[types.ModuleID]ModuleSource),
		refreshed: make(map[string]string),
		fallbacks: make(map[types.ModuleID]error),
	}
}

// FetchFailure returns the update error of a remote module that was served
// from its cache instead, or nil.
func (r *Resolver) FetchFailure(id types.ModuleID) error { return r.fallbacks[id] }

// AddCustom registers dir as the local-custom source of id for this
// resolver unless the registry already knows id. The registry file is not
// written.
func (r *Resolver) AddCustom(id types.ModuleID, dir string) error {
	if _, ok := r.opts.Registry.Lookup(id); ok {
		return nil
	}
	if r.opts.Registry == nil {
		r.opts.Registry = &Registry{}
	}
	_, err := r.opts.Registry.Add(id, dir)
	return err
}

// Resolve locates id, trying the custom registry, then remote declarations,
// then builtin modules.
func (r *Resolver) Resolve(ctx context.Context, id types.ModuleID) (ModuleSource, error) {
	if src, ok := r.resolved[id]; ok {
		return src, nil
	}

	var reasons []error
	tiers := []func(context.Context, types.ModuleID) (ModuleSource, error){
		r.resolveCustom,
		r.resolveRemote,
		r.resolveBuiltin,
	}
	for _, tier := range tiers {
		src, err := tier(ctx, id)
		if err != nil {
			reasons = append(reasons, err)
			continue
		}
		if src == nil {
			continue
		}
		if src.ID() != id {
			reasons = append(reasons, fmt.Errorf("%s declares code %q", src.Root(), src.ID()))
			continue
		}
		r.resolved[id] = src
		slog.Debug("resolved module", "module", id, "kind", src.Kind(), "path", src.Root())
		return src, nil
	}
	return nil, &ModuleNotFoundError{ID: id, Reasons: reasons}
}

// Available lists every module id any tier can offer, sorted.
func (r *Resolver) Available() []types.ModuleID {
	set := make(map[types.ModuleID]bool)
	if r.opts.Registry != nil {
		for _, m := range r.opts.Registry.Modules {
			set[m.Code] = true
		}
	}
	for _, rem := range r.opts.Remotes {
		set[rem.Code] = true
	}
	if err := r.scanBuiltins(); err == nil {
		for id := range r.builtins {
			set[id] = true
		}
	}
	ids := make([]types.ModuleID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (r *Resolver) resolveCustom(_ context.Context, id types.ModuleID) (ModuleSource, error) {
	dir, ok := r.opts.Registry.Lookup(id)
	if !ok {
		return nil, nil
	}
	src, err := newDirSource(dir, KindCustom, dir)
	if err != nil {
		return nil, fmt.Errorf("custom module %s: %w", id, err)
	}
	return src, nil
}

func (r *Resolver) resolveRemote(ctx context.Context, id types.ModuleID) (ModuleSource, error) {
	idx := slices.IndexFunc(r.opts.Remotes, func(rem Remote) bool { return rem.Code == id })
	if idx < 0 {
		return nil, nil
	}
	rem := r.opts.Remotes[idx]
	clone := filepath.Join(r.opts.CacheDir, "remote", string(rem.Code))

	commit, err := r.refresh(ctx, rem, clone)
	if err != nil {
		return nil, err
	}

	root := clone
	if rem.Path != "" {
		root = filepath.Join(clone, filepath.FromSlash(rem.Path))
	}
	r.installDependencies(ctx, id, root)

	src, err := newDirSource(root, KindRemote, rem.URL)
	if err != nil {
		return nil, fmt.Errorf("remote module %s: %w", id, err)
	}
	src.commit = commit
	return src, nil
}

// refresh updates the clone at most once per run. A failed update falls
// back to the existing cache.
func (r *Resolver) refresh(ctx context.Context, rem Remote, clone string) (string, error) {
	if commit, ok := r.refreshed[clone]; ok {
		return commit, nil
	}

	_, statErr := os.Stat(clone)
	cached := statErr == nil

	if r.opts.Offline || r.opts.Fetcher == nil {
		if !cached {
			return "", fmt.Errorf("%w: no cached clone of %s", ErrNetworkFetch, rem.URL)
		}
		commit, _ := HeadCommit(clone) //nolint:errcheck // commit is informational
		r.refreshed[clone] = commit
		return commit, nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, r.opts.NetworkTimeout)
	defer cancel()

	commit, err := r.opts.Fetcher.Sync(fetchCtx, rem.URL, rem.Branch, clone)
	if err != nil {
		if !cached {
			return "", fmt.Errorf("%w: %s: %w", ErrNetworkFetch, rem.URL, err)
		}
		slog.Warn("failed to update remote module, using cached copy", "module", rem.Code, "url", rem.URL, "error", err)
		r.fallbacks[rem.Code] = fmt.Errorf("%w: %s: %w", ErrNetworkFetch, rem.URL, err)
		commit, _ = HeadCommit(clone) //nolint:errcheck // commit is informational
	}
	r.refreshed[clone] = commit
	return commit, nil
}

func (r *Resolver) installDependencies(ctx context.Context, id types.ModuleID, root string) {
	d := r.opts.Dependencies
	if d == nil || !d.Needed(root) {
		return
	}
	slog.Info("installing module dependencies", "module", id, "path", root)
	if err := d.Install(ctx, root); err != nil {
		slog.Warn("dependency install failed, continuing", "module", id, "error", err)
	}
}

func (r *Resolver) resolveBuiltin(_ context.Context, id types.ModuleID) (ModuleSource, error) {
	if err := r.scanBuiltins(); err != nil {
		return nil, err
	}
	dir, ok := r.builtins[id]
	if !ok {
		return nil, r.broken[id]
	}
	return newDirSource(dir, KindBuiltin, "builtin:"+string(id))
}

// scanBuiltins materializes embedded modules and indexes builtin dirs once.
// Embedded modules win over builtin dirs declaring the same code.
func (r *Resolver) scanBuiltins() error {
	if r.scanned {
		return nil
	}
	r.builtins = make(map[types.ModuleID]string)
	r.broken = make(map[types.ModuleID]error)

	var errs []error
	for _, base := range r.opts.BuiltinDirs {
		entries, err := os.ReadDir(base)
		if err != nil {
			slog.Warn("skipping unreadable builtin dir", "path", base, "error", err)
			continue
		}
		for _, e := range entries {
			if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
				continue
			}
			dir := filepath.Join(base, e.Name())
			def, err := moduledef.Load(dir)
			if err != nil {
				if !errors.Is(err, fs.ErrNotExist) {
					slog.Warn("skipping invalid builtin module", "path", dir, "error", err)
					r.broken[types.ModuleID(e.Name())] = err
				}
				continue
			}
			r.builtins[def.Code] = dir
		}
	}
	for _, fsys := range r.opts.Builtin {
		dir, err := Materialize(fsys, r.opts.CacheDir)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		def, err := moduledef.Load(dir)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		r.builtins[def.Code] = dir
	}

	r.scanned = true
	return errors.Join(errs...)
}
