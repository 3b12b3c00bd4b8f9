// SPDX-License-Identifier: MPL-2.0

package install

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/strata-dev/strata/pkg/collect"
	"github.com/strata-dev/strata/pkg/manifest"
	"github.com/strata-dev/strata/pkg/moduledef"
	"github.com/strata-dev/strata/pkg/reconcile"
	"github.com/strata-dev/strata/pkg/source"
	"github.com/strata-dev/strata/pkg/types"
)

const (
	// DefaultInstallFolder is the install root created inside the project.
	DefaultInstallFolder = "_strata"
	// MemoryDirName holds agent sidecar trees inside the install root.
	MemoryDirName = "_memory"
	// SidecarSuffix names an agent's sidecar directory.
	SidecarSuffix = "-sidecar"
)

type (
	// Options configures an Installer.
	Options struct {
		ProjectDir string
		// InstallFolder defaults to DefaultInstallFolder.
		InstallFolder string
		// Modules are installed in addition to core and every module the
		// manifest already lists.
		Modules  []types.ModuleID
		Resolver *source.Resolver
		// Prompter defaults to collect.Defaults.
		Prompter    collect.Prompter
		ToolVersion string
		// Now defaults to time.Now.
		Now func() time.Time
	}

	// Installer runs installs and updates into one project.
	Installer struct {
		opts Options
	}
)

// New creates an Installer.
func New(opts Options) *Installer {
	if opts.InstallFolder == "" {
		opts.InstallFolder = DefaultInstallFolder
	}
	if opts.Prompter == nil {
		opts.Prompter = collect.Defaults{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ToolVersion == "" {
		opts.ToolVersion = "dev"
	}
	return &Installer{opts: opts}
}

// Run performs one install run. Module failures are reported in the
// Summary; an error is returned only when the run cannot start or the user
// aborts a prompt, in which case modules not yet reconciled are left as
// they were.
func (in *Installer) Run(ctx context.Context) (*Summary, error) {
	if in.opts.Resolver == nil {
		return nil, errors.New("install: no module resolver configured")
	}
	rc, store, err := in.newRunContext()
	if err != nil {
		return nil, err
	}
	log := slog.With("run", rc.RunID)
	log.Debug("starting install run", "project", rc.ProjectDir, "update", rc.IsUpdate)

	in.registerCustomSources(rc)
	selected := slices.Concat(in.opts.Modules, rc.Manifest.ModuleIDs())
	plan, err := source.BuildPlan(ctx, in.opts.Resolver, selected)
	if err != nil {
		return nil, fmt.Errorf("failed to plan install: %w", err)
	}

	collector := collect.New(in.opts.Prompter, rc.Answers, rc.ExistingConfig, rc.FinalConfig)
	for _, u := range plan.Unavailable {
		rc.Summary.Add(unavailableOutcome(collector, u))
	}
	for _, src := range plan.Sources {
		out, err := in.installModule(ctx, rc, store, collector, src)
		if err != nil {
			return rc.Summary, err
		}
		log.Info("processed module", "module", out.Module, "status", out.Status, "written", out.Written, "preserved", out.Preserved)
		rc.Summary.Add(out)
	}
	return rc.Summary, nil
}

func (in *Installer) newRunContext() (*RunContext, *manifest.Store, error) {
	projectDir, err := filepath.Abs(in.opts.ProjectDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve project directory: %w", err)
	}
	installDir := filepath.Join(projectDir, in.opts.InstallFolder)
	store := manifest.NewStore(installDir)

	m, found, err := store.LoadOrNew(in.opts.ToolVersion, in.opts.Now())
	if err != nil {
		return nil, nil, err
	}
	existing, err := collect.LoadExisting(installDir, projectDir)
	if err != nil {
		return nil, nil, err
	}

	rc := &RunContext{
		RunID:          uuid.New(),
		ProjectDir:     projectDir,
		InstallFolder:  in.opts.InstallFolder,
		InstallDir:     installDir,
		IsUpdate:       found || len(existing) > 0,
		Degraded:       !found && len(existing) > 0,
		Answers:        collect.Answers{},
		ExistingConfig: existing,
		FinalConfig:    collect.Config{},
		Manifest:       m,
	}
	rc.Summary = &Summary{RunID: rc.RunID, IsUpdate: rc.IsUpdate, Degraded: rc.Degraded}
	if rc.Degraded {
		slog.Warn("existing install has no manifest; user edits cannot be detected and installed files will be overwritten",
			"manifest", store.Path())
	}
	return rc, store, nil
}

// registerCustomSources makes local-custom modules recorded in the manifest
// resolvable even when they are missing from the registry file.
func (in *Installer) registerCustomSources(rc *RunContext) {
	for _, rec := range rc.Manifest.Modules {
		if rec.Source != string(source.KindCustom) || rec.SourcePath == "" {
			continue
		}
		if err := in.opts.Resolver.AddCustom(rec.ID, rec.SourcePath); err != nil {
			slog.Warn("ignoring recorded custom module", "module", rec.ID, "path", rec.SourcePath, "error", err)
		}
	}
}

func unavailableOutcome(collector *collect.Collector, u source.Unavailable) ModuleOutcome {
	out := ModuleOutcome{Module: u.ID}
	cat := CategorySourceUnavailable
	switch {
	case errors.Is(u.Err, moduledef.ErrSchemaParse):
		cat = CategorySchemaParse
	case errors.Is(u.Err, source.ErrNetworkFetch):
		cat = CategoryNetworkFetch
	}
	out.fail(StatusSkipped, cat, u.Err)
	if collector.CarryOver(u.ID) {
		out.Warnings = append(out.Warnings, "existing configuration kept")
	}
	slog.Warn("skipping module", "module", u.ID, "category", cat, "error", u.Err)
	return out
}

// installModule processes one resolved module. The returned error aborts
// the run; every other failure is recorded in the outcome.
func (in *Installer) installModule(ctx context.Context, rc *RunContext, store *manifest.Store,
	collector *collect.Collector, src source.ModuleSource,
) (ModuleOutcome, error) {
	id := src.ID()
	def := src.Definition()
	out := ModuleOutcome{Module: id, Version: src.Version(), Status: StatusInstalled}
	if _, ok := rc.Manifest.Module(id); ok {
		out.Status = StatusUpdated
	}
	if err := in.opts.Resolver.FetchFailure(id); err != nil {
		out.Category = CategoryNetworkFetch
		out.Warnings = append(out.Warnings, err.Error())
	}

	res, err := collector.Collect(ctx, def)
	if err != nil {
		if errors.Is(err, collect.ErrRequired) || errors.Is(err, collect.ErrPattern) {
			out.fail(StatusFailed, CategoryConfig, err)
			return out, nil
		}
		return out, fmt.Errorf("collecting configuration for %s: %w", id, err)
	}

	staging, err := os.MkdirTemp("", "strata-"+string(id)+"-*")
	if err != nil {
		out.fail(StatusFailed, CategoryIO, err)
		return out, nil
	}
	defer os.RemoveAll(staging)

	agents, err := loadAgents(src)
	if err != nil {
		out.fail(StatusFailed, CategoryIO, err)
		return out, nil
	}
	if err := stageAssets(src, staging); err != nil {
		out.fail(StatusFailed, CategoryIO, err)
		return out, nil
	}
	in.vendor(ctx, rc, src, agents, staging, &out)
	if err := expandInstallFolder(staging, rc.InstallFolder); err != nil {
		out.fail(StatusFailed, CategoryIO, err)
		return out, nil
	}

	docs, err := compileAgents(rc, id, agents)
	if err != nil {
		slog.Error("agent compilation failed, skipping module", "module", id, "error", err)
		out.fail(StatusFailed, CategoryCompile, err)
		return out, nil
	}

	before, err := manifest.Marshal(rc.Manifest)
	if err != nil {
		return out, err
	}
	if err := in.reconcileModule(rc, src, res.Values, staging, docs, &out); err != nil {
		out.fail(StatusFailed, CategoryIO, err)
	} else {
		if len(out.Conflicts) > 0 && out.Category == CategoryNone {
			out.Category = CategoryWriteConflict
		}
		rc.Manifest.UpsertModule(moduleRecord(src, def, in.opts.Now()))
	}

	if err := in.saveManifest(rc, store, before); err != nil {
		return out, err
	}
	return out, nil
}

func (in *Installer) reconcileModule(rc *RunContext, src source.ModuleSource, values map[string]any,
	staging string, docs []compiledAgent, out *ModuleOutcome,
) error {
	id := src.ID()
	data, err := collect.MarshalConfig(src.Definition(), values, rc.ProjectDir)
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}
	written, err := collect.WriteConfig(collect.ConfigPath(rc.InstallDir, id), data)
	if err != nil {
		return err
	}
	if written {
		out.Written++
	} else {
		out.Unchanged++
	}

	rec := reconcile.New(rc.ProjectDir, rc.Manifest.TrackedLedger(), rc.IsUpdate)
	results, err := rec.Tree(staging, rc.ModuleDir(id), reconcile.TreeOptions{})
	out.addResults(results)
	if err != nil {
		return err
	}

	for _, doc := range docs {
		target := filepath.Join(rc.ModuleDir(id), source.AgentsDir, doc.name+".md")
		res, err := rec.File(target, doc.output.Content, 0o644)
		if err != nil {
			return err
		}
		out.addResults([]reconcile.Result{res})
		out.Agents = append(out.Agents, doc.name)

		scaffolded, err := ensureOverlay(rc, id, doc.name)
		if err != nil {
			return err
		}
		if scaffolded {
			out.Written++
		}

		if !doc.output.Agent.Metadata.HasSidecar {
			continue
		}
		sidecar := filepath.Join(src.TemplatePath(), doc.name+SidecarSuffix)
		if info, err := os.Stat(sidecar); err != nil || !info.IsDir() {
			slog.Warn("agent declares a sidecar but the module has none", "module", id, "agent", doc.name)
			out.Warnings = append(out.Warnings, fmt.Sprintf("agent %s: sidecar directory missing", doc.name))
			continue
		}
		results, err := rec.Tree(sidecar, rc.SidecarDir(doc.name), reconcile.TreeOptions{})
		out.addResults(results)
		if err != nil {
			return err
		}
	}
	return nil
}

// saveManifest stamps and writes the manifest when processing a module
// changed it, or when no manifest exists yet.
func (in *Installer) saveManifest(rc *RunContext, store *manifest.Store, before []byte) error {
	after, err := manifest.Marshal(rc.Manifest)
	if err != nil {
		return err
	}
	if bytes.Equal(before, after) && store.Exists() {
		return nil
	}
	rc.Manifest.Touch(in.opts.ToolVersion, in.opts.Now())
	if err := store.Save(rc.Manifest); err != nil {
		return fmt.Errorf("failed to save manifest: %w", err)
	}
	return nil
}

func moduleRecord(src source.ModuleSource, def *moduledef.Module, now time.Time) manifest.ModuleRecord {
	now = now.UTC().Truncate(time.Second)
	rec := manifest.ModuleRecord{
		ID:          src.ID(),
		Name:        def.Name,
		Version:     src.Version(),
		Source:      string(src.Kind()),
		Commit:      src.Commit(),
		InstallDate: now,
		LastUpdated: now,
	}
	if src.Kind() != source.KindBuiltin {
		rec.SourcePath = src.Origin()
	}
	return rec
}
