// SPDX-License-Identifier: MPL-2.0

package install

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/strata-dev/strata/pkg/agent"
	"github.com/strata-dev/strata/pkg/collect"
	"github.com/strata-dev/strata/pkg/moduledef"
	"github.com/strata-dev/strata/pkg/source"
	"github.com/strata-dev/strata/pkg/types"
	"github.com/strata-dev/strata/pkg/vendoring"
)

type (
	// agentSource is one agent definition file of a module.
	agentSource struct {
		name       string
		definition []byte
		// base is nil when the definition does not parse; compilation reports why.
		base *agent.Agent
	}

	compiledAgent struct {
		name   string
		output *agent.Output
	}
)

func loadAgents(src source.ModuleSource) ([]agentSource, error) {
	paths, err := agent.ListDefinitions(src.TemplatePath())
	if err != nil {
		return nil, fmt.Errorf("failed to list agents of %s: %w", src.ID(), err)
	}
	agents := make([]agentSource, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		a := agentSource{name: agent.Name(p), definition: data}
		a.base, _ = agent.ParseDefinition(data) //nolint:errcheck // reported by compileAgents
		agents = append(agents, a)
	}
	return agents, nil
}

// assetSkip excludes the source files that are not copied verbatim into
// the install: the schema, agent definitions and sidecars (compiled and
// reconciled separately), dependency manifests and VCS metadata.
func assetSkip(rel string, d fs.DirEntry) bool {
	name := d.Name()
	switch name {
	case ".git", "node_modules", "package.json", "package-lock.json":
		return true
	}
	if rel == moduledef.FileName || rel == collect.ConfigFileName {
		return true
	}
	if path.Dir(rel) != source.AgentsDir {
		return false
	}
	if d.IsDir() {
		return strings.HasSuffix(name, SidecarSuffix)
	}
	return strings.HasSuffix(name, agent.DefinitionSuffix)
}

func stageAssets(src source.ModuleSource, staging string) error {
	if err := vendoring.CopyTree(src.ArtifactRoot(), staging, assetSkip); err != nil {
		return fmt.Errorf("failed to stage %s: %w", src.ID(), err)
	}
	return nil
}

// expandInstallFolder resolves the {install-folder} token in every staged
// text file.
func expandInstallFolder(staging, folder string) error {
	token := []byte("{" + agent.InstallFolderKey + "}")
	return filepath.WalkDir(staging, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		if !bytes.Contains(data, token) || !utf8.Valid(data) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return os.WriteFile(p, bytes.ReplaceAll(data, token, []byte(folder)), info.Mode().Perm())
	})
}

// vendor copies the artifacts src's agents borrow from other modules into
// staging. Declarations are read from the overlay-merged agents, so an
// overlay can add one. Failures are warnings: the module installs without
// that artifact.
func (in *Installer) vendor(ctx context.Context, rc *RunContext, src source.ModuleSource,
	agents []agentSource, staging string, out *ModuleOutcome,
) {
	merged := make(map[string]*agent.Agent, len(agents))
	for _, a := range agents {
		if a.base == nil {
			continue
		}
		merged[a.name] = a.base
		data, err := readOverlay(rc.OverlayPath(src.ID(), a.name))
		if err != nil || data == nil {
			continue
		}
		// An overlay that does not parse fails compilation later.
		if ov, err := agent.ParseOverlay(data); err == nil {
			merged[a.name] = agent.Merge(a.base, ov)
		}
	}

	decls, skipped := vendoring.Scan(src.ID(), merged, rc.InstallFolder)
	for _, err := range skipped {
		out.Warnings = append(out.Warnings, fmt.Sprintf("vendoring skipped: %v", err))
	}
	for _, d := range decls {
		originRoot := src.ArtifactRoot()
		if d.Origin != src.ID() {
			origin, err := in.opts.Resolver.Resolve(ctx, d.Origin)
			if err != nil {
				warnVendoring(out, d, err)
				continue
			}
			originRoot = origin.ArtifactRoot()
		}
		if err := vendoring.Apply(d, originRoot, staging, rc.InstallFolder); err != nil {
			warnVendoring(out, d, err)
		}
	}
}

func warnVendoring(out *ModuleOutcome, d vendoring.Declaration, err error) {
	slog.Warn("skipping vendored artifact", "module", d.Consumer, "agent", d.Agent, "origin", d.Origin, "path", d.OriginRel, "error", err)
	out.Warnings = append(out.Warnings, fmt.Sprintf("vendoring %s/%s: %v", d.Origin, d.OriginRel, err))
}

// compileAgents compiles every agent of a module in memory. Any failure
// fails the whole module so that no partial set of agents is installed.
func compileAgents(rc *RunContext, id types.ModuleID, agents []agentSource) ([]compiledAgent, error) {
	lookup := rc.lookup(id)
	var errs []error
	docs := make([]compiledAgent, 0, len(agents))
	for _, a := range agents {
		ov, err := readOverlay(rc.OverlayPath(id, a.name))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		output, err := agent.Compile(agent.Input{
			Name:          a.name,
			Module:        string(id),
			Definition:    a.definition,
			Overlay:       ov,
			Lookup:        lookup,
			InstallFolder: rc.InstallFolder,
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		docs = append(docs, compiledAgent{name: a.name, output: output})
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return docs, nil
}

func readOverlay(p string) ([]byte, error) {
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read overlay %s: %w", p, err)
	}
	return data, nil
}

// ensureOverlay writes the neutral overlay scaffold when none exists and
// tracks its hash. An existing overlay is never touched. It reports whether
// the scaffold was written.
func ensureOverlay(rc *RunContext, id types.ModuleID, agentName string) (bool, error) {
	p := rc.OverlayPath(id, agentName)
	if _, err := os.Stat(p); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, err
	}

	key, err := types.NewTrackedPath(rc.ProjectDir, p)
	if err != nil {
		return false, err
	}
	scaffold := agent.Scaffold(string(id), agentName)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return false, fmt.Errorf("failed to create %s: %w", filepath.Dir(p), err)
	}
	if err := os.WriteFile(p, scaffold, 0o644); err != nil {
		return false, fmt.Errorf("failed to write overlay %s: %w", key, err)
	}
	rc.Manifest.TrackCustomization(key, types.HashBytes(scaffold))
	slog.Debug("scaffolded overlay", "module", id, "agent", agentName, "path", key)
	return true, nil
}

// lookup resolves compile-time placeholders from the module's final config,
// then from the answers of every module collected so far.
func (rc *RunContext) lookup(id types.ModuleID) agent.Lookup {
	values := rc.FinalConfig[id]
	return func(key string) (string, bool) {
		if v, ok := values[key]; ok {
			return collect.FormatValue(v), true
		}
		if v, ok := rc.Answers.Lookup(id, key); ok {
			return collect.FormatValue(v), true
		}
		return "", false
	}
}
