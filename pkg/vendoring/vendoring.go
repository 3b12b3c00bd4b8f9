// SPDX-License-Identifier: MPL-2.0

package vendoring

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/strata-dev/strata/pkg/agent"
	"github.com/strata-dev/strata/pkg/types"
)

// WorkflowFile is the artifact file whose directory is vendored.
const WorkflowFile = "workflow.yaml"

var (
	// ErrInvalidReference is returned for workflow paths outside the install root.
	ErrInvalidReference = errors.New("invalid workflow reference")

	// ErrOriginMissing is returned when the origin artifact does not exist.
	ErrOriginMissing = errors.New("origin artifact not found")

	// ErrForeignDestination is returned when workflow-install points into a
	// module other than the one declaring it.
	ErrForeignDestination = errors.New("workflow-install must point into the declaring module")

	installFolderToken = "{" + agent.InstallFolderKey + "}"

	configSourceRE = regexp.MustCompile(`(?m)^([ \t]*config_source:[ \t]*).*$`)
)

type (
	// Declaration is one request to vendor an origin artifact into a consumer.
	Declaration struct {
		Agent    string
		Trigger  string
		Origin   types.ModuleID
		Consumer types.ModuleID
		// OriginRel is the artifact directory relative to the origin module root.
		OriginRel string
		// DestRel is the artifact directory relative to the consumer module root.
		DestRel string
	}

	// Reference is a parsed {project-root}/<install folder>/<module>/<rel>/workflow.yaml.
	Reference struct {
		Module types.ModuleID
		// Dir is the slash-separated directory holding the workflow file.
		Dir string
	}
)

// ParseReference splits a workflow path into its module and artifact
// directory. An {install-folder} token in ref resolves to installFolder.
func ParseReference(ref, installFolder string) (Reference, error) {
	ref = strings.ReplaceAll(ref, installFolderToken, installFolder)
	prefix := "{project-root}/" + installFolder + "/"
	rest, ok := strings.CutPrefix(ref, prefix)
	if !ok {
		return Reference{}, fmt.Errorf("%w: %q does not start with %s", ErrInvalidReference, ref, prefix)
	}
	module, rel, ok := strings.Cut(rest, "/")
	if !ok || rel == "" {
		return Reference{}, fmt.Errorf("%w: %q names no artifact", ErrInvalidReference, ref)
	}
	id := types.ModuleID(module)
	if err := id.Validate(); err != nil {
		return Reference{}, fmt.Errorf("%w: %w", ErrInvalidReference, err)
	}

	dir := path.Dir(rel)
	if path.Base(rel) != WorkflowFile {
		dir = rel
	}
	dir = path.Clean(dir)
	if dir == "." || dir == ".." || strings.HasPrefix(dir, "../") || path.IsAbs(dir) {
		return Reference{}, fmt.Errorf("%w: %q escapes the module", ErrInvalidReference, ref)
	}
	return Reference{Module: id, Dir: dir}, nil
}

// Scan collects vendoring declarations from a consumer's agents. Entries
// that cannot be parsed or that install into another module are skipped and
// returned as errors.
func Scan(consumer types.ModuleID, agents map[string]*agent.Agent, installFolder string) ([]Declaration, []error) {
	var (
		decls   []Declaration
		skipped []error
	)
	for _, name := range slices.Sorted(maps.Keys(agents)) {
		for _, item := range agents[name].Menu {
			if item.WorkflowInstall == "" || item.Workflow == "" {
				continue
			}
			skip := func(err error) {
				slog.Warn("skipping vendoring declaration", "module", consumer, "agent", name, "trigger", item.Trigger, "error", err)
				skipped = append(skipped, fmt.Errorf("agent %s, trigger %s: %w", name, item.Trigger, err))
			}
			origin, err := ParseReference(item.Workflow, installFolder)
			if err != nil {
				skip(err)
				continue
			}
			dest, err := ParseReference(item.WorkflowInstall, installFolder)
			if err != nil {
				skip(err)
				continue
			}
			if dest.Module != consumer {
				skip(fmt.Errorf("%w: %q", ErrForeignDestination, item.WorkflowInstall))
				continue
			}
			decls = append(decls, Declaration{
				Agent:     name,
				Trigger:   item.Trigger,
				Origin:    origin.Module,
				Consumer:  consumer,
				OriginRel: origin.Dir,
				DestRel:   dest.Dir,
			})
		}
	}
	return decls, skipped
}

// Apply copies the origin artifact under originRoot into stagingRoot at
// DestRel and points its config_source at the consumer's config.
func Apply(d Declaration, originRoot, stagingRoot, installFolder string) error {
	src := filepath.Join(originRoot, filepath.FromSlash(d.OriginRel))
	info, err := os.Stat(src)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s/%s", ErrOriginMissing, d.Origin, d.OriginRel)
	}

	dst := filepath.Join(stagingRoot, filepath.FromSlash(d.DestRel))
	if err := os.RemoveAll(dst); err != nil {
		return fmt.Errorf("failed to clear %s: %w", dst, err)
	}
	if err := CopyTree(src, dst, nil); err != nil {
		return fmt.Errorf("failed to copy %s/%s: %w", d.Origin, d.OriginRel, err)
	}

	wf := filepath.Join(dst, WorkflowFile)
	data, err := os.ReadFile(wf)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	rewritten := RewriteConfigSource(data, ConfigSource(installFolder, d.Consumer))
	if err := os.WriteFile(wf, rewritten, 0o644); err != nil {
		return fmt.Errorf("failed to rewrite %s: %w", wf, err)
	}
	slog.Debug("vendored workflow", "origin", d.Origin, "from", d.OriginRel, "module", d.Consumer, "to", d.DestRel)
	return nil
}

// ConfigSource returns the config_source value for a module.
func ConfigSource(installFolder string, module types.ModuleID) string {
	return fmt.Sprintf("{project-root}/%s/%s/config.yaml", installFolder, module)
}

// RewriteConfigSource replaces the value of every top-level or nested
// config_source key in a YAML document, leaving all other bytes unchanged.
func RewriteConfigSource(data []byte, source string) []byte {
	return configSourceRE.ReplaceAll(data, []byte(`${1}"`+source+`"`))
}
