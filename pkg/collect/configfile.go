// SPDX-License-Identifier: MPL-2.0

package collect

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/strata-dev/strata/pkg/moduledef"
	"github.com/strata-dev/strata/pkg/types"
)

// ConfigFileName is the resolved config written into each module's install dir.
const ConfigFileName = "config.yaml"

// ConfigPath returns <installDir>/<module>/config.yaml.
func ConfigPath(installDir string, id types.ModuleID) string {
	return filepath.Join(installDir, string(id), ConfigFileName)
}

// ReadConfig reads one resolved config file.
func ReadConfig(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	values := map[string]any{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return values, nil
}

// LoadExisting reads the resolved config of every module installed under
// installDir. Directories starting with "_" hold tool state and are skipped;
// unreadable files are logged and skipped. Values under projectDir are
// returned with the {project-root} token, the way they were collected.
func LoadExisting(installDir, projectDir string) (Config, error) {
	entries, err := os.ReadDir(installDir)
	if errors.Is(err, os.ErrNotExist) {
		return Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", installDir, err)
	}

	cfg := Config{}
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), "_") || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		id := types.ModuleID(e.Name())
		values, err := ReadConfig(ConfigPath(installDir, id))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			slog.Warn("ignoring unreadable module config", "module", id, "error", err)
			continue
		}
		for k, v := range values {
			values[k] = tokenizeRoot(v, projectDir)
		}
		cfg[id] = values
	}
	return cfg, nil
}

// MarshalConfig renders values as config.yaml. Schema keys come first in
// schema order, then any other keys sorted. {project-root} is replaced with
// projectDir.
func MarshalConfig(def *moduledef.Module, values map[string]any, projectDir string) ([]byte, error) {
	keys := make([]string, 0, len(values))
	for _, k := range def.Keys() {
		if _, ok := values[k]; ok {
			keys = append(keys, k)
		}
	}
	var extra []string
	for k := range values {
		if !slices.Contains(keys, k) {
			extra = append(extra, k)
		}
	}
	slices.Sort(extra)
	keys = append(keys, extra...)

	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range keys {
		var valNode yaml.Node
		if err := valNode.Encode(substituteRoot(values[k], projectDir)); err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", k, err)
		}
		root.Content = append(root.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}, &valNode)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s configuration\n", def.Name)
	if def.Version != "" {
		fmt.Fprintf(&buf, "# Module version: %s\n", def.Version)
	}
	buf.WriteString("# Generated by strata. Re-run `strata install` to add answers for new settings.\n\n")
	if len(root.Content) == 0 {
		buf.WriteString("{}\n")
		return buf.Bytes(), nil
	}
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteConfig writes data to path unless the file already holds it.
// It reports whether the file was written.
func WriteConfig(path string, data []byte) (bool, error) {
	if existing, err := os.ReadFile(path); err == nil && bytes.Equal(existing, data) {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return true, nil
}

func substituteRoot(v any, projectDir string) any {
	switch t := v.(type) {
	case string:
		return strings.ReplaceAll(t, ProjectRootToken, projectDir)
	case []string:
		out := make([]string, len(t))
		for i, s := range t {
			out[i] = strings.ReplaceAll(s, ProjectRootToken, projectDir)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = substituteRoot(e, projectDir)
		}
		return out
	default:
		return v
	}
}

// tokenizeRoot is the inverse of substituteRoot for values spelling out projectDir.
func tokenizeRoot(v any, projectDir string) any {
	switch t := v.(type) {
	case string:
		if t == projectDir {
			return ProjectRootToken
		}
		if rest, ok := strings.CutPrefix(t, projectDir+"/"); ok {
			return ProjectRootToken + "/" + rest
		}
		return t
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = tokenizeRoot(e, projectDir)
		}
		return out
	default:
		return v
	}
}
