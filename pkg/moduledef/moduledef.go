// SPDX-License-Identifier: MPL-2.0

package moduledef

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/strata-dev/strata/pkg/cueutil"
	"github.com/strata-dev/strata/pkg/types"
)

// FileName is the schema file at the root of every module source.
const FileName = "module.yaml"

// Question kinds.
const (
	KindText ConfigItemKind = iota
	KindBoolean
	KindSingleChoice
	KindMultiChoice
)

var (
	//go:embed module_schema.cue
	moduleSchema string

	// ErrSchemaParse is returned (wrapped in *SchemaParseError) when module.yaml
	// cannot be read, decoded or validated.
	ErrSchemaParse = errors.New("invalid module schema")
)

type (
	// ConfigItemKind is the prompt shape of a config item.
	ConfigItemKind int

	// Choice is one option of a single- or multi-choice item.
	Choice struct {
		Value string
		Label string
	}

	// ConfigItem is one entry of a module's config schema.
	ConfigItem struct {
		Key    string
		Kind   ConfigItemKind
		Prompt string
		// Default is a string, bool, number or []any as decoded from YAML.
		Default     any
		HasDefault  bool
		Result      string
		HasResult   bool
		Choices     []Choice
		Required    bool
		Regex       *regexp.Regexp
		Description string
	}

	// Module is a parsed module.yaml.
	Module struct {
		Code         types.ModuleID
		Name         string
		Version      string
		Description  string
		Dependencies []types.ModuleID
		// Config preserves document order.
		Config []ConfigItem
	}

	// SchemaParseError reports an unusable module.yaml.
	SchemaParseError struct {
		Path string
		Err  error
	}

	// header is the CUE-decoded part of the document.
	header struct {
		Code         string   `json:"code"`
		Name         string   `json:"name"`
		Version      string   `json:"version"`
		Description  string   `json:"description"`
		Dependencies []string `json:"dependencies"`
	}

	rawDocument struct {
		Config yaml.Node `yaml:"config"`
	}

	rawItem struct {
		Prompt       any    `yaml:"prompt"`
		Default      any    `yaml:"default"`
		Result       string `yaml:"result"`
		SingleSelect []any  `yaml:"single-select"`
		MultiSelect  []any  `yaml:"multi-select"`
		Required     bool   `yaml:"required"`
		Regex        string `yaml:"regex"`
		Description  string `yaml:"description"`
	}
)

func (e *SchemaParseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *SchemaParseError) Unwrap() []error { return []error{ErrSchemaParse, e.Err} }

// String returns the kind name.
func (k ConfigItemKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindBoolean:
		return "boolean"
	case KindSingleChoice:
		return "single-choice"
	case KindMultiChoice:
		return "multi-choice"
	default:
		return "unknown"
	}
}

// Prompted reports whether the item is asked interactively.
func (i *ConfigItem) Prompted() bool { return i.Prompt != "" }

// Load reads and parses <dir>/module.yaml.
func Load(dir string) (*Module, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &SchemaParseError{Path: path, Err: err}
	}
	return Parse(data, path)
}

// Parse validates data against the module schema and decodes it. filename is
// used in error messages.
func Parse(data []byte, filename string) (*Module, error) {
	fail := func(err error) (*Module, error) {
		return nil, &SchemaParseError{Path: filename, Err: err}
	}

	res, err := cueutil.ParseAndDecodeYAML[header]([]byte(moduleSchema), data, "#ModuleSchema",
		cueutil.WithFilename(filepath.Base(filename)), cueutil.WithConcrete(true))
	if err != nil {
		return fail(err)
	}
	h := res.Value

	m := &Module{
		Code:        types.ModuleID(h.Code),
		Name:        h.Name,
		Version:     h.Version,
		Description: h.Description,
	}
	if m.Name == "" {
		m.Name = h.Code
	}
	for _, dep := range h.Dependencies {
		m.Dependencies = append(m.Dependencies, types.ModuleID(dep))
	}

	var doc rawDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fail(err)
	}
	if doc.Config.Kind == yaml.MappingNode {
		items, err := decodeConfig(&doc.Config)
		if err != nil {
			return fail(err)
		}
		m.Config = items
	}
	return m, nil
}

// Item returns the config item named key.
func (m *Module) Item(key string) (*ConfigItem, bool) {
	for i := range m.Config {
		if m.Config[i].Key == key {
			return &m.Config[i], true
		}
	}
	return nil, false
}

// Keys returns the config keys in schema order.
func (m *Module) Keys() []string {
	keys := make([]string, len(m.Config))
	for i := range m.Config {
		keys[i] = m.Config[i].Key
	}
	return keys
}

func decodeConfig(node *yaml.Node) ([]ConfigItem, error) {
	items := make([]ConfigItem, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]
		item, err := decodeItem(keyNode.Value, valNode)
		if err != nil {
			return nil, fmt.Errorf("config.%s (line %d): %w", keyNode.Value, keyNode.Line, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func decodeItem(key string, node *yaml.Node) (ConfigItem, error) {
	var raw rawItem
	if err := node.Decode(&raw); err != nil {
		return ConfigItem{}, err
	}

	item := ConfigItem{
		Key:         key,
		Default:     raw.Default,
		HasDefault:  hasKey(node, "default"),
		Result:      raw.Result,
		HasResult:   hasKey(node, "result"),
		Required:    raw.Required,
		Description: raw.Description,
	}

	switch p := raw.Prompt.(type) {
	case nil:
	case string:
		item.Prompt = p
	case []any:
		lines := make([]string, 0, len(p))
		for _, l := range p {
			lines = append(lines, fmt.Sprint(l))
		}
		item.Prompt = strings.Join(lines, "\n")
	default:
		return ConfigItem{}, fmt.Errorf("prompt must be a string or a list of strings, got %T", p)
	}

	if raw.Regex != "" {
		re, err := regexp.Compile(raw.Regex)
		if err != nil {
			return ConfigItem{}, fmt.Errorf("invalid regex: %w", err)
		}
		item.Regex = re
	}

	switch {
	case len(raw.MultiSelect) > 0:
		item.Kind = KindMultiChoice
		item.Choices = decodeChoices(raw.MultiSelect)
	case len(raw.SingleSelect) > 0:
		item.Kind = KindSingleChoice
		item.Choices = decodeChoices(raw.SingleSelect)
	default:
		if _, ok := raw.Default.(bool); ok {
			item.Kind = KindBoolean
		}
	}
	return item, nil
}

func decodeChoices(raw []any) []Choice {
	choices := make([]Choice, 0, len(raw))
	for _, r := range raw {
		if m, ok := r.(map[string]any); ok {
			c := Choice{Value: fmt.Sprint(m["value"])}
			if label, ok := m["label"].(string); ok && label != "" {
				c.Label = label
			} else {
				c.Label = c.Value
			}
			choices = append(choices, c)
			continue
		}
		v := fmt.Sprint(r)
		choices = append(choices, Choice{Value: v, Label: v})
	}
	return choices
}

func hasKey(node *yaml.Node, key string) bool {
	if node.Kind != yaml.MappingNode {
		return false
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return true
		}
	}
	return false
}
