// SPDX-License-Identifier: MPL-2.0

package agent

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefinitionSuffix is the file suffix of agent definitions.
const DefinitionSuffix = ".agent.yaml"

var (
	// ErrCompile is wrapped by every *CompileError.
	ErrCompile = errors.New("agent compilation failed")

	// ErrNoAgent is returned for documents without an agent section.
	ErrNoAgent = errors.New("document has no agent section")
)

type (
	// StringList decodes from either a string or a list of strings.
	StringList []string

	// Definition is the top level of an *.agent.yaml file.
	Definition struct {
		Agent *Agent `yaml:"agent"`
	}

	// Agent is an agent template definition.
	Agent struct {
		Metadata        Metadata          `yaml:"metadata"`
		Persona         Persona           `yaml:"persona"`
		CriticalActions []string          `yaml:"critical_actions,omitempty"`
		Prompts         []Prompt          `yaml:"prompts,omitempty"`
		Memories        []string          `yaml:"memories,omitempty"`
		Variables       map[string]string `yaml:"variables,omitempty"`
		Menu            []MenuItem        `yaml:"menu,omitempty"`
	}

	// Metadata identifies an agent.
	Metadata struct {
		ID         string `yaml:"id,omitempty"`
		Name       string `yaml:"name,omitempty"`
		Title      string `yaml:"title,omitempty"`
		Icon       string `yaml:"icon,omitempty"`
		Module     string `yaml:"module,omitempty"`
		HasSidecar bool   `yaml:"hasSidecar,omitempty"`
	}

	// Persona is the narrative block of an agent.
	Persona struct {
		Role               string     `yaml:"role,omitempty"`
		Identity           string     `yaml:"identity,omitempty"`
		CommunicationStyle string     `yaml:"communication_style,omitempty"`
		Principles         StringList `yaml:"principles,omitempty"`
	}

	// Prompt is a reusable prompt addressed by id.
	Prompt struct {
		ID      string `yaml:"id"`
		Content string `yaml:"content"`
	}

	// Handlers holds the handler attributes a menu entry may carry.
	Handlers struct {
		Workflow         string `yaml:"workflow,omitempty"`
		Exec             string `yaml:"exec,omitempty"`
		Action           string `yaml:"action,omitempty"`
		Tmpl             string `yaml:"tmpl,omitempty"`
		Data             string `yaml:"data,omitempty"`
		ValidateWorkflow string `yaml:"validate-workflow,omitempty"`
	}

	// MenuItem is one authored menu entry, addressed by Trigger.
	MenuItem struct {
		Trigger     string `yaml:"trigger"`
		Description string `yaml:"description,omitempty"`
		Handlers    `yaml:",inline"`
		// WorkflowInstall is where a vendored copy of Workflow lands in this module.
		WorkflowInstall string `yaml:"workflow-install,omitempty"`
		// Multi is the visible text of an entry that fans out to Triggers.
		Multi    string        `yaml:"multi,omitempty"`
		Triggers []MenuTrigger `yaml:"triggers,omitempty"`
	}

	// MenuTrigger is one fan-out branch of a multi-trigger entry.
	MenuTrigger struct {
		Trigger string `yaml:"trigger"`
		// Description is matched fuzzily against user input.
		Description string `yaml:"description,omitempty"`
		Handlers    `yaml:",inline"`
	}

	// CompileError reports a definition or overlay that could not be compiled.
	CompileError struct {
		Agent string
		Err   error
	}
)

func (e *CompileError) Error() string {
	return fmt.Sprintf("agent %s: %v", e.Agent, e.Err)
}

func (e *CompileError) Unwrap() []error { return []error{ErrCompile, e.Err} }

// UnmarshalYAML accepts a scalar or a sequence.
func (l *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Value == "" {
			*l = nil
			return nil
		}
		*l = StringList{node.Value}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*l = items
		return nil
	default:
		return fmt.Errorf("line %d: expected a string or a list of strings", node.Line)
	}
}

// ParseDefinition decodes an *.agent.yaml document.
func ParseDefinition(data []byte) (*Agent, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, err
	}
	if def.Agent == nil {
		return nil, ErrNoAgent
	}
	return def.Agent, nil
}

// Name returns the agent name for a definition file path.
func Name(path string) string {
	return strings.TrimSuffix(filepath.Base(path), DefinitionSuffix)
}

// ListDefinitions returns the *.agent.yaml files directly inside dir, sorted.
// A missing dir has no definitions.
func ListDefinitions(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), DefinitionSuffix) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(paths)
	return paths, nil
}

// Kinds returns the handler attribute names set on h, in a fixed order.
func (h *Handlers) Kinds() []string {
	var kinds []string
	for _, a := range h.attrs() {
		kinds = append(kinds, a[0])
	}
	return kinds
}

// attrs returns the non-empty handler attributes as name/value pairs.
func (h *Handlers) attrs() [][2]string {
	all := [][2]string{
		{"workflow", h.Workflow},
		{"exec", h.Exec},
		{"action", h.Action},
		{"tmpl", h.Tmpl},
		{"data", h.Data},
		{"validate-workflow", h.ValidateWorkflow},
	}
	out := all[:0]
	for _, a := range all {
		if a[1] != "" {
			out = append(out, a)
		}
	}
	return out
}
