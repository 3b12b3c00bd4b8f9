// SPDX-License-Identifier: MPL-2.0

package agent

import (
	"fmt"
	"maps"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// OverlaySuffix is the file suffix of customization overlays.
const OverlaySuffix = ".customize.yaml"

type (
	// Overlay is a user-editable customization of one agent.
	Overlay struct {
		Agent struct {
			Metadata OverlayMetadata `yaml:"metadata"`
		} `yaml:"agent"`
		Persona         Persona    `yaml:"persona"`
		CriticalActions []string   `yaml:"critical_actions"`
		Memories        []string   `yaml:"memories"`
		Menu            []MenuItem `yaml:"menu"`
		Prompts         []Prompt   `yaml:"prompts"`
		// CustomizedFields is informational; merging does not consult it.
		CustomizedFields []string `yaml:"customizedFields"`
	}

	// OverlayMetadata holds the metadata fields an overlay may override.
	OverlayMetadata struct {
		Name  string `yaml:"name"`
		Title string `yaml:"title,omitempty"`
		Icon  string `yaml:"icon,omitempty"`
	}
)

// OverlayFileName returns the overlay file name for an agent of a module.
func OverlayFileName(module, agent string) string {
	return module + "-" + agent + OverlaySuffix
}

// ParseOverlay decodes an overlay. An empty document is an empty overlay.
func ParseOverlay(data []byte) (*Overlay, error) {
	ov := &Overlay{}
	if err := yaml.Unmarshal(data, ov); err != nil {
		return nil, err
	}
	return ov, nil
}

// LoadOverlay reads the overlay at path. A missing file returns nil.
func LoadOverlay(path string) (*Overlay, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ParseOverlay(data)
}

func (p *Persona) empty() bool {
	return p.Role == "" && p.Identity == "" && p.CommunicationStyle == "" && len(p.Principles) == 0
}

// Merge returns base with ov applied. base is not modified. Metadata scalars
// override when non-empty, a non-empty persona replaces the base persona,
// critical actions and memories append, prompts merge by id and menu
// entries merge by trigger.
func Merge(base *Agent, ov *Overlay) *Agent {
	out := base.clone()
	if ov == nil {
		return out
	}

	md := ov.Agent.Metadata
	if md.Name != "" {
		out.Metadata.Name = md.Name
	}
	if md.Title != "" {
		out.Metadata.Title = md.Title
	}
	if md.Icon != "" {
		out.Metadata.Icon = md.Icon
	}

	if !ov.Persona.empty() {
		out.Persona = ov.Persona
		out.Persona.Principles = append(StringList(nil), ov.Persona.Principles...)
	}

	out.CriticalActions = append(out.CriticalActions, nonEmpty(ov.CriticalActions)...)
	out.Memories = append(out.Memories, nonEmpty(ov.Memories)...)

	for _, p := range ov.Prompts {
		if p.ID == "" {
			out.Prompts = append(out.Prompts, p)
			continue
		}
		if i := slices.IndexFunc(out.Prompts, func(q Prompt) bool { return q.ID == p.ID }); i >= 0 {
			out.Prompts[i] = p
		} else {
			out.Prompts = append(out.Prompts, p)
		}
	}

	for _, m := range ov.Menu {
		if m.Trigger == "" {
			out.Menu = append(out.Menu, m)
			continue
		}
		if i := slices.IndexFunc(out.Menu, func(b MenuItem) bool { return b.Trigger == m.Trigger }); i >= 0 {
			out.Menu[i] = m
		} else {
			out.Menu = append(out.Menu, m)
		}
	}
	return out
}

// Scaffold returns the overlay written for an agent that has none yet.
func Scaffold(module, agent string) []byte {
	return fmt.Appendf(nil, `# Customizations for the %[2]s agent of the %[1]s module.
# Non-empty values are merged into the agent when it is compiled:
#   agent.metadata scalars replace the original values;
#   a non-empty persona replaces the whole persona;
#   critical_actions and memories are appended;
#   prompts replace the prompt with the same id, or are appended;
#   menu entries replace the entry with the same trigger, or are appended.
# Run "strata install" after editing to recompile.

agent:
  metadata:
    name: ""

persona:
  role: ""
  identity: ""
  communication_style: ""
  principles: []

critical_actions: []

memories: []

menu: []

prompts: []

# Names of fields you changed, for your own bookkeeping.
customizedFields: []
`, module, agent)
}

func (a *Agent) clone() *Agent {
	out := *a
	out.Persona.Principles = append(StringList(nil), a.Persona.Principles...)
	out.CriticalActions = append([]string(nil), a.CriticalActions...)
	out.Prompts = append([]Prompt(nil), a.Prompts...)
	out.Memories = append([]string(nil), a.Memories...)
	out.Menu = make([]MenuItem, len(a.Menu))
	for i, m := range a.Menu {
		m.Triggers = append([]MenuTrigger(nil), m.Triggers...)
		out.Menu[i] = m
	}
	if a.Menu == nil {
		out.Menu = nil
	}
	out.Variables = maps.Clone(a.Variables)
	return &out
}

func nonEmpty(items []string) []string {
	var out []string
	for _, s := range items {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
