// SPDX-License-Identifier: MPL-2.0

package moduledef

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/strata-dev/strata/pkg/types"
)

const sampleModule = `code: bmm
name: Method Module
version: 1.2.0
dependencies: [core]
config:
  project_name:
    prompt: "What is the project called?"
    default: "{directory_name}"
    result: "{value}"
  output_folder:
    prompt:
      - "Where should documents go?"
      - "Relative to the project root."
    default: "{output_folder}/bmm"
    result: "{project-root}/{value}"
    required: true
  use_tests:
    prompt: "Generate tests?"
    default: true
    result: "{value}"
  skill_level:
    prompt: "Skill level?"
    default: intermediate
    single-select:
      - value: beginner
        label: "Beginner - explain everything"
      - intermediate
      - expert
  languages:
    prompt: "Languages?"
    multi-select: [go, ts, 3]
    result: "{value}"
  ticket:
    prompt: "Ticket prefix?"
    regex: "^[A-Z]+$"
  docs_dir:
    result: "{project-root}/docs"
`

func TestParse(t *testing.T) {
	t.Parallel()

	m, err := Parse([]byte(sampleModule), "module.yaml")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if m.Code != "bmm" || m.Version != "1.2.0" || m.Name != "Method Module" {
		t.Errorf("header = %+v", m)
	}
	if !slices.Equal(m.Dependencies, []types.ModuleID{"core"}) {
		t.Errorf("Dependencies = %v, want [core]", m.Dependencies)
	}

	wantKeys := []string{"project_name", "output_folder", "use_tests", "skill_level", "languages", "ticket", "docs_dir"}
	if got := m.Keys(); !slices.Equal(got, wantKeys) {
		t.Errorf("Keys() = %v, want %v", got, wantKeys)
	}

	kinds := map[string]ConfigItemKind{
		"project_name": KindText,
		"use_tests":    KindBoolean,
		"skill_level":  KindSingleChoice,
		"languages":    KindMultiChoice,
		"docs_dir":     KindText,
	}
	for key, want := range kinds {
		item, ok := m.Item(key)
		if !ok {
			t.Fatalf("Item(%q) missing", key)
		}
		if item.Kind != want {
			t.Errorf("Item(%q).Kind = %s, want %s", key, item.Kind, want)
		}
	}

	out, _ := m.Item("output_folder")
	if out.Prompt != "Where should documents go?\nRelative to the project root." {
		t.Errorf("multi-line prompt = %q", out.Prompt)
	}
	if !out.Required || !out.HasResult {
		t.Errorf("output_folder = %+v, want required with result", out)
	}

	skill, _ := m.Item("skill_level")
	if skill.Choices[0].Label != "Beginner - explain everything" || skill.Choices[1].Label != "intermediate" {
		t.Errorf("Choices = %+v", skill.Choices)
	}

	langs, _ := m.Item("languages")
	if langs.Choices[2].Value != "3" {
		t.Errorf("numeric choice = %q, want %q", langs.Choices[2].Value, "3")
	}

	ticket, _ := m.Item("ticket")
	if ticket.Regex == nil || !ticket.Regex.MatchString("ABC") || ticket.Regex.MatchString("abc") {
		t.Error("ticket regex not compiled as expected")
	}
	if ticket.HasDefault {
		t.Error("ticket has no default")
	}

	docs, _ := m.Item("docs_dir")
	if docs.Prompted() {
		t.Error("docs_dir should be static")
	}
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{"missing code", "name: x\n"},
		{"bad code", "code: Bad_Code\n"},
		{"unknown field", "code: x\nauthor: me\n"},
		{"unknown item field", "code: x\nconfig:\n  a:\n    promt: typo\n"},
		{"bad regex", "code: x\nconfig:\n  a:\n    prompt: p\n    regex: \"[\"\n"},
		{"not yaml", "code: [unterminated\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Parse([]byte(tt.doc), "module.yaml")
			if err == nil {
				t.Fatal("Parse() should fail")
			}
			if !errors.Is(err, ErrSchemaParse) {
				t.Errorf("error %v does not wrap ErrSchemaParse", err)
			}
			var spe *SchemaParseError
			if !errors.As(err, &spe) || spe.Path != "module.yaml" {
				t.Errorf("error %v is not a SchemaParseError for module.yaml", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if _, err := Load(dir); !errors.Is(err, ErrSchemaParse) {
		t.Errorf("Load() on empty dir error = %v, want ErrSchemaParse", err)
	}

	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("code: core\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if m.Name != "core" {
		t.Errorf("Name = %q, want code as fallback", m.Name)
	}
	if len(m.Config) != 0 {
		t.Errorf("Config = %v, want empty", m.Config)
	}
}
