// SPDX-License-Identifier: MPL-2.0

package tui

import (
	"context"
	"reflect"
	"regexp"
	"strings"
	"testing"

	"github.com/strata-dev/strata/pkg/collect"
	"github.com/strata-dev/strata/pkg/moduledef"
)

func testQuestions() []collect.Question {
	return []collect.Question{
		{Key: "user_name", Kind: moduledef.KindText, Prompt: "Your name?", Default: "Ada", Required: true},
		{Key: "ticket", Kind: moduledef.KindText, Prompt: "Ticket prefix?", Regex: regexp.MustCompile(`^[A-Z]+$`)},
		{Key: "tdd", Kind: moduledef.KindBoolean, Prompt: "Use TDD?", Default: true},
		{
			Key: "lang", Kind: moduledef.KindSingleChoice, Prompt: "Language?", Default: "go",
			Choices: []moduledef.Choice{{Value: "go", Label: "Go"}, {Value: "rust"}},
		},
		{
			Key: "ides", Kind: moduledef.KindMultiChoice, Prompt: "IDEs?", Default: []any{"vim", "code"},
			Choices: []moduledef.Choice{{Value: "vim"}, {Value: "code"}, {Value: "idea"}},
		},
	}
}

func TestBindingsStartFromDefaults(t *testing.T) {
	t.Parallel()

	questions := testQuestions()
	bindings := make([]*binding, len(questions))
	for i := range questions {
		bindings[i] = newBinding(&questions[i])
	}

	got := answers(bindings)
	want := map[string]any{
		"user_name": "Ada",
		"ticket":    "",
		"tdd":       true,
		"lang":      "go",
		"ides":      []string{"vim", "code"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("answers() = %#v, want %#v", got, want)
	}
}

func TestBindingsReflectEdits(t *testing.T) {
	t.Parallel()

	questions := testQuestions()
	bindings := make([]*binding, len(questions))
	for i := range questions {
		bindings[i] = newBinding(&questions[i])
	}
	bindings[0].text = "Grace"
	bindings[2].boolean = false
	bindings[4].multiple = []string{"idea"}

	got := answers(bindings)
	if got["user_name"] != "Grace" || got["tdd"] != false {
		t.Errorf("answers() = %#v", got)
	}
	if !reflect.DeepEqual(got["ides"], []string{"idea"}) {
		t.Errorf("answers()[ides] = %#v", got["ides"])
	}
}

func TestFormBuildsOneFieldPerQuestion(t *testing.T) {
	t.Parallel()

	p := NewPrompter(Config{Theme: ThemeDark, Accessible: true, Input: strings.NewReader(""), Output: &strings.Builder{}})
	questions := testQuestions()
	form, bindings := p.form(&moduledef.Module{Code: "core", Name: "Core", Version: "1.0.0"}, questions)
	if form == nil {
		t.Fatal("form() = nil")
	}
	if len(bindings) != len(questions) {
		t.Errorf("len(bindings) = %d, want %d", len(bindings), len(questions))
	}
}

func TestAskWithoutQuestions(t *testing.T) {
	t.Parallel()

	got, err := NewPrompter(DefaultConfig()).Ask(context.Background(), &moduledef.Module{Code: "core"}, nil)
	if err != nil {
		t.Fatalf("Ask() error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Ask() = %v, want empty", got)
	}
}

func TestModuleTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		module moduledef.Module
		want   string
	}{
		{moduledef.Module{Code: "bmm", Name: "Method", Version: "6.0.0"}, "Method 6.0.0"},
		{moduledef.Module{Code: "bmm", Version: "6.0.0"}, "bmm 6.0.0"},
		{moduledef.Module{Code: "bmm", Name: "Method"}, "Method"},
	}
	for _, tt := range tests {
		if got := moduleTitle(&tt.module); got != tt.want {
			t.Errorf("moduleTitle(%+v) = %q, want %q", tt.module, got, tt.want)
		}
	}
}

func TestDefaultStrings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   any
		want []string
	}{
		{nil, nil},
		{"one", []string{"one"}},
		{[]string{"a", "b"}, []string{"a", "b"}},
		{[]any{"a", 2}, []string{"a", "2"}},
	}
	for _, tt := range tests {
		if got := defaultStrings(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("defaultStrings(%#v) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}

func TestOptionsFallBackToValue(t *testing.T) {
	t.Parallel()

	opts := options([]moduledef.Choice{{Value: "go", Label: "Go"}, {Value: "rust"}})
	if opts[0].Key != "Go" || opts[0].Value != "go" {
		t.Errorf("options()[0] = %+v", opts[0])
	}
	if opts[1].Key != "rust" {
		t.Errorf("options()[1].Key = %q, want value as label", opts[1].Key)
	}
}
