// SPDX-License-Identifier: MPL-2.0

package collect

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"testing"

	"github.com/strata-dev/strata/pkg/moduledef"
	"github.com/strata-dev/strata/pkg/types"
)

// recordingPrompter returns canned answers and records every batch.
type recordingPrompter struct {
	answers map[string]any
	batches [][]Question
}

func (p *recordingPrompter) Ask(_ context.Context, _ *moduledef.Module, qs []Question) (map[string]any, error) {
	p.batches = append(p.batches, qs)
	out := make(map[string]any)
	for _, q := range qs {
		if v, ok := p.answers[q.Key]; ok {
			out[q.Key] = v
		}
	}
	return out, nil
}

func (p *recordingPrompter) askedKeys() []string {
	var keys []string
	for _, b := range p.batches {
		for _, q := range b {
			keys = append(keys, q.Key)
		}
	}
	return keys
}

func mustParse(t *testing.T, doc string) *moduledef.Module {
	t.Helper()
	m, err := moduledef.Parse([]byte(doc), "module.yaml")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	return m
}

const coreDoc = `code: core
config:
  user_name:
    prompt: "Name?"
    default: "Strata"
    result: "{value}"
  communication_language:
    prompt: "Language?"
    default: "English"
    result: "{value}"
  document_output_language:
    prompt: "Docs language?"
    default: "{communication_language}"
    result: "{value}"
  output_folder:
    prompt: "Output?"
    default: "docs"
    result: "{project-root}/{value}"
  install_marker:
    result: "{project-root}/_strata"
`

const bmmDoc = `code: bmm
config:
  project_name:
    prompt: "Project?"
    default: "demo"
    result: "{value}"
  planning_folder:
    prompt: "Planning docs?"
    default: "{output_folder}/planning"
    result: "{project-root}/{value}"
  use_tests:
    prompt: "Tests?"
    default: true
    result: "{value}"
  languages:
    prompt: "Languages?"
    default: [go]
    multi-select: [go, ts]
    result: "lang-{value}"
  greeting:
    result: "Hello {user_name} from {project_name}"
`

func TestCollectFirstInstall(t *testing.T) {
	t.Parallel()

	answers, final := Answers{}, Config{}
	p := &recordingPrompter{answers: map[string]any{"user_name": "Ada", "languages": []string{"go", "ts"}}}
	c := New(p, answers, nil, final)

	coreRes, err := c.Collect(context.Background(), mustParse(t, coreDoc))
	if err != nil {
		t.Fatalf("Collect(core) error: %v", err)
	}
	if len(p.batches) != 1 {
		t.Fatalf("core asked %d batches, want 1", len(p.batches))
	}
	if got := p.askedKeys(); !slices.Equal(got, []string{"user_name", "communication_language", "document_output_language", "output_folder"}) {
		t.Errorf("asked keys = %v", got)
	}
	// Default chain resolved to the sibling's schema default.
	if q := p.batches[0][2]; q.Default != "English" {
		t.Errorf("document_output_language default = %v, want English", q.Default)
	}

	want := map[string]any{
		"user_name":                "Ada",
		"communication_language":   "English",
		"document_output_language": "English",
		"output_folder":            "{project-root}/docs",
		"install_marker":           "{project-root}/_strata",
	}
	if !reflect.DeepEqual(coreRes.Values, want) {
		t.Errorf("core values = %v, want %v", coreRes.Values, want)
	}
	if answers["core_output_folder"] != "{project-root}/docs" {
		t.Errorf("answers not published: %v", answers)
	}

	bmmRes, err := c.Collect(context.Background(), mustParse(t, bmmDoc))
	if err != nil {
		t.Fatalf("Collect(bmm) error: %v", err)
	}
	bmmQs := p.batches[1]
	if bmmQs[1].Default != "docs/planning" {
		t.Errorf("planning_folder default = %v, want cross-module docs/planning", bmmQs[1].Default)
	}
	if bmmQs[2].Kind != moduledef.KindBoolean || bmmQs[2].Default != true {
		t.Errorf("use_tests question = %+v", bmmQs[2])
	}

	v := bmmRes.Values
	if v["use_tests"] != true {
		t.Errorf("{value} result should keep the typed bool, got %#v", v["use_tests"])
	}
	if !reflect.DeepEqual(v["languages"], []string{"lang-go", "lang-ts"}) {
		t.Errorf("languages = %#v, want per-element results", v["languages"])
	}
	if v["planning_folder"] != "{project-root}/docs/planning" {
		t.Errorf("planning_folder = %v", v["planning_folder"])
	}
	// Static items resolve before the batch is answered.
	if v["greeting"] != "Hello Ada from demo" {
		t.Errorf("greeting = %v", v["greeting"])
	}
}

func TestPlaceholderDeterminism(t *testing.T) {
	t.Parallel()

	def := mustParse(t, `code: bmm
config:
  sub_folder:
    prompt: "Sub?"
    default: "{output_folder}/sub"
`)
	answers := Answers{"core_output_folder": "out"}
	c := New(Defaults{}, answers, nil, Config{})
	sc := newScope(c, def, map[string]any{})
	item, _ := def.Item("sub_folder")

	first := sc.typedDefault(item)
	second := sc.typedDefault(item)
	if first != "out/sub" || first != second {
		t.Errorf("typedDefault() = %v then %v, want out/sub twice", first, second)
	}
}

func TestAnswersLookup(t *testing.T) {
	t.Parallel()

	a := Answers{
		"zeta_output_folder":  "z",
		"alpha_output_folder": "a",
		"bmm_name":            "b",
	}
	if v, _ := a.Lookup("bmm", "output_folder"); v != "a" {
		t.Errorf("smallest suffix match = %v, want a", v)
	}
	a["core_output_folder"] = "c"
	if v, _ := a.Lookup("bmm", "output_folder"); v != "c" {
		t.Errorf("core match = %v, want c", v)
	}
	a["bmm_output_folder"] = "own"
	if v, _ := a.Lookup("bmm", "output_folder"); v != "own" {
		t.Errorf("exact match = %v, want own", v)
	}
	if _, ok := a.Lookup("bmm", "missing"); ok {
		t.Error("Lookup(missing) should fail")
	}
}

func TestDefaultCycleKeepsRawDefault(t *testing.T) {
	t.Parallel()

	def := mustParse(t, `code: loop
config:
  a:
    prompt: "A?"
    default: "{b}"
  b:
    prompt: "B?"
    default: "{a}"
  c:
    prompt: "C?"
    default: "{nowhere}/x"
`)
	res, err := New(Defaults{}, Answers{}, nil, Config{}).Collect(context.Background(), def)
	if err != nil {
		t.Fatalf("Collect() error: %v", err)
	}
	if res.Values["a"] != "{b}" || res.Values["b"] != "{a}" {
		t.Errorf("cyclic defaults = %v %v, want {b} {a}", res.Values["a"], res.Values["b"])
	}
	if res.Values["c"] != "{nowhere}/x" {
		t.Errorf("unresolved placeholder = %v", res.Values["c"])
	}
}

func TestSchemaGrowthMigration(t *testing.T) {
	t.Parallel()

	grown := mustParse(t, coreDoc+`  new_setting:
    prompt: "New?"
    default: "fresh"
`)
	existing := Config{"core": {
		"user_name":                "Ada",
		"communication_language":   "French",
		"document_output_language": "French",
		"output_folder":            "/work/docs",
		"install_marker":           "/work/_strata",
	}}

	p := &recordingPrompter{}
	final := Config{}
	res, err := New(p, Answers{}, existing, final).Collect(context.Background(), grown)
	if err != nil {
		t.Fatalf("Collect() error: %v", err)
	}
	if got := p.askedKeys(); !slices.Equal(got, []string{"new_setting"}) {
		t.Errorf("asked keys = %v, want only new_setting", got)
	}
	for k, v := range existing["core"] {
		if res.Values[k] != v {
			t.Errorf("%s = %v, want stored %v", k, res.Values[k], v)
		}
	}
	if res.Values["new_setting"] != "fresh" {
		t.Errorf("new_setting = %v", res.Values["new_setting"])
	}

	// No schema change: nothing is asked.
	p2 := &recordingPrompter{}
	existing["core"]["new_setting"] = "fresh"
	res, err = New(p2, Answers{}, existing, Config{}).Collect(context.Background(), grown)
	if err != nil {
		t.Fatal(err)
	}
	if !res.CarriedOver || len(p2.batches) != 0 {
		t.Errorf("CarriedOver = %v batches = %d, want carried over without prompting", res.CarriedOver, len(p2.batches))
	}
}

func TestCollectValidation(t *testing.T) {
	t.Parallel()

	def := mustParse(t, `code: v
config:
  ticket:
    prompt: "Prefix?"
    regex: "^[A-Z]+$"
  owner:
    prompt: "Owner?"
    required: true
`)

	p := &recordingPrompter{answers: map[string]any{"ticket": "abc", "owner": ""}}
	_, err := New(p, Answers{}, nil, Config{}).Collect(context.Background(), def)
	if !errors.Is(err, ErrPattern) || !errors.Is(err, ErrRequired) {
		t.Errorf("Collect() error = %v, want both ErrPattern and ErrRequired", err)
	}

	p = &recordingPrompter{answers: map[string]any{"ticket": "ABC", "owner": "me"}}
	res, err := New(p, Answers{}, nil, Config{}).Collect(context.Background(), def)
	if err != nil {
		t.Fatalf("Collect() error: %v", err)
	}
	if res.Values["ticket"] != "ABC" {
		t.Errorf("ticket = %v", res.Values["ticket"])
	}
}

func TestCarryOver(t *testing.T) {
	t.Parallel()

	answers, final := Answers{}, Config{}
	c := New(Defaults{}, answers, Config{"bmm": {"project_name": "kept"}}, final)
	if !c.CarryOver("bmm") {
		t.Error("CarryOver() should report existing config")
	}
	if answers["bmm_project_name"] != "kept" {
		t.Errorf("answers = %v", answers)
	}
	if c.CarryOver("none") {
		t.Error("CarryOver() without config should report false")
	}
	if v, ok := c.Final("none"); !ok || len(v) != 0 {
		t.Errorf("Final(none) = %v, %v", v, ok)
	}
}

func TestConfigFileRoundTrip(t *testing.T) {
	t.Parallel()

	project := t.TempDir()
	install := filepath.Join(project, "_strata")
	def := mustParse(t, coreDoc)
	values := map[string]any{
		"output_folder": "{project-root}/docs",
		"user_name":     "Ada",
		"zz_legacy":     "old",
		"aa_legacy":     []any{"{project-root}/x"},
	}

	data, err := MarshalConfig(def, values, project)
	if err != nil {
		t.Fatalf("MarshalConfig() error: %v", err)
	}
	text := string(data)
	if !strings.HasPrefix(text, "# core configuration\n") {
		t.Errorf("missing header:\n%s", text)
	}
	order := []string{"user_name:", "output_folder:", "aa_legacy:", "zz_legacy:"}
	last := -1
	for _, k := range order {
		i := strings.Index(text, k)
		if i < 0 || i < last {
			t.Fatalf("key %s out of order in:\n%s", k, text)
		}
		last = i
	}
	if strings.Contains(text, ProjectRootToken) {
		t.Errorf("{project-root} not substituted:\n%s", text)
	}

	path := ConfigPath(install, "core")
	if changed, err := WriteConfig(path, data); err != nil || !changed {
		t.Fatalf("WriteConfig() = %v, %v", changed, err)
	}
	if changed, _ := WriteConfig(path, data); changed {
		t.Error("identical WriteConfig() should not write")
	}

	if err := os.MkdirAll(filepath.Join(install, "_config"), 0o755); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadExisting(install, project)
	if err != nil {
		t.Fatalf("LoadExisting() error: %v", err)
	}
	if got := cfg.Modules(); !slices.Equal(got, []types.ModuleID{"core"}) {
		t.Errorf("Modules() = %v", got)
	}
	if cfg["core"]["output_folder"] != "{project-root}/docs" {
		t.Errorf("output_folder = %v", cfg["core"]["output_folder"])
	}

	// Re-marshalling the loaded values is byte-identical.
	again, err := MarshalConfig(def, cfg["core"], project)
	if err != nil {
		t.Fatal(err)
	}
	if string(again) != text {
		t.Errorf("re-marshalled config differs:\n%s\nvs\n%s", again, text)
	}
}
