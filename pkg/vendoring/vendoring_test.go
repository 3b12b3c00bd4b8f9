// SPDX-License-Identifier: MPL-2.0

package vendoring

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/strata-dev/strata/internal/testutil"
	"github.com/strata-dev/strata/pkg/agent"
)

func TestParseReference(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ref     string
		want    Reference
		wantErr bool
	}{
		{ref: "{project-root}/_strata/a/workflows/x/workflow.yaml", want: Reference{Module: "a", Dir: "workflows/x"}},
		{ref: "{project-root}/_strata/b/workflows/y", want: Reference{Module: "b", Dir: "workflows/y"}},
		{ref: "/abs/_strata/a/workflows/x/workflow.yaml", wantErr: true},
		{ref: "{project-root}/_strata/a", wantErr: true},
		{ref: "{project-root}/_strata/a/workflow.yaml", wantErr: true},
		{ref: "{project-root}/_strata/a/../../etc/workflow.yaml", wantErr: true},
		{ref: "{project-root}/_strata/Bad/workflows/x/workflow.yaml", wantErr: true},
		{ref: "{project-root}/{install-folder}/a/workflows/x/workflow.yaml", want: Reference{Module: "a", Dir: "workflows/x"}},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			t.Parallel()

			got, err := ParseReference(tt.ref, "_strata")
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidReference) {
					t.Errorf("ParseReference() error = %v, want ErrInvalidReference", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseReference() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseReference() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestScan(t *testing.T) {
	t.Parallel()

	agents := map[string]*agent.Agent{
		"pm": {Menu: []agent.MenuItem{
			{Trigger: "plain", Handlers: agent.Handlers{Workflow: "{project-root}/_strata/b/workflows/own/workflow.yaml"}},
			{
				Trigger:         "borrow",
				Handlers:        agent.Handlers{Workflow: "{project-root}/_strata/a/workflows/x/workflow.yaml"},
				WorkflowInstall: "{project-root}/_strata/b/workflows/y/workflow.yaml",
			},
			{
				Trigger:         "wrong-target",
				Handlers:        agent.Handlers{Workflow: "{project-root}/_strata/a/workflows/x/workflow.yaml"},
				WorkflowInstall: "{project-root}/_strata/c/workflows/y/workflow.yaml",
			},
		}},
	}

	decls, skipped := Scan("b", agents, "_strata")
	if len(decls) != 1 {
		t.Fatalf("Scan() = %+v, want one declaration", decls)
	}
	want := Declaration{Agent: "pm", Trigger: "borrow", Origin: "a", Consumer: "b", OriginRel: "workflows/x", DestRel: "workflows/y"}
	if decls[0] != want {
		t.Errorf("Scan()[0] = %+v, want %+v", decls[0], want)
	}
	if len(skipped) != 1 || !errors.Is(skipped[0], ErrForeignDestination) {
		t.Fatalf("Scan() skipped = %v, want one ErrForeignDestination", skipped)
	}
	if !strings.Contains(skipped[0].Error(), "trigger wrong-target") {
		t.Errorf("skipped error = %q, want the trigger named", skipped[0])
	}
}

func TestScanResolvesInstallFolder(t *testing.T) {
	t.Parallel()

	agents := map[string]*agent.Agent{
		"pm": {Menu: []agent.MenuItem{
			{
				Trigger:         "borrow",
				Handlers:        agent.Handlers{Workflow: "{project-root}/{install-folder}/a/workflows/x/workflow.yaml"},
				WorkflowInstall: "{project-root}/{install-folder}/b/workflows/y/workflow.yaml",
			},
			{
				Trigger:         "hard-coded",
				Handlers:        agent.Handlers{Workflow: "{project-root}/_strata/a/workflows/x/workflow.yaml"},
				WorkflowInstall: "{project-root}/_strata/b/workflows/z/workflow.yaml",
			},
		}},
	}

	decls, skipped := Scan("b", agents, "tools")
	if len(decls) != 1 || decls[0].Trigger != "borrow" || decls[0].DestRel != "workflows/y" {
		t.Errorf("Scan() = %+v, want the borrow declaration", decls)
	}
	if len(skipped) != 1 || !errors.Is(skipped[0], ErrInvalidReference) {
		t.Errorf("Scan() skipped = %v, want one ErrInvalidReference", skipped)
	}
}

func TestApply(t *testing.T) {
	t.Parallel()

	origin := t.TempDir()
	staging := t.TempDir()
	workflow := "name: x\n# source of settings\nconfig_source: \"{project-root}/_strata/a/config.yaml\"\noutput_folder: \"{config_source}:output_folder\"\n"
	testutil.MustWriteFile(t, filepath.Join(origin, "workflows", "x", "workflow.yaml"), workflow)
	testutil.MustWriteFile(t, filepath.Join(origin, "workflows", "x", "steps", "step-1.md"), "# Step 1\n")
	if err := os.Symlink("/etc/passwd", filepath.Join(origin, "workflows", "x", "link")); err != nil {
		t.Fatal(err)
	}

	d := Declaration{Origin: "a", Consumer: "b", OriginRel: "workflows/x", DestRel: "workflows/y"}
	if err := Apply(d, origin, staging, "_strata"); err != nil {
		t.Fatalf("Apply() error: %v", err)
	}

	got := testutil.MustReadFile(t, filepath.Join(staging, "workflows", "y", "workflow.yaml"))
	want := strings.Replace(workflow, "{project-root}/_strata/a/config.yaml", "{project-root}/_strata/b/config.yaml", 1)
	if got != want {
		t.Errorf("vendored workflow =\n%s\nwant\n%s", got, want)
	}
	if testutil.MustReadFile(t, filepath.Join(staging, "workflows", "y", "steps", "step-1.md")) != "# Step 1\n" {
		t.Error("nested file not byte-identical")
	}
	if _, err := os.Lstat(filepath.Join(staging, "workflows", "y", "link")); !os.IsNotExist(err) {
		t.Error("symlink was copied")
	}

	missing := Declaration{Origin: "a", Consumer: "b", OriginRel: "workflows/none", DestRel: "workflows/z"}
	if err := Apply(missing, origin, staging, "_strata"); !errors.Is(err, ErrOriginMissing) {
		t.Errorf("Apply(missing) error = %v, want ErrOriginMissing", err)
	}
}

func TestRewriteConfigSource(t *testing.T) {
	t.Parallel()

	in := "a: 1\n  config_source: old\nconfig_source_extra: keep\n"
	got := string(RewriteConfigSource([]byte(in), "{project-root}/_strata/b/config.yaml"))
	want := "a: 1\n  config_source: \"{project-root}/_strata/b/config.yaml\"\nconfig_source_extra: keep\n"
	if got != want {
		t.Errorf("RewriteConfigSource() = %q, want %q", got, want)
	}
}
