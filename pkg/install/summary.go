// SPDX-License-Identifier: MPL-2.0

package install

import (
	"github.com/google/uuid"

	"github.com/strata-dev/strata/pkg/reconcile"
	"github.com/strata-dev/strata/pkg/types"
)

const (
	// StatusInstalled means the module was installed for the first time.
	StatusInstalled Status = "installed"
	// StatusUpdated means an installed module was processed again.
	StatusUpdated Status = "updated"
	// StatusSkipped means the module could not be processed and any prior install was kept.
	StatusSkipped Status = "skipped"
	// StatusFailed means processing started but the module was not reconciled.
	StatusFailed Status = "failed"
)

const (
	// CategoryNone is an outcome without an error.
	CategoryNone Category = ""
	// CategorySourceUnavailable means no tier could provide the module.
	CategorySourceUnavailable Category = "source-unavailable"
	// CategorySchemaParse means the module schema could not be read.
	CategorySchemaParse Category = "schema-parse"
	// CategoryNetworkFetch means a remote update failed.
	CategoryNetworkFetch Category = "network-fetch"
	// CategoryCompile means an agent failed to compile.
	CategoryCompile Category = "compile"
	// CategoryConfig means a collected answer was rejected.
	CategoryConfig Category = "config"
	// CategoryWriteConflict means user-modified files were preserved.
	CategoryWriteConflict Category = "write-conflict"
	// CategoryIO means reading or writing the install failed.
	CategoryIO Category = "io"
)

type (
	// Status is the final state of one planned module.
	Status string

	// Category classifies the error or notice attached to an outcome.
	Category string

	// ModuleOutcome is the result of processing one module.
	ModuleOutcome struct {
		Module   types.ModuleID
		Version  string
		Status   Status
		Category Category
		Err      error
		// Written counts files created or replaced, including config.yaml.
		Written   int
		Unchanged int
		Preserved int
		// Conflicts are the user-modified files left untouched.
		Conflicts []types.TrackedPath
		Warnings  []string
		Agents    []string
	}

	// Summary collects every module outcome of a run.
	Summary struct {
		RunID    uuid.UUID
		IsUpdate bool
		// Degraded is set when an existing install had no manifest.
		Degraded bool
		Modules  []ModuleOutcome
	}
)

// Add records a module outcome.
func (s *Summary) Add(o ModuleOutcome) {
	s.Modules = append(s.Modules, o)
}

// Outcome returns the outcome recorded for id.
func (s *Summary) Outcome(id types.ModuleID) (ModuleOutcome, bool) {
	for _, o := range s.Modules {
		if o.Module == id {
			return o, true
		}
	}
	return ModuleOutcome{}, false
}

// Written returns the number of files written across all modules.
func (s *Summary) Written() int {
	n := 0
	for _, o := range s.Modules {
		n += o.Written
	}
	return n
}

// Conflicts returns every preserved user-modified file.
func (s *Summary) Conflicts() []types.TrackedPath {
	var out []types.TrackedPath
	for _, o := range s.Modules {
		out = append(out, o.Conflicts...)
	}
	return out
}

// HasFailures reports whether any module was skipped or failed.
func (s *Summary) HasFailures() bool {
	for _, o := range s.Modules {
		if o.Status == StatusSkipped || o.Status == StatusFailed {
			return true
		}
	}
	return false
}

// ExitCode maps the summary to the process exit status.
func (s *Summary) ExitCode() types.ExitCode {
	if s.HasFailures() {
		return types.ExitPartial
	}
	return types.ExitOK
}

func (o *ModuleOutcome) addResults(results []reconcile.Result) {
	for _, res := range results {
		switch res.Decision.Action {
		case reconcile.ActionWrite:
			o.Written++
		case reconcile.ActionSkip:
			o.Unchanged++
		case reconcile.ActionPreserve:
			o.Preserved++
			o.Conflicts = append(o.Conflicts, res.Path)
		}
	}
}

func (o *ModuleOutcome) fail(status Status, cat Category, err error) {
	o.Status = status
	o.Category = cat
	o.Err = err
}
