// SPDX-License-Identifier: MPL-2.0

package install

import (
	"path/filepath"

	"github.com/google/uuid"

	"github.com/strata-dev/strata/pkg/agent"
	"github.com/strata-dev/strata/pkg/collect"
	"github.com/strata-dev/strata/pkg/manifest"
	"github.com/strata-dev/strata/pkg/types"
)

// RunContext is the state of one install run, threaded through every step.
type RunContext struct {
	RunID      uuid.UUID
	ProjectDir string
	// InstallFolder is the install root relative to ProjectDir.
	InstallFolder string
	InstallDir    string
	IsUpdate      bool
	// Degraded is set when an install exists but its manifest does not, so
	// no user edit can be detected.
	Degraded       bool
	Answers        collect.Answers
	ExistingConfig collect.Config
	FinalConfig    collect.Config
	Manifest       *manifest.Manifest
	Summary        *Summary
}

// ModuleDir returns the install directory of a module.
func (rc *RunContext) ModuleDir(id types.ModuleID) string {
	return filepath.Join(rc.InstallDir, string(id))
}

// OverlayPath returns the overlay file of a module's agent.
func (rc *RunContext) OverlayPath(id types.ModuleID, agentName string) string {
	return filepath.Join(rc.InstallDir, manifest.ConfigDirName, "agents", agent.OverlayFileName(string(id), agentName))
}

// SidecarDir returns the installed sidecar directory of an agent.
func (rc *RunContext) SidecarDir(agentName string) string {
	return filepath.Join(rc.InstallDir, MemoryDirName, agentName+SidecarSuffix)
}
