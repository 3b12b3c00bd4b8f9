// SPDX-License-Identifier: MPL-2.0

package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

const (
	// DefaultDependencyCommand installs production npm dependencies.
	DefaultDependencyCommand = "npm install --omit=dev --no-audit --no-fund"
	// DefaultDependencyTimeout bounds one dependency install.
	DefaultDependencyTimeout = 5 * time.Minute

	packageManifest = "package.json"
	installedTree   = "node_modules"
)

var lockFiles = []string{"package-lock.json", "npm-shrinkwrap.json", "yarn.lock", "pnpm-lock.yaml"}

// DependencyInstaller runs a shell command inside a cloned module when its
// declared dependencies are missing or stale.
type DependencyInstaller struct {
	Command string
	Timeout time.Duration
	// Env is passed to the shell. The process environment is used when nil.
	Env []string
}

// Needed reports whether dir declares dependencies whose installed tree is
// missing or older than the manifest or lock file.
func (d *DependencyInstaller) Needed(dir string) bool {
	pkg, err := os.Stat(filepath.Join(dir, packageManifest))
	if err != nil {
		return false
	}
	installed, err := os.Stat(filepath.Join(dir, installedTree))
	if err != nil {
		return true
	}

	newest := pkg.ModTime()
	for _, name := range lockFiles {
		if info, err := os.Stat(filepath.Join(dir, name)); err == nil && info.ModTime().After(newest) {
			newest = info.ModTime()
		}
	}
	return installed.ModTime().Before(newest)
}

// Install runs the configured command in dir through the embedded shell
// interpreter. Combined output is included in the error on failure.
func (d *DependencyInstaller) Install(ctx context.Context, dir string) error {
	command := d.Command
	if strings.TrimSpace(command) == "" {
		command = DefaultDependencyCommand
	}
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultDependencyTimeout
	}

	prog, err := syntax.NewParser().Parse(strings.NewReader(command), "dependency_install")
	if err != nil {
		return fmt.Errorf("failed to parse dependency command: %w", err)
	}

	env := d.Env
	if env == nil {
		env = os.Environ()
	}

	var out bytes.Buffer
	runner, err := interp.New(
		interp.Dir(dir),
		interp.Env(expand.ListEnviron(env...)),
		interp.StdIO(nil, &out, &out),
	)
	if err != nil {
		return fmt.Errorf("failed to create interpreter: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := runner.Run(ctx, prog); err != nil {
		var status interp.ExitStatus
		if errors.As(err, &status) {
			return fmt.Errorf("dependency command exited with status %d: %s", status, strings.TrimSpace(out.String()))
		}
		return fmt.Errorf("dependency command failed: %w", err)
	}
	return nil
}
