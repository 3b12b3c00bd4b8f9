// SPDX-License-Identifier: MPL-2.0

// Package install orchestrates an install or update run.
//
// A run plans the requested modules in dependency order and then, one module
// at a time, collects configuration, stages the module's asset tree, vendors
// artifacts from other modules, compiles agents and reconciles everything
// into the install folder. The manifest is saved after each module, so an
// interrupted run never records files it did not reconcile.
//
// Failures are module-scoped: they are recorded in the Summary and the run
// continues with the next module.
package install
