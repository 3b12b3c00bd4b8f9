// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the strata CLI commands.
//
// The App type is the composition root: command handlers receive it and
// reach configuration, prompts and output through it, so tests can run the
// command tree against buffers and temporary directories.
package cmd
