// SPDX-License-Identifier: MPL-2.0

// Package source locates module sources across three tiers: directories
// registered by the user (local-custom), git repositories cloned into the
// cache (remote-cached) and modules shipped with the binary (builtin).
//
// The Resolver returns ModuleSource values so later stages never probe the
// filesystem to learn where a module keeps its schema, templates or assets.
package source
