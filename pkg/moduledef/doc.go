// SPDX-License-Identifier: MPL-2.0

// Package moduledef parses module.yaml, the declarative description of an
// installable module: identity, declared dependencies and the ordered config
// schema from which install-time questions are built.
//
// Documents are validated against an embedded CUE schema before the config
// section is decoded into typed ConfigItem values, so callers never branch on
// raw YAML field shapes.
package moduledef
