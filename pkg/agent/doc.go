// SPDX-License-Identifier: MPL-2.0

// Package agent compiles agent definitions (*.agent.yaml) into the markdown
// documents installed under _strata/<module>/agents.
//
// Compilation merges an optional customization overlay into the base
// definition, substitutes {key} placeholders from collected answers and the
// definition's declared variables, and renders frontmatter plus a fenced XML
// body. Output is a pure function of its inputs.
package agent
