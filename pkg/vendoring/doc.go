// SPDX-License-Identifier: MPL-2.0

// Package vendoring copies workflow artifacts from one module into another.
//
// A menu entry that declares both workflow (the origin path) and
// workflow-install (the consumer path) asks for the origin workflow
// directory to be copied into the consumer. The copy's config_source is
// rewritten to the consumer's own config so it never reads the origin
// module's settings after being relocated.
package vendoring
