// SPDX-License-Identifier: MPL-2.0

// Package manifest is the durable installation record.
//
// The manifest lives at _config/manifest.yaml under the install folder and
// records the installed modules, the SHA-256 of every file the installer
// wrote or adopted (trackedFiles) and the hash of every customization overlay
// it scaffolded (customizationFiles). It is the only source of "what hash did
// we last believe this file had"; without it every reconciliation falls back
// to overwriting.
package manifest
