// SPDX-License-Identifier: MPL-2.0

// Package cueutil provides shared CUE validation utilities.
//
// The package consolidates the 3-step validation pattern used by the settings
// loader (CUE documents) and the module schema reader (YAML documents):
//
//  1. Compile the embedded schema
//  2. Compile (or extract) user data and unify with the schema
//  3. Validate and decode to a Go value
//
// # Usage
//
//	//go:embed module_schema.cue
//	var schemaBytes []byte
//
//	result, err := cueutil.ParseAndDecodeYAML[rawModule](
//	    schemaBytes,
//	    moduleYAML,
//	    "#ModuleSchema",
//	    cueutil.WithFilename("module.yaml"),
//	)
//	if err != nil {
//	    return nil, err  // Error includes the field path for debugging
//	}
//	return result.Value, nil
package cueutil
