// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
)

// ParseResult contains the result of a successful CUE parse operation.
type ParseResult[T any] struct {
	// Value is the decoded Go value.
	Value *T

	// Unified is the unified CUE value, available for callers that need
	// to extract more than the decoded struct carries.
	Unified cue.Value
}

// ParseAndDecode performs the 3-step CUE parsing flow on a CUE document:
//
//  1. Compile the embedded schema
//  2. Compile user data and unify with schema
//  3. Validate and decode to T
func ParseAndDecode[T any](schema, data []byte, schemaPath string, opts ...Option) (*ParseResult[T], error) {
	return parseAndDecode[T](schema, data, schemaPath, false, opts...)
}

// ParseAndDecodeYAML is ParseAndDecode for YAML documents. The YAML is
// extracted into a CUE value before unification so schema errors carry the
// same path formatting either way.
func ParseAndDecodeYAML[T any](schema, data []byte, schemaPath string, opts ...Option) (*ParseResult[T], error) {
	return parseAndDecode[T](schema, data, schemaPath, true, opts...)
}

func parseAndDecode[T any](schema, data []byte, schemaPath string, isYAML bool, opts ...Option) (*ParseResult[T], error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	filename := options.filename
	if filename == "" {
		filename = "<input>"
	}

	if err := CheckFileSize(data, options.maxFileSize, filename); err != nil {
		return nil, err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileBytes(schema)
	if schemaValue.Err() != nil {
		return nil, fmt.Errorf("internal error: failed to compile schema: %w", schemaValue.Err())
	}

	var userValue cue.Value
	if isYAML {
		file, err := cueyaml.Extract(filename, data)
		if err != nil {
			return nil, FormatError(err, filename)
		}
		userValue = ctx.BuildFile(file)
	} else {
		userValue = ctx.CompileBytes(data, cue.Filename(filename))
	}
	if userValue.Err() != nil {
		return nil, FormatError(userValue.Err(), filename)
	}

	schemaRoot := schemaValue.LookupPath(cue.ParsePath(schemaPath))
	if schemaRoot.Err() != nil {
		return nil, fmt.Errorf("internal error: schema definition %s not found: %w", schemaPath, schemaRoot.Err())
	}

	unified := schemaRoot.Unify(userValue)
	if err := unified.Validate(cue.Concrete(options.concrete)); err != nil {
		return nil, FormatError(err, filename)
	}

	var result T
	if err := unified.Decode(&result); err != nil {
		return nil, FormatError(err, filename)
	}

	return &ParseResult[T]{
		Value:   &result,
		Unified: unified,
	}, nil
}
