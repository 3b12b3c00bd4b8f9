// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidModuleID is the sentinel error wrapped by InvalidModuleIDError.
var ErrInvalidModuleID = errors.New("invalid module id")

var moduleIDPattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

type (
	// ModuleID is the unique short code of a module (e.g. "core", "bmm").
	// It starts with a lowercase letter and contains only lowercase letters,
	// digits and dashes. Underscores are reserved as the separator in answer keys.
	ModuleID string

	// InvalidModuleIDError is returned when a ModuleID does not match the naming rules.
	InvalidModuleIDError struct {
		Value ModuleID
	}
)

// Error implements the error interface for InvalidModuleIDError.
func (e *InvalidModuleIDError) Error() string {
	return fmt.Sprintf("invalid module id %q (must match %s)", e.Value, moduleIDPattern.String())
}

// Unwrap returns ErrInvalidModuleID for errors.Is() compatibility.
func (e *InvalidModuleIDError) Unwrap() error { return ErrInvalidModuleID }

// Validate returns an error if the ModuleID does not follow the naming rules.
func (m ModuleID) Validate() error {
	if !moduleIDPattern.MatchString(string(m)) {
		return &InvalidModuleIDError{Value: m}
	}
	return nil
}

// String returns the string representation of the ModuleID.
func (m ModuleID) String() string { return string(m) }
