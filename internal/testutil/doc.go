// SPDX-License-Identifier: MPL-2.0

// Package testutil provides file helpers for tests that fail the test on
// error, so fixtures for module sources and install trees stay short.
package testutil
