// SPDX-License-Identifier: MPL-2.0

// Package types holds the small value types shared by the installer packages:
// module identifiers, content hashes, manifest keys and exit codes.
package types
