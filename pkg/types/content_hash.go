// SPDX-License-Identifier: MPL-2.0

package types

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrInvalidContentHash is the sentinel error wrapped by InvalidContentHashError.
var ErrInvalidContentHash = errors.New("invalid content hash")

type (
	// ContentHash is the lowercase hex SHA-256 digest of a file's content.
	ContentHash string

	// InvalidContentHashError is returned when a ContentHash is not a 64 character hex digest.
	InvalidContentHashError struct {
		Value ContentHash
	}
)

// HashBytes returns the ContentHash of data.
func HashBytes(data []byte) ContentHash {
	sum := sha256.Sum256(data)
	return ContentHash(hex.EncodeToString(sum[:]))
}

// HashFile returns the ContentHash of the file at path.
func HashFile(path string) (ContentHash, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return ContentHash(hex.EncodeToString(h.Sum(nil))), nil
}

// Error implements the error interface for InvalidContentHashError.
func (e *InvalidContentHashError) Error() string {
	return fmt.Sprintf("invalid content hash %q (must be 64 lowercase hex characters)", e.Value)
}

// Unwrap returns ErrInvalidContentHash for errors.Is() compatibility.
func (e *InvalidContentHashError) Unwrap() error { return ErrInvalidContentHash }

// Validate returns an error if the hash is not a 64 character lowercase hex string.
func (h ContentHash) Validate() error {
	if len(h) != sha256.Size*2 {
		return &InvalidContentHashError{Value: h}
	}
	for _, c := range h {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return &InvalidContentHashError{Value: h}
		}
	}
	return nil
}

// Short returns the first 12 characters of the hash for display.
func (h ContentHash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}

// String returns the string representation of the ContentHash.
func (h ContentHash) String() string { return string(h) }
