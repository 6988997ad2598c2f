// Package cachekey derives stable, filesystem-safe artifact keys from
// episode source URLs. The key is the join identifier across all stored
// artifacts: audio, transcript, summary text, summary audio, and metadata.
package cachekey

import (
	"crypto/sha256"
	"encoding/hex"
)

// KeyLength is the number of hex characters in a derived key.
const KeyLength = 32

// Derive converts a source locator into a 32-character lowercase hex key.
// The digest is computed over the locator bytes exactly as given; callers
// are responsible for any URL normalization before calling.
//
// A value that is already a 32-character lowercase hex string is returned
// unchanged, so callers can pass either a raw URL or a previously derived
// key interchangeably.
func Derive(locator string) string {
	if IsKey(locator) {
		return locator
	}
	sum := sha256.Sum256([]byte(locator))
	return hex.EncodeToString(sum[:])[:KeyLength]
}

// IsKey reports whether s already has the shape of a derived key:
// exactly KeyLength lowercase hex characters.
func IsKey(s string) bool {
	if len(s) != KeyLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
