// Package checksum fingerprints tutorial sources and scaffolded files so
// unchanged content can be recognised without keeping it around.
package checksum

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Same reports whether a and b have identical content.
func Same(a, b []byte) bool {
	ha, hb := sha256.Sum256(a), sha256.Sum256(b)
	return subtle.ConstantTimeCompare(ha[:], hb[:]) == 1
}

// Matches reports whether data has the digest sum.
func Matches(data []byte, sum string) bool {
	return sum != "" && Sum(data) == sum
}
