// Package checksum fingerprints document content so redelivered events for
// unchanged documents can be recognised and skipped.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of content.
func Sum(content []byte) string {
	digest := sha256.Sum256(content)
	return hex.EncodeToString(digest[:])
}

// Matches reports whether content hashes to the stored digest. An empty
// stored digest never matches.
func Matches(content []byte, stored string) bool {
	return stored != "" && Sum(content) == stored
}
