// Package sha224 provides SHA-224 hashing utilities.
package sha224

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hasher implements annotate.Hasher using SHA-224.
type Hasher struct{}

// New returns a SHA-224 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash hashes the input and returns a hex digest.
func (h *Hasher) Hash(data []byte) (string, error) {
	sum := sha256.Sum224(data)
	return hex.EncodeToString(sum[:]), nil
}
