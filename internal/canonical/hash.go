package canonical

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashBytes returns the lowercase hex SHA-256 of b.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Hash returns the lowercase hex SHA-256 of the canonical encoding of v.
// Used identically for action, pre-/post-state, commit, constitution, and
// checkpoint hashes.
func Hash(v any) (string, error) {
	b, err := Marshal(v)
	if err != nil {
		return "", err
	}
	return HashBytes(b), nil
}
