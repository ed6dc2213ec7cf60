package auth

import (
	"crypto/sha256"
	"encoding/hex"
)

type hasher struct {
	salt string
}

// NewHasher builds a one-way user pseudonymizer. The raw user identifier never
// reaches a provider; only the salted hash does.
func NewHasher(salt string) *hasher {
	return &hasher{salt: salt}
}

func (h *hasher) Hash(userID string) string {
	sum := sha256.Sum256([]byte(h.salt + userID))
	return hex.EncodeToString(sum[:])
}
