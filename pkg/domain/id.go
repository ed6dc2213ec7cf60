package domain

import (
	"crypto/rand"
	"encoding/hex"
)

// NewInferID returns a random opaque token identifying one chat turn. 48 bits
// of randomness: collisions are treated as negligible, not impossible.
func NewInferID() string {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		panic("reading random bytes: " + err.Error())
	}
	return hex.EncodeToString(b)
}
