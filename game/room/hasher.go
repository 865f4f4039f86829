package room

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hasher turns a room secret into a one-way hash and verifies candidates
// against it.
type Hasher interface {
	Hash(secret string) ([]byte, error)
	Compare(hash []byte, secret string) bool
}

// BcryptHasher hashes secrets with bcrypt. Secrets are reduced to a
// 44-byte SHA-256 digest first, so multi-byte secrets never hit bcrypt's
// 72-byte input limit.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a hasher using cost, or bcrypt.DefaultCost when
// cost is zero.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash implements Hasher.
func (h *BcryptHasher) Hash(secret string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword(prehash(secret), h.cost)
	if err != nil {
		return nil, fmt.Errorf("bcrypt: %w", err)
	}
	return hash, nil
}

// Compare implements Hasher.
func (h *BcryptHasher) Compare(hash []byte, secret string) bool {
	return bcrypt.CompareHashAndPassword(hash, prehash(secret)) == nil
}

// prehash encodes the digest so bcrypt never sees a NUL byte.
func prehash(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	out := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(out, sum[:])
	return out
}
