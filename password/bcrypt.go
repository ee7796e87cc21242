package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const minCost = 10

// Bcrypt defines a public type used by greenauth APIs.
//
// Bcrypt instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Bcrypt struct {
	cost int
}

// NewBcrypt returns a verifier/hasher with the given cost. Zero selects the
// package minimum; costs below it are rejected rather than silently raised.
func NewBcrypt(cost int) (*Bcrypt, error) {
	if cost == 0 {
		cost = minCost
	}
	if cost < minCost || cost > bcrypt.MaxCost {
		return nil, errors.New("invalid bcrypt cost")
	}
	return &Bcrypt{cost: cost}, nil
}

// Hash derives a one-way hash of plain.
func (b *Bcrypt) Hash(plain string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(plain), b.cost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Verify reports whether plain matches hash. Any comparison failure,
// including a corrupt hash, reads as a non-match; the caller cannot
// distinguish the two and must not try.
func (b *Bcrypt) Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
