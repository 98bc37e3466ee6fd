// Package rng provides the randomness abstraction shared by join-code
// generation and phrase selection.
package rng

import (
	"crypto/rand"
	"math/big"
)

// CodeAlphabet is the character set for room join-codes.
const CodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Source is the randomness provider for the game server.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

// cryptoSource implements Source using crypto/rand.
//
// Invariant: All values produced are uniformly distributed in [0, n) for any
// n > 0.
type cryptoSource struct{}

// NewCryptoSource returns a Source backed by crypto/rand.
//
// Postcondition: Every value returned by Intn is in [0, n).
func NewCryptoSource() Source {
	return &cryptoSource{}
}

// Intn returns a cryptographically secure random int in [0, n).
//
// Precondition: n > 0. Panics with "rng: Intn called with n <= 0" if n <= 0.
// Panics with "rng: crypto/rand failure: <err>" if crypto/rand fails.
func (c *cryptoSource) Intn(n int) int {
	if n <= 0 {
		panic("rng: Intn called with n <= 0")
	}
	val, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("rng: crypto/rand failure: " + err.Error())
	}
	return int(val.Int64())
}

// Code draws a string of the given length from CodeAlphabet.
//
// Precondition: src must be non-nil; length > 0.
// Postcondition: Returns a string of exactly length characters, each drawn
// uniformly from CodeAlphabet.
func Code(src Source, length int) string {
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = CodeAlphabet[src.Intn(len(CodeAlphabet))]
	}
	return string(buf)
}
