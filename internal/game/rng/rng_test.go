package rng_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/finalsentence/server/internal/game/rng"
)

// stubSource returns values from a fixed sequence, wrapping around.
type stubSource struct {
	vals []int
	i    int
}

func (s *stubSource) Intn(n int) int {
	v := s.vals[s.i%len(s.vals)]
	s.i++
	return v % n
}

func TestCryptoSource_IntnInRange(t *testing.T) {
	src := rng.NewCryptoSource()
	for i := 0; i < 1000; i++ {
		v := src.Intn(10)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 10)
	}
}

func TestCryptoSource_IntnPanicsOnNonPositive(t *testing.T) {
	src := rng.NewCryptoSource()
	assert.Panics(t, func() { src.Intn(0) })
	assert.Panics(t, func() { src.Intn(-5) })
}

func TestCode_Deterministic(t *testing.T) {
	src := &stubSource{vals: []int{0, 1, 2, 3, 4, 5}}
	code := rng.Code(src, 6)
	assert.Equal(t, "ABCDEF", code)
}

// TestCode_Property verifies every generated code has the requested length
// and draws only from the code alphabet.
func TestCode_Property(t *testing.T) {
	src := rng.NewCryptoSource()
	rapid.Check(t, func(rt *rapid.T) {
		length := rapid.IntRange(1, 32).Draw(rt, "length")
		code := rng.Code(src, length)
		if len(code) != length {
			rt.Fatalf("code %q has length %d, want %d", code, len(code), length)
		}
		for _, c := range code {
			if !strings.ContainsRune(rng.CodeAlphabet, c) {
				rt.Fatalf("code %q contains %q outside the alphabet", code, c)
			}
		}
	})
}
