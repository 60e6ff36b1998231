// Package entropy provides the seeded random source that orders every
// randomized pass of the simulation. Runs with the same seed replay exactly.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand"
)

// Source is a seeded pseudo-random stream. It is not safe for concurrent use;
// the simulation owns exactly one and mutates it from a single goroutine.
type Source struct {
	seed int64
	rng  *mrand.Rand
}

// NewSource creates a Source. A zero seed is replaced with one drawn from
// crypto/rand so that unseeded runs still differ from each other.
func NewSource(seed int64) *Source {
	if seed == 0 {
		seed = CryptoSeed()
	}
	return &Source{
		seed: seed,
		rng:  mrand.New(mrand.NewSource(seed)),
	}
}

// Seed returns the seed the stream was created with.
func (s *Source) Seed() int64 {
	return s.seed
}

// Float64 returns a uniform float in [0, 1).
func (s *Source) Float64() float64 {
	return s.rng.Float64()
}

// Intn returns a uniform int in [0, n). n must be positive.
func (s *Source) Intn(n int) int {
	return s.rng.Intn(n)
}

// NormFloat64 returns a standard normal deviate.
func (s *Source) NormFloat64() float64 {
	return s.rng.NormFloat64()
}

// Bernoulli reports true with probability p.
func (s *Source) Bernoulli(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return s.rng.Float64() < p
}

// Shuffle randomizes the order of n elements via swap.
func (s *Source) Shuffle(n int, swap func(i, j int)) {
	s.rng.Shuffle(n, swap)
}

// Derive returns an independent child stream, used where a subsystem
// (world generation, fleet construction) must not perturb the main stream.
func (s *Source) Derive(offset int64) *Source {
	return &Source{
		seed: s.seed + offset,
		rng:  mrand.New(mrand.NewSource(s.seed + offset)),
	}
}

// CryptoSeed draws a non-zero seed from crypto/rand.
func CryptoSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// This should never happen.
		return 1
	}
	seed := int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
	if seed == 0 {
		seed = 1
	}
	return seed
}
