// Package random supplies the random sources behind the simulated feeds.
package random

import (
	"math/rand/v2"
	"sync"
)

// Source draws the values the simulators need.
type Source interface {
	// IntN returns a uniform int in [0, n).
	IntN(n int) int
	// Float64 returns a uniform float in [0, 1).
	Float64() float64
}

type globalSource struct{}

func (globalSource) IntN(n int) int   { return rand.IntN(n) }
func (globalSource) Float64() float64 { return rand.Float64() }

type lockedSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (s *lockedSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.IntN(n)
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}

// New returns a goroutine-safe Source. A zero seed uses the runtime's
// randomly seeded generator; any other seed gives a reproducible stream.
func New(seed uint64) Source {
	if seed == 0 {
		return globalSource{}
	}
	return &lockedSource{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Derive returns an independent reproducible Source for the n-th consumer of
// a seed, or the runtime generator when seed is zero.
func Derive(seed uint64, n int) Source {
	if seed == 0 {
		return globalSource{}
	}
	return New(seed + uint64(n)*0x2545f4914f6cdd1d)
}

// Sequence replays fixed values, cycling when exhausted. IntN reduces each
// scripted int modulo n. It is meant for deterministic tests.
type Sequence struct {
	mu     sync.Mutex
	ints   []int
	floats []float64
	ii, fi int
}

// NewSequence creates a Sequence over the given scripted values.
func NewSequence(ints []int, floats []float64) *Sequence {
	return &Sequence{ints: ints, floats: floats}
}

func (s *Sequence) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.ints) == 0 {
		return 0
	}
	v := s.ints[s.ii%len(s.ints)]
	s.ii++
	if v < 0 {
		v = -v
	}
	return v % n
}

func (s *Sequence) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.floats) == 0 {
		return 0
	}
	v := s.floats[s.fi%len(s.floats)]
	s.fi++
	return v
}
