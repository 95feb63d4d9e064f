// Package reward resolves probabilistic job outcomes: crafting quality rolls and gathering drop
// tables. Everything here is a pure function of the catalog data, modifiers and a Source.
package reward

import (
	"math/rand/v2"
	"sync"
)

// Source supplies random draws.
type Source interface {
	// Float64 returns a uniform draw in [0, 1).
	Float64() float64
	// IntN returns a uniform draw in [0, n).
	IntN(n int) int
}

// Global draws from the process-wide generator of math/rand/v2.
type Global struct{}

func (Global) Float64() float64 { return rand.Float64() }
func (Global) IntN(n int) int   { return rand.IntN(n) }

type seeded struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewSeeded returns a reproducible Source. It is safe for concurrent use.
func NewSeeded(seed uint64) Source {
	return &seeded{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *seeded) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}

func (s *seeded) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.IntN(n)
}

// Fixed always returns the same draws: Roll as the uniform value and the upper end of every
// integer range when Max is set, the lower end otherwise.
type Fixed struct {
	Roll float64
	Max  bool
}

func (f Fixed) Float64() float64 { return f.Roll }

func (f Fixed) IntN(n int) int {
	if f.Max {
		return n - 1
	}
	return 0
}
