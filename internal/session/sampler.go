package session

import (
	"math/big"
	"math/rand"
)

// Sampler produces candidate integers. Every call must return a new
// *big.Int the caller may keep.
type Sampler interface {
	Next() *big.Int
}

// UniformSampler draws uniformly from the closed interval [min, max].
//
// Thread-safety: not safe for concurrent use. A session is single-threaded.
type UniformSampler struct {
	rng  *rand.Rand
	min  *big.Int
	span *big.Int // max - min + 1
}

// NewUniformSampler creates a sampler over [min, max] seeded with seed.
// The same seed and bounds always yield the same sequence.
func NewUniformSampler(min, max *big.Int, seed int64) *UniformSampler {
	span := new(big.Int).Sub(max, min)
	span.Add(span, big.NewInt(1))
	return &UniformSampler{
		rng:  rand.New(rand.NewSource(seed)),
		min:  new(big.Int).Set(min),
		span: span,
	}
}

// Next returns the next candidate.
func (s *UniformSampler) Next() *big.Int {
	n := new(big.Int).Rand(s.rng, s.span)
	return n.Add(n, s.min)
}

// SequenceSampler replays a fixed list of candidates, then repeats the last
// one. Used by tests to script exact sessions.
type SequenceSampler struct {
	values []*big.Int
	idx    int
}

// NewSequenceSampler creates a sampler over the given values.
// Panics if values is empty.
func NewSequenceSampler(values ...*big.Int) *SequenceSampler {
	if len(values) == 0 {
		panic("SequenceSampler: no values")
	}
	return &SequenceSampler{values: values}
}

// Next returns the next scripted value.
func (s *SequenceSampler) Next() *big.Int {
	v := s.values[s.idx]
	if s.idx < len(s.values)-1 {
		s.idx++
	}
	return new(big.Int).Set(v)
}
