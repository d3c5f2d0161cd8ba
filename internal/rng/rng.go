// Package rng partitions one run's randomness into per-model streams, so
// that reproducing a run only requires the base seed and a fixed set of
// offsets (spec.md §9 "Randomness"). Adapted from the teacher's
// sim/cluster/rng.go PartitionedRNG, which derives per-subsystem streams
// from a master seed; here the derivation is a fixed numeric offset per
// named model instead of a hash of the subsystem name, since spec.md fixes
// the exact offsets models must use for determinism across runs.
package rng

import "math/rand"

// Offsets for the named model streams (spec.md §9).
const (
	OffsetCarbon  = 100
	OffsetThermal = 200
	OffsetGPU     = 300
	OffsetNetwork = 400
	OffsetStorage = 500
	OffsetCooling = 600
	OffsetFailure = 700
	OffsetWorkload = 800
)

// Streams owns one *rand.Rand per named model, all derived from a single
// base seed. Recreating a Streams with the same base seed reproduces every
// model's random sequence exactly, which is required for
// SessionManager.start determinism (spec.md §8 "Two SessionManager.start...").
type Streams struct {
	base int64
	subs map[int64]*rand.Rand
}

// New creates a Streams rooted at baseSeed.
func New(baseSeed int64) *Streams {
	return &Streams{base: baseSeed, subs: make(map[int64]*rand.Rand)}
}

// For returns the *rand.Rand for the given offset, creating it lazily and
// deterministically from base+offset. Repeated calls with the same offset
// return the same stream instance.
func (s *Streams) For(offset int64) *rand.Rand {
	if r, ok := s.subs[offset]; ok {
		return r
	}
	r := rand.New(rand.NewSource(s.base + offset))
	s.subs[offset] = r
	return r
}

// Reset recreates every stream already in use from the base seed, which is
// what Simulator.reset() must do to restore full reproducibility.
func (s *Streams) Reset() {
	for offset := range s.subs {
		s.subs[offset] = rand.New(rand.NewSource(s.base + offset))
	}
}
