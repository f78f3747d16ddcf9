// Package rng centralizes seeded random stream construction so that
// every trial owns exactly one deterministic stream. Accidental seed
// sharing across parallel workers would silently correlate trials, so
// nothing in the engine creates a generator any other way.
package rng

import "math/rand/v2"

const mix = 0x9e3779b97f4a7c15

// NewStream returns a deterministic generator for the given seed.
func NewStream(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^mix))
}

// TrialSeed derives the private seed for one trial from a batch base
// seed and the trial index. The mapping is injective per batch.
func TrialSeed(baseSeed int64, trial int) int64 {
	return baseSeed + int64(trial)
}
