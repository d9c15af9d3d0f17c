package instrument

import "math/rand/v2"

// NoiseSource supplies standard-normal variates for the measurement
// noise model. It is always passed in explicitly: a hidden global
// generator would make fixed-seed replay of a reading sequence
// impossible, and replay is what the regression tests are built on.
//
// *rand.Rand satisfies the interface directly.
type NoiseSource interface {
	NormFloat64() float64
}

// NewSeededSource returns a deterministic NoiseSource: two sources built
// from the same seed emit identical variate sequences.
func NewSeededSource(seed uint64) NoiseSource {
	return rand.New(rand.NewPCG(seed, 0))
}
