// Package instrument models the capacitance measurement hardware used
// on the sensor testbench. The simulated meter produces physically
// plausible readings (baseline + strain response + drift + Gaussian
// noise) without any real hardware attached, so the full measurement
// pipeline can run deterministically inside a test.
package instrument

import (
	"errors"
	"fmt"
)

var (
	ErrNonPositiveStep  = errors.New("time step must be positive")
	ErrStrainOutOfRange = errors.New("applied strain must lie in [0, 1]")
)

// Config describes the simulated meter's response model.
//
// Sensitivity is the strain-to-capacitance gain, normally taken from
// design.MechanicalProperties for the cell under test. DriftRate is the
// slow baseline walk per unit of simulated time; NoiseSigma the standard
// deviation of the zero-mean measurement noise. Capacitance values are
// in picofarads, time in seconds.
type Config struct {
	BaselineCapacitance float64
	DriftRate           float64
	NoiseSigma          float64
	Sensitivity         float64
}

// Reading is one immutable sample from the meter. Filtered is nil until
// the measurement pipeline's smoothing step populates it; the pointer
// distinguishes "not yet smoothed" from a genuine zero.
type Reading struct {
	Timestamp float64  `json:"timestamp"`
	Raw       float64  `json:"raw"`
	Filtered  *float64 `json:"filtered,omitempty"`
}

// Instrument is the simulated capacitance meter. It has a single armed
// state: elapsed simulated time accumulates on every accepted Sample
// call and on nothing else. There is no background clock, and no
// disconnected or faulted state.
//
// An Instrument must be confined to one logical measurement run; it is
// not safe for concurrent use, matching the strictly sequential physical
// sampling process it stands in for.
type Instrument struct {
	cfg     Config
	noise   NoiseSource
	elapsed float64
}

// New builds a simulated meter around an explicitly supplied noise
// source. A nil source means noise-free readings, which is what the
// calibration round-trip tests rely on.
func New(cfg Config, noise NoiseSource) *Instrument {
	return &Instrument{cfg: cfg, noise: noise}
}

// IDN returns the identity string the meter reports, in the usual
// vendor,model,serial,firmware form.
func (in *Instrument) IDN() string {
	return "SignalsFoundry,SimLCR,0000,1.0"
}

// Elapsed returns the accumulated simulated time in seconds.
func (in *Instrument) Elapsed() float64 {
	return in.elapsed
}

// Sample advances simulated time by dt and returns the reading taken at
// that instant:
//
//	raw = baseline + sensitivity·strain + drift·t + N(0, σ)
//
// A rejected call (non-positive dt, strain outside [0,1]) leaves the
// instrument state untouched: elapsed time only ever moves on emitted
// readings.
func (in *Instrument) Sample(appliedStrain, dt float64) (Reading, error) {
	if !(dt > 0) {
		return Reading{}, fmt.Errorf("%w: got %v", ErrNonPositiveStep, dt)
	}
	if appliedStrain < 0 || appliedStrain > 1 {
		return Reading{}, fmt.Errorf("%w: got %v", ErrStrainOutOfRange, appliedStrain)
	}

	in.elapsed += dt

	raw := in.cfg.BaselineCapacitance +
		in.cfg.Sensitivity*appliedStrain +
		in.cfg.DriftRate*in.elapsed
	if in.noise != nil && in.cfg.NoiseSigma > 0 {
		raw += in.cfg.NoiseSigma * in.noise.NormFloat64()
	}

	return Reading{Timestamp: in.elapsed, Raw: raw}, nil
}
