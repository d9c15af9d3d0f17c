package pipeline

import (
	"errors"
	"fmt"
	"math"
)

var ErrBadProfile = errors.New("invalid load profile")

// Load profiles synthesise the (strain, dt) sequences a testbench
// operator would otherwise script by hand. All profiles keep strain
// inside [0, 1] and use a constant positive step, so a generated
// sequence always passes instrument validation.

// RampProfile ramps strain linearly from 0 to maxStrain over n steps,
// the last step landing exactly on maxStrain.
func RampProfile(n int, maxStrain, dt float64) ([]LoadStep, error) {
	if err := checkProfile(n, maxStrain, dt); err != nil {
		return nil, err
	}
	steps := make([]LoadStep, n)
	for i := range steps {
		frac := 0.0
		if n > 1 {
			frac = float64(i) / float64(n-1)
		}
		steps[i] = LoadStep{Strain: frac * maxStrain, Dt: dt}
	}
	return steps, nil
}

// HoldProfile applies a constant strain for n steps, the pattern used
// for drift characterisation.
func HoldProfile(n int, strain, dt float64) ([]LoadStep, error) {
	if err := checkProfile(n, strain, dt); err != nil {
		return nil, err
	}
	steps := make([]LoadStep, n)
	for i := range steps {
		steps[i] = LoadStep{Strain: strain, Dt: dt}
	}
	return steps, nil
}

// CyclicProfile sweeps strain sinusoidally between 0 and maxStrain over
// the given number of cycles, n steps in total.
func CyclicProfile(n, cycles int, maxStrain, dt float64) ([]LoadStep, error) {
	if err := checkProfile(n, maxStrain, dt); err != nil {
		return nil, err
	}
	if cycles < 1 {
		return nil, fmt.Errorf("%w: cycle count %d", ErrBadProfile, cycles)
	}
	steps := make([]LoadStep, n)
	for i := range steps {
		phase := 2 * math.Pi * float64(cycles) * float64(i) / float64(n)
		steps[i] = LoadStep{
			Strain: maxStrain * (1 - math.Cos(phase)) / 2,
			Dt:     dt,
		}
	}
	return steps, nil
}

func checkProfile(n int, peakStrain, dt float64) error {
	if n < 1 {
		return fmt.Errorf("%w: step count %d", ErrBadProfile, n)
	}
	if peakStrain < 0 || peakStrain > 1 {
		return fmt.Errorf("%w: peak strain %v outside [0, 1]", ErrBadProfile, peakStrain)
	}
	if !(dt > 0) {
		return fmt.Errorf("%w: step dt %v", ErrBadProfile, dt)
	}
	return nil
}
