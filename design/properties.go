package design

import "math"

// DefaultCapacitiveGain is the empirical scaling constant K linking the
// Poisson's ratio to the strain-to-capacitance sensitivity. It was
// calibrated against the 30/45/60 degree reference designs on the
// differential electrode pair and is deliberately not derived from
// first principles; callers with their own calibration data should use
// PropertiesWithGain instead.
const DefaultCapacitiveGain = -2.0

// MechanicalProperties are the derived metrics for one design. They are
// a pure function of CellParameters: identical parameters always yield
// bit-identical values.
type MechanicalProperties struct {
	// PoissonRatio is negative over the whole valid angle domain;
	// that sign is the definition of auxetic behaviour here.
	PoissonRatio float64
	// CellArea is the envelope-area approximation for one cell (mm²),
	// consistent with the generated outline's bounding envelope.
	CellArea float64
	// Sensitivity is the dimensionless strain-to-capacitance gain the
	// instrument model uses as its response coefficient.
	Sensitivity float64
}

// Properties computes the mechanical metrics with the default
// capacitive gain.
func Properties(p CellParameters) (MechanicalProperties, error) {
	return PropertiesWithGain(p, DefaultCapacitiveGain)
}

// PropertiesWithGain computes the mechanical metrics using a custom
// calibration gain K, with Sensitivity = PoissonRatio * K.
//
// The closed forms, shared verbatim with the browser calculator:
//
//	ν = -tan(α/2)             (equivalently -sin α / (1 + cos α))
//	A = a² (1 + cos α) / 2
func PropertiesWithGain(p CellParameters, gain float64) (MechanicalProperties, error) {
	if err := p.Validate(); err != nil {
		return MechanicalProperties{}, err
	}

	alpha := p.ReentrantAngleDeg * math.Pi / 180
	nu := -math.Tan(alpha / 2)

	return MechanicalProperties{
		PoissonRatio: nu,
		CellArea:     p.CellSize * p.CellSize * (1 + math.Cos(alpha)) / 2,
		Sensitivity:  nu * gain,
	}, nil
}

// CapacitanceChangeRatio estimates the small-strain relative capacitance
// change ΔC/C₀ for a cell with the given Poisson's ratio under the
// applied longitudinal strain. The auxetic area term (2νε with ν < 0)
// grows the electrode overlap while the gap term shrinks it:
//
//	ΔC/C₀ = -2 ν ε - ε
func CapacitanceChangeRatio(strain, poissonRatio float64) float64 {
	transverse := -poissonRatio * strain
	return 2*transverse - strain
}
