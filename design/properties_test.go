package design

import (
	"errors"
	"math"
	"testing"
)

func TestPoissonRatioReferenceDesigns(t *testing.T) {
	// The three reference designs: conservative, balanced, aggressive.
	cases := []struct {
		angle float64
		want  float64
	}{
		{30, -0.268},
		{45, -0.414},
		{60, -0.577},
	}

	prev := 0.0
	for _, tc := range cases {
		p := mustParams(t, 10, 1, tc.angle)
		props, err := Properties(p)
		if err != nil {
			t.Fatalf("Properties(angle=%v): %v", tc.angle, err)
		}
		if props.PoissonRatio >= 0 {
			t.Errorf("angle=%v: Poisson ratio %v, want negative", tc.angle, props.PoissonRatio)
		}
		if math.Abs(props.PoissonRatio-tc.want) > 5e-4 {
			t.Errorf("angle=%v: Poisson ratio = %v, want ≈ %v", tc.angle, props.PoissonRatio, tc.want)
		}
		if props.PoissonRatio >= prev {
			t.Errorf("angle=%v: Poisson ratio %v not strictly below previous %v", tc.angle, props.PoissonRatio, prev)
		}
		prev = props.PoissonRatio
	}
}

func TestPoissonRatioNegativeAcrossDomain(t *testing.T) {
	for angle := 1.0; angle < 90; angle++ {
		p := mustParams(t, 10, 1, angle)
		props, err := Properties(p)
		if err != nil {
			t.Fatalf("Properties(angle=%v): %v", angle, err)
		}
		if props.PoissonRatio >= 0 {
			t.Fatalf("angle=%v: Poisson ratio = %v, want < 0", angle, props.PoissonRatio)
		}
	}
}

func TestPoissonRatioClosedForm(t *testing.T) {
	// -tan(α/2) and the half-angle identity -sin α/(1+cos α) must agree
	// to floating-point tolerance everywhere in the domain.
	for _, angle := range []float64{1, 15, 30, 44.9, 45, 60, 75, 89} {
		p := mustParams(t, 10, 1, angle)
		props, err := Properties(p)
		if err != nil {
			t.Fatalf("Properties(angle=%v): %v", angle, err)
		}
		rad := angle * math.Pi / 180
		identity := -math.Sin(rad) / (1 + math.Cos(rad))
		if math.Abs(props.PoissonRatio-identity) > 1e-12 {
			t.Errorf("angle=%v: -tan(α/2) = %v, identity form = %v", angle, props.PoissonRatio, identity)
		}
	}
}

func TestCellAreaFormula(t *testing.T) {
	p := mustParams(t, 10, 1, 45)
	props, err := Properties(p)
	if err != nil {
		t.Fatalf("Properties: %v", err)
	}
	want := 100 * (1 + math.Cos(45*math.Pi/180)) / 2
	if rel := math.Abs(props.CellArea-want) / want; rel > 1e-9 {
		t.Fatalf("CellArea = %v, want %v (rel err %v)", props.CellArea, want, rel)
	}
}

func TestCellAreaPositiveAndMonotonic(t *testing.T) {
	prevArea := 0.0
	for _, size := range []float64{1, 2, 5, 10, 20, 50} {
		p := mustParams(t, size, size/10, 45)
		props, err := Properties(p)
		if err != nil {
			t.Fatalf("Properties(size=%v): %v", size, err)
		}
		if props.CellArea <= 0 {
			t.Fatalf("size=%v: CellArea = %v, want > 0", size, props.CellArea)
		}
		if props.CellArea < prevArea {
			t.Fatalf("size=%v: CellArea %v shrank below %v", size, props.CellArea, prevArea)
		}
		prevArea = props.CellArea
	}
}

func TestSensitivityScaling(t *testing.T) {
	p := mustParams(t, 10, 1, 45)

	props, err := Properties(p)
	if err != nil {
		t.Fatalf("Properties: %v", err)
	}
	if want := props.PoissonRatio * DefaultCapacitiveGain; props.Sensitivity != want {
		t.Errorf("Sensitivity = %v, want %v", props.Sensitivity, want)
	}

	custom, err := PropertiesWithGain(p, -3.5)
	if err != nil {
		t.Fatalf("PropertiesWithGain: %v", err)
	}
	if want := custom.PoissonRatio * -3.5; custom.Sensitivity != want {
		t.Errorf("custom gain Sensitivity = %v, want %v", custom.Sensitivity, want)
	}
}

func TestPropertiesDeterministic(t *testing.T) {
	p := mustParams(t, 7.3, 1.1, 52.5)
	a, err := Properties(p)
	if err != nil {
		t.Fatalf("Properties: %v", err)
	}
	b, err := Properties(p)
	if err != nil {
		t.Fatalf("Properties: %v", err)
	}
	if a != b {
		t.Fatalf("identical parameters produced different metrics: %+v vs %+v", a, b)
	}
}

func TestPropertiesPropagatesValidation(t *testing.T) {
	bad := CellParameters{CellSize: -1, WallThickness: 1, ReentrantAngleDeg: 45, ArrayRows: 1, ArrayCols: 1}
	if _, err := Properties(bad); !errors.Is(err, ErrCellSize) {
		t.Fatalf("Properties with bad size: err = %v, want %v", err, ErrCellSize)
	}
}

func TestCapacitanceChangeRatio(t *testing.T) {
	// ΔC/C₀ = -2νε - ε is strictly decreasing in ν for positive strain:
	// a more strongly auxetic cell always responds more positively.
	const strain = 0.01
	prev := math.Inf(1)
	for _, nu := range []float64{-0.577, -0.414, -0.268, 0.3} {
		got := CapacitanceChangeRatio(strain, nu)
		if got >= prev {
			t.Fatalf("ΔC/C₀(ν=%v) = %v, want below %v", nu, got, prev)
		}
		prev = got
	}

	// Beyond ν = -1/2 the area term wins and the net change turns positive.
	if got := CapacitanceChangeRatio(strain, -0.577); got <= 0 {
		t.Errorf("strongly auxetic ΔC/C₀ = %v, want > 0", got)
	}

	if got := CapacitanceChangeRatio(0, -0.5); got != 0 {
		t.Errorf("zero strain ΔC/C₀ = %v, want 0", got)
	}
}
