package pipeline

import (
	"context"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/auxetic-sensor/design"
	"github.com/signalsfoundry/auxetic-sensor/instrument"
	"github.com/signalsfoundry/auxetic-sensor/internal/observability"
)

// DemoSeed is the fixed seed used across the end-to-end scenarios.
const DemoSeed = 42

func noiselessInstrument(t *testing.T, sensitivity float64) *instrument.Instrument {
	t.Helper()
	return instrument.New(instrument.Config{
		BaselineCapacitance: 10,
		Sensitivity:         sensitivity,
	}, nil)
}

func TestRunRejectsEmptySequence(t *testing.T) {
	p, err := New(1)
	require.NoError(t, err)

	_, err = p.Run(context.Background(), noiselessInstrument(t, 1), nil)
	require.ErrorIs(t, err, ErrNoLoadSteps)
}

func TestNewRejectsBadWindow(t *testing.T) {
	_, err := New(0)
	require.ErrorIs(t, err, ErrBadWindow)
}

func TestWindowOneFilteredEqualsRaw(t *testing.T) {
	p, err := New(1)
	require.NoError(t, err)

	inst := instrument.New(instrument.Config{
		BaselineCapacitance: 10,
		NoiseSigma:          0.3,
		Sensitivity:         2,
	}, instrument.NewSeededSource(DemoSeed))

	steps, err := RampProfile(25, 1, 0.1)
	require.NoError(t, err)

	result, err := p.Run(context.Background(), inst, steps)
	require.NoError(t, err)
	require.Len(t, result.Readings, 25)

	for i, r := range result.Readings {
		require.NotNil(t, r.Filtered, "reading %d has no filtered value", i)
		assert.Equal(t, r.Raw, *r.Filtered, "reading %d", i)
	}
}

func TestCalibrationRecoversDesignSensitivity(t *testing.T) {
	// Zero noise, zero drift, 20-step ramp from 0 to 1: the fitted
	// slope must recover the design's sensitivity almost exactly.
	params, err := design.NewCellParameters(10, 1, 45, 1, 1)
	require.NoError(t, err)
	props, err := design.Properties(params)
	require.NoError(t, err)

	inst := noiselessInstrument(t, props.Sensitivity)
	p, err := New(1)
	require.NoError(t, err)

	steps, err := RampProfile(20, 1, 0.05)
	require.NoError(t, err)

	result, err := p.Run(context.Background(), inst, steps)
	require.NoError(t, err)

	assert.InDelta(t, props.Sensitivity, result.Curve.Slope(), 1e-6)
	assert.InDelta(t, 0, result.Curve.ResidualSumSquares, 1e-9)
	assert.Equal(t, 1, result.Curve.Degree)
	assert.Equal(t, 20, result.Curve.Samples)
}

func TestRunAbortsOnInstrumentRejection(t *testing.T) {
	p, err := New(1)
	require.NoError(t, err)
	inst := noiselessInstrument(t, 1)

	steps := []LoadStep{
		{Strain: 0, Dt: 1},
		{Strain: 0.5, Dt: 0}, // rejected: dt must be positive
		{Strain: 1, Dt: 1},
	}

	result, err := p.Run(context.Background(), inst, steps)
	require.ErrorIs(t, err, instrument.ErrNonPositiveStep)
	assert.Nil(t, result, "aborted run must not return partial readings")

	// Only the first step advanced simulated time.
	assert.Equal(t, 1.0, inst.Elapsed())
}

func TestSmoothingIsTrailingAndCausal(t *testing.T) {
	readings := []instrument.Reading{
		{Raw: 1}, {Raw: 1}, {Raw: 1}, {Raw: 7}, {Raw: 7},
	}
	smooth(readings, 3)

	want := []float64{
		1, // prefix of 1
		1, // prefix of 2
		1, // full window (1+1+1)/3
		3, // (1+1+7)/3
		5, // (1+7+7)/3
	}
	for i := range readings {
		require.NotNil(t, readings[i].Filtered)
		assert.InDelta(t, want[i], *readings[i].Filtered, 1e-12, "index %d", i)
	}
}

func TestRunShorterThanWindowStillSmooths(t *testing.T) {
	p, err := New(10)
	require.NoError(t, err)

	steps, err := HoldProfile(3, 0.5, 1)
	require.NoError(t, err)

	result, err := p.Run(context.Background(), noiselessInstrument(t, 2), steps)
	require.NoError(t, err)
	require.Len(t, result.Readings, 3)
	for i, r := range result.Readings {
		require.NotNil(t, r.Filtered, "reading %d", i)
	}
}

func TestRunDeterministicWithFixedSeed(t *testing.T) {
	cfg := instrument.Config{
		BaselineCapacitance: 10,
		DriftRate:           0.02,
		NoiseSigma:          0.15,
		Sensitivity:         0.83,
	}
	steps, err := RampProfile(40, 1, 0.1)
	require.NoError(t, err)

	run := func() *Result {
		p, err := New(5)
		require.NoError(t, err)
		result, err := p.Run(context.Background(), instrument.New(cfg, instrument.NewSeededSource(DemoSeed)), steps)
		require.NoError(t, err)
		return result
	}

	a, b := run(), run()
	require.Len(t, b.Readings, len(a.Readings))
	for i := range a.Readings {
		assert.Equal(t, a.Readings[i].Timestamp, b.Readings[i].Timestamp, "timestamp %d", i)
		assert.Equal(t, a.Readings[i].Raw, b.Readings[i].Raw, "raw %d", i)
		assert.Equal(t, *a.Readings[i].Filtered, *b.Readings[i].Filtered, "filtered %d", i)
	}
	assert.Equal(t, a.Curve, b.Curve)
}

func TestSmoothingReducesNoiseSpread(t *testing.T) {
	cfg := instrument.Config{BaselineCapacitance: 10, NoiseSigma: 0.5}
	steps, err := HoldProfile(200, 0, 0.1)
	require.NoError(t, err)

	p, err := New(8)
	require.NoError(t, err)
	result, err := p.Run(context.Background(), instrument.New(cfg, instrument.NewSeededSource(DemoSeed)), steps)
	require.NoError(t, err)

	variance := func(pick func(instrument.Reading) float64) float64 {
		var mean float64
		for _, r := range result.Readings {
			mean += pick(r)
		}
		mean /= float64(len(result.Readings))
		var v float64
		for _, r := range result.Readings {
			d := pick(r) - mean
			v += d * d
		}
		return v / float64(len(result.Readings))
	}

	rawVar := variance(func(r instrument.Reading) float64 { return r.Raw })
	filtVar := variance(func(r instrument.Reading) float64 { return *r.Filtered })
	assert.Less(t, filtVar, rawVar, "moving average should shrink the spread of a flat noisy signal")
}

func TestRunRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := observability.NewRunCollector(reg)
	require.NoError(t, err)

	p, err := New(1, WithMetrics(collector))
	require.NoError(t, err)

	steps, err := RampProfile(10, 1, 0.1)
	require.NoError(t, err)
	_, err = p.Run(context.Background(), noiselessInstrument(t, 1), steps)
	require.NoError(t, err)

	assert.Equal(t, 10.0, testutil.ToFloat64(collector.SamplesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.Runs.WithLabelValues("ok")))

	// A rejected run lands in the error outcome and rejection reason.
	_, err = p.Run(context.Background(), noiselessInstrument(t, 1), []LoadStep{{Strain: 2, Dt: 1}})
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.Runs.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.SampleRejections.WithLabelValues("strain_out_of_range")))
}

func TestFitLinearKnownPoints(t *testing.T) {
	xs := []float64{0, 1, 2, 3}
	ys := []float64{1, 3, 5, 7} // y = 1 + 2x

	curve := fitLinear(xs, ys)
	assert.InDelta(t, 1, curve.Intercept(), 1e-12)
	assert.InDelta(t, 2, curve.Slope(), 1e-12)
	assert.InDelta(t, 0, curve.ResidualSumSquares, 1e-12)
	assert.InDelta(t, 9, curve.Predict(4), 1e-12)
}

func TestFitLinearDegenerateAbscissa(t *testing.T) {
	xs := []float64{0.5, 0.5, 0.5}
	ys := []float64{1, 2, 3}

	curve := fitLinear(xs, ys)
	assert.Equal(t, 0.0, curve.Slope())
	assert.InDelta(t, 2, curve.Intercept(), 1e-12)
	assert.False(t, math.IsNaN(curve.ResidualSumSquares))
}
