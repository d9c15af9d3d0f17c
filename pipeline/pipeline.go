// Package pipeline drives a simulated instrument through a loading
// sequence and reduces the resulting readings to a calibration curve.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/auxetic-sensor/instrument"
	"github.com/signalsfoundry/auxetic-sensor/internal/logging"
	"github.com/signalsfoundry/auxetic-sensor/internal/observability"
)

var (
	ErrNoLoadSteps = errors.New("load-step sequence is empty")
	ErrBadWindow   = errors.New("smoothing window must be at least 1")
)

// LoadStep is one point of a loading sequence: the strain applied at
// that instant and the simulated time increment leading up to it.
type LoadStep struct {
	Strain float64 `json:"strain" yaml:"strain"`
	Dt     float64 `json:"dt" yaml:"dt"`
}

// Result is the write-once output of a completed measurement run: the
// full ordered reading sequence with filtered values populated, and the
// calibration curve fitted over it.
type Result struct {
	Readings []instrument.Reading `json:"readings"`
	Curve    CalibrationCurve     `json:"curve"`
}

// Pipeline orchestrates measurement runs. One Pipeline may serve many
// runs, but each run owns its instrument exclusively for the duration
// (see instrument.Instrument on confinement).
type Pipeline struct {
	window  int
	log     logging.Logger
	metrics *observability.RunCollector
	tracer  trace.Tracer
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithLogger attaches a structured logger; runs log their summary at
// info level and rejections at warn.
func WithLogger(log logging.Logger) Option {
	return func(p *Pipeline) {
		if log != nil {
			p.log = log
		}
	}
}

// WithMetrics attaches a Prometheus collector that observes sampling
// volume, rejections, run outcomes, and the latest fit.
func WithMetrics(collector *observability.RunCollector) Option {
	return func(p *Pipeline) { p.metrics = collector }
}

// WithTracer overrides the OTel tracer used for run spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(p *Pipeline) {
		if tracer != nil {
			p.tracer = tracer
		}
	}
}

// New builds a pipeline with a trailing moving-average window of w
// readings. w = 1 disables smoothing (filtered equals raw).
func New(w int, opts ...Option) (*Pipeline, error) {
	if w < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrBadWindow, w)
	}
	p := &Pipeline{
		window: w,
		log:    logging.Noop(),
		tracer: otel.Tracer("pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run executes the loading sequence against the instrument in strict
// order, smooths the readings, and fits the calibration curve.
//
// Any instrument rejection aborts the run: the error is surfaced and no
// partial readings or curve are returned. Samples are never reordered
// or dropped; reading i is filtered using only readings at indices <= i.
func (p *Pipeline) Run(ctx context.Context, inst *instrument.Instrument, steps []LoadStep) (*Result, error) {
	if len(steps) == 0 {
		return nil, ErrNoLoadSteps
	}

	ctx, log := logging.WithRunLogger(ctx, p.log)
	ctx, span := p.tracer.Start(ctx, "pipeline.Run",
		trace.WithAttributes(
			attribute.Int("steps", len(steps)),
			attribute.Int("window", p.window),
		))
	defer span.End()

	start := time.Now()

	readings := make([]instrument.Reading, 0, len(steps))
	for i, step := range steps {
		r, err := inst.Sample(step.Strain, step.Dt)
		if err != nil {
			p.metrics.IncSampleRejection(rejectionReason(err))
			p.metrics.ObserveRun("error", time.Since(start).Seconds())
			log.Warn(ctx, "measurement run aborted",
				logging.Int("step", i),
				logging.String("error", err.Error()),
			)
			return nil, fmt.Errorf("load step %d: %w", i, err)
		}
		readings = append(readings, r)
	}
	p.metrics.IncSamples(len(readings))

	smooth(readings, p.window)

	strains := make([]float64, len(steps))
	filtered := make([]float64, len(readings))
	for i := range readings {
		strains[i] = steps[i].Strain
		filtered[i] = *readings[i].Filtered
	}
	curve := fitLinear(strains, filtered)

	elapsed := time.Since(start)
	p.metrics.ObserveRun("ok", elapsed.Seconds())
	p.metrics.SetLastFit(curve.Slope(), curve.ResidualSumSquares)
	span.SetAttributes(
		attribute.Float64("fit.slope", curve.Slope()),
		attribute.Float64("fit.rss", curve.ResidualSumSquares),
	)
	log.Info(ctx, "measurement run complete",
		logging.Int("readings", len(readings)),
		logging.Float64("slope", curve.Slope()),
		logging.Float64("intercept", curve.Intercept()),
		logging.Float64("rss", curve.ResidualSumSquares),
	)

	return &Result{Readings: readings, Curve: curve}, nil
}

// smooth populates each reading's filtered value with the arithmetic
// mean of the trailing w raw values ending at that index. Indices below
// w-1 average over the available prefix, so short runs still smooth.
func smooth(readings []instrument.Reading, w int) {
	var windowSum float64
	for i := range readings {
		windowSum += readings[i].Raw
		if i >= w {
			windowSum -= readings[i-w].Raw
		}
		span := w
		if i+1 < w {
			span = i + 1
		}
		value := windowSum / float64(span)
		readings[i].Filtered = &value
	}
}

// rejectionReason maps instrument errors onto stable metric labels.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, instrument.ErrNonPositiveStep):
		return "non_positive_step"
	case errors.Is(err, instrument.ErrStrainOutOfRange):
		return "strain_out_of_range"
	default:
		return "other"
	}
}
