package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RunCollector bundles Prometheus metrics for the measurement pipeline
// and provides a ready-made /metrics handler. All recording methods are
// nil-receiver safe so the pipeline can run unmetered in tests.
type RunCollector struct {
	gatherer prometheus.Gatherer

	SamplesTotal     prometheus.Counter
	SampleRejections *prometheus.CounterVec
	Runs             *prometheus.CounterVec
	RunDuration      prometheus.Histogram

	LastFitSlope    prometheus.Gauge
	LastFitResidual prometheus.Gauge
}

// NewRunCollector registers measurement metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewRunCollector(reg prometheus.Registerer) (*RunCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	samples, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "measurement_samples_total",
		Help: "Total number of readings emitted by the simulated instrument.",
	}), "measurement_samples_total")
	if err != nil {
		return nil, err
	}

	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "measurement_sample_rejections_total",
		Help: "Total number of rejected sample calls, labeled by rejection reason.",
	}, []string{"reason"})
	rejections, err = registerCounterVec(reg, rejections, "measurement_sample_rejections_total")
	if err != nil {
		return nil, err
	}

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "measurement_runs_total",
		Help: "Total number of pipeline runs, labeled by outcome.",
	}, []string{"outcome"})
	runs, err = registerCounterVec(reg, runs, "measurement_runs_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "measurement_run_duration_seconds",
		Help:    "Wall-clock duration of one pipeline run in seconds.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}), "measurement_run_duration_seconds")
	if err != nil {
		return nil, err
	}

	slope, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "measurement_last_fit_slope",
		Help: "Slope of the most recently fitted calibration curve.",
	}), "measurement_last_fit_slope")
	if err != nil {
		return nil, err
	}
	residual, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "measurement_last_fit_residual_sum_squares",
		Help: "Residual sum of squares of the most recently fitted calibration curve.",
	}), "measurement_last_fit_residual_sum_squares")
	if err != nil {
		return nil, err
	}

	return &RunCollector{
		gatherer:         gatherer,
		SamplesTotal:     samples,
		SampleRejections: rejections,
		Runs:             runs,
		RunDuration:      durations,
		LastFitSlope:     slope,
		LastFitResidual:  residual,
	}, nil
}

// IncSamples records n emitted readings.
func (c *RunCollector) IncSamples(n int) {
	if c == nil || c.SamplesTotal == nil {
		return
	}
	c.SamplesTotal.Add(float64(n))
}

// IncSampleRejection records one rejected sample call.
func (c *RunCollector) IncSampleRejection(reason string) {
	if c == nil || c.SampleRejections == nil {
		return
	}
	c.SampleRejections.WithLabelValues(reason).Inc()
}

// ObserveRun records the outcome and duration of one pipeline run.
func (c *RunCollector) ObserveRun(outcome string, seconds float64) {
	if c == nil {
		return
	}
	if c.Runs != nil {
		c.Runs.WithLabelValues(outcome).Inc()
	}
	if c.RunDuration != nil {
		c.RunDuration.Observe(seconds)
	}
}

// SetLastFit publishes the headline numbers of the most recent
// calibration fit.
func (c *RunCollector) SetLastFit(slope, residualSumSquares float64) {
	if c == nil {
		return
	}
	if c.LastFitSlope != nil {
		c.LastFitSlope.Set(slope)
	}
	if c.LastFitResidual != nil {
		c.LastFitResidual.Set(residualSumSquares)
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *RunCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
