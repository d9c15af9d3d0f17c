package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/signalsfoundry/auxetic-sensor/design"
	"github.com/signalsfoundry/auxetic-sensor/instrument"
	"github.com/signalsfoundry/auxetic-sensor/internal/archive"
	"github.com/signalsfoundry/auxetic-sensor/internal/logging"
	"github.com/signalsfoundry/auxetic-sensor/internal/observability"
	"github.com/signalsfoundry/auxetic-sensor/pipeline"
	"github.com/signalsfoundry/auxetic-sensor/scenario"
)

func main() {
	scenarioPath := flag.String("scenario", "configs/balanced_45deg.json", "path to a measurement scenario file (json or yaml)")
	metricsAddr := flag.String("metrics-addr", ":9090", "HTTP address for Prometheus /metrics; empty disables")
	archivePath := flag.String("archive", "calibration.db", "path to the SQLite calibration archive; empty disables")
	seed := flag.Uint64("seed", 0, "noise seed override; 0 keeps the scenario's seed")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.String("error", err.Error()))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(ctx, shutdownTracing, log)

	collector, err := observability.NewRunCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.String("error", err.Error()))
		os.Exit(1)
	}
	metricsSrv := serveMetrics(*metricsAddr, collector, log)

	s, err := scenario.LoadFile(*scenarioPath)
	if err != nil {
		log.Error(ctx, "failed to load scenario", logging.String("path", *scenarioPath), logging.String("error", err.Error()))
		os.Exit(1)
	}

	geometry, err := design.Generate(s.Params)
	if err != nil {
		log.Error(ctx, "failed to generate cell geometry", logging.String("error", err.Error()))
		os.Exit(1)
	}
	cells, err := design.Tile(s.Params)
	if err != nil {
		log.Error(ctx, "failed to tile cell lattice", logging.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info(ctx, "design evaluated",
		logging.Float64("cell_size", s.Params.CellSize),
		logging.Float64("reentrant_angle_deg", s.Params.ReentrantAngleDeg),
		logging.Float64("poisson_ratio", s.Props.PoissonRatio),
		logging.Float64("cell_area", s.Props.CellArea),
		logging.Float64("sensitivity", s.Props.Sensitivity),
		logging.Int("outline_vertices", len(geometry.Vertices)),
		logging.Int("lattice_cells", len(cells)),
	)

	runSeed := s.Seed
	if *seed != 0 {
		runSeed = *seed
	}
	inst := instrument.New(s.Inst, instrument.NewSeededSource(runSeed))
	log.Info(ctx, "instrument armed",
		logging.String("idn", inst.IDN()),
		logging.Float64("baseline_pf", s.Inst.BaselineCapacitance),
		logging.Float64("noise_sigma", s.Inst.NoiseSigma),
		logging.Float64("drift_rate", s.Inst.DriftRate),
	)

	p, err := pipeline.New(s.Window,
		pipeline.WithLogger(log),
		pipeline.WithMetrics(collector),
	)
	if err != nil {
		log.Error(ctx, "failed to build pipeline", logging.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, runID := logging.EnsureRunID(ctx)
	result, err := p.Run(ctx, inst, s.Steps)
	if err != nil {
		log.Error(ctx, "measurement run failed", logging.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info(ctx, "calibration curve fitted",
		logging.Int("degree", result.Curve.Degree),
		logging.Float64("intercept", result.Curve.Intercept()),
		logging.Float64("slope", result.Curve.Slope()),
		logging.Float64("rss", result.Curve.ResidualSumSquares),
	)

	if *archivePath != "" {
		saveRun(ctx, log, *archivePath, archive.Record{
			RunID:    runID,
			Params:   s.Params,
			Props:    s.Props,
			Curve:    result.Curve,
			Readings: len(result.Readings),
		})
	}

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
}

func serveMetrics(addr string, collector *observability.RunCollector, log logging.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.String("error", err.Error()))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}

func saveRun(ctx context.Context, log logging.Logger, path string, rec archive.Record) {
	store, err := archive.Open(path)
	if err != nil {
		log.Warn(ctx, "skipping archive", logging.String("path", path), logging.String("error", err.Error()))
		return
	}
	defer func() { _ = store.Close() }()

	if err := store.SaveRun(ctx, rec); err != nil {
		log.Warn(ctx, "failed to archive run", logging.String("error", err.Error()))
		return
	}
	log.Info(ctx, "run archived", logging.String("path", path), logging.String("run_id", rec.RunID))
}
