package archive

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/auxetic-sensor/design"
	"github.com/signalsfoundry/auxetic-sensor/pipeline"
)

func testRecord(t *testing.T, runID string, slope float64) Record {
	t.Helper()
	params, err := design.NewCellParameters(10, 1, 45, 1, 1)
	require.NoError(t, err)
	props, err := design.Properties(params)
	require.NoError(t, err)

	return Record{
		RunID:     runID,
		CreatedAt: time.Date(2026, time.August, 28, 12, 0, 0, 0, time.UTC),
		Params:    params,
		Props:     props,
		Curve: pipeline.CalibrationCurve{
			Degree:       1,
			Coefficients: []float64{10, slope},
			Samples:      20,
		},
		Readings: 20,
	}
}

func TestSaveAndReadBack(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "calibration.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	require.NoError(t, store.SaveRun(ctx, testRecord(t, "run-1", 0.82)))
	require.NoError(t, store.SaveRun(ctx, testRecord(t, "run-2", 0.84)))

	runs, err := store.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, "run-1", runs[0].RunID)
	assert.Equal(t, "run-2", runs[1].RunID)
	assert.Equal(t, 0.82, runs[0].Curve.Slope())
	assert.Equal(t, 1, runs[0].Curve.Degree)
	assert.Negative(t, runs[0].Props.PoissonRatio)
}

func TestLatestRun(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "calibration.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ctx := context.Background()

	_, err = store.LatestRun(ctx)
	require.ErrorIs(t, err, sql.ErrNoRows)

	require.NoError(t, store.SaveRun(ctx, testRecord(t, "run-1", 0.82)))
	require.NoError(t, store.SaveRun(ctx, testRecord(t, "run-2", 0.84)))

	latest, err := store.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-2", latest.RunID)
}

func TestReopenKeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibration.db")
	ctx := context.Background()

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.SaveRun(ctx, testRecord(t, "run-1", 0.82)))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	runs, err := reopened.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].RunID)
}

func TestSaveRunFillsCreatedAt(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "calibration.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	rec := testRecord(t, "run-1", 0.82)
	rec.CreatedAt = time.Time{}
	require.NoError(t, store.SaveRun(context.Background(), rec))

	latest, err := store.LatestRun(context.Background())
	require.NoError(t, err)
	assert.False(t, latest.CreatedAt.IsZero())
}
