package runlog

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "ledger", "runs.db"))
	require.NoError(t, err, "Open should create the directory and migrate")
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleRun(started time.Time) *Run {
	return &Run{
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Minute),
		Mode:       "video",
		Input:      "clip.MOV",
		OutputName: "clip",
		Frames:     200,
		Iterations: 2000,
		Downscale:  2,
		SaveEvery:  500,
		Validation: true,
		Status:     "success",
		Artifact:   "clip/clip.splat",
	}
}

func TestInsertRun_AssignsID(t *testing.T) {
	db := openTestDB(t)

	r := sampleRun(time.Now())
	require.NoError(t, db.InsertRun(r))
	assert.NotEmpty(t, r.ID, "InsertRun should assign a UUID")
}

func TestRunRoundtrip(t *testing.T) {
	db := openTestDB(t)

	started := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	r := sampleRun(started)
	require.NoError(t, db.InsertRun(r))

	got, err := db.GetRun(r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)
	assert.Equal(t, "video", got.Mode)
	assert.Equal(t, "clip", got.OutputName)
	assert.Equal(t, 2000, got.Iterations)
	assert.Equal(t, 500, got.SaveEvery)
	assert.True(t, got.Validation)
	assert.Equal(t, started.UnixMilli(), got.StartedAt.UnixMilli())
}

func TestListRuns_NewestFirst(t *testing.T) {
	db := openTestDB(t)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		r := sampleRun(base.Add(time.Duration(i) * time.Minute))
		r.OutputName = []string{"first", "second", "third"}[i]
		require.NoError(t, db.InsertRun(r))
	}

	runs, err := db.ListRuns(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "third", runs[0].OutputName)
	assert.Equal(t, "second", runs[1].OutputName)
}

func TestGetRun_LatestWhenIDEmpty(t *testing.T) {
	db := openTestDB(t)

	older := sampleRun(time.Now().Add(-time.Hour))
	newer := sampleRun(time.Now())
	newer.OutputName = "newest"
	require.NoError(t, db.InsertRun(older))
	require.NoError(t, db.InsertRun(newer))

	got, err := db.GetRun("")
	require.NoError(t, err)
	assert.Equal(t, "newest", got.OutputName)
}

func TestGetRun_NotFound(t *testing.T) {
	db := openTestDB(t)
	_, err := db.GetRun("no-such-run")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestStagesRoundtrip(t *testing.T) {
	db := openTestDB(t)

	r := sampleRun(time.Now())
	require.NoError(t, db.InsertRun(r))

	stages := []StageRecord{
		{Stage: "ingest", Status: "ok", DurationMS: 1200},
		{Stage: "feature-detection", Status: "ok", DurationMS: 5400},
		{Stage: "feature-matching", Status: "failed", DurationMS: 300, ExitCode: 1},
	}
	require.NoError(t, db.InsertStages(r.ID, stages))

	got, err := db.StagesForRun(r.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, s := range got {
		assert.Equal(t, i, s.Seq)
		assert.Equal(t, stages[i].Stage, s.Stage)
		assert.Equal(t, stages[i].Status, s.Status)
		assert.Equal(t, stages[i].DurationMS, s.DurationMS)
	}
	assert.Equal(t, 1, got[2].ExitCode)
}

func TestOpen_IsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	db1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db1.InsertRun(sampleRun(time.Now())))
	require.NoError(t, db1.Close())

	// Reopening must not re-run migrations destructively.
	db2, err := Open(path)
	require.NoError(t, err)
	defer db2.Close()

	runs, err := db2.ListRuns(10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
