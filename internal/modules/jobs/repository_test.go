package jobs

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/latticefold/internal/database"
	"github.com/aristath/latticefold/internal/domain"
	"github.com/aristath/latticefold/internal/modules/export"
	"github.com/aristath/latticefold/internal/modules/optimization"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(database.Schema)
	require.NoError(t, err)
	return db
}

func TestRepository_RoundTrip(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.New(nil).Level(zerolog.Disabled))
	ctx := context.Background()
	ts := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	report := &export.Report{
		ID:             "job-1",
		Sequence:       "GY",
		Length:         2,
		Qubits:         2,
		Energy:         -20,
		Iterations:     3,
		ValidStructure: true,
		Ansatz:         "custom",
		Optimizer:      "cobyla",
		State:          "converged",
		Bitstring:      "11",
		Timestamp:      ts,
	}
	trace := []optimization.Record{
		{Iteration: 1, Energy: -1, Parameters: []float64{0.1, 0.2}, Timestamp: ts},
		{Iteration: 2, Energy: -2, Variance: 0.5, Parameters: []float64{0.3, 0.4}, Timestamp: ts},
	}

	require.NoError(t, repo.Save(ctx, report, trace))

	got, gotTrace, err := repo.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "GY", got.Sequence)
	assert.True(t, got.ValidStructure)
	assert.True(t, ts.Equal(got.Timestamp))
	require.Len(t, gotTrace, 2)
	assert.Equal(t, 0.5, gotTrace[1].Variance)
	assert.Equal(t, []float64{0.3, 0.4}, gotTrace[1].Parameters)
	assert.True(t, ts.Equal(gotTrace[0].Timestamp))
}

func TestRepository_GetMissing(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.New(nil).Level(zerolog.Disabled))
	_, _, err := repo.Get(context.Background(), "nope")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestRepository_ListAndDelete(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.New(nil).Level(zerolog.Disabled))
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, seq := range []string{"GY", "ACE", "GY"} {
		require.NoError(t, repo.Save(ctx, &export.Report{
			ID:        seq + string(rune('a'+i)),
			Sequence:  seq,
			Timestamp: base.Add(time.Duration(i) * time.Hour),
		}, nil))
	}

	all, err := repo.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "GYc", all[0].ID)

	gy, err := repo.List(ctx, "GY", 1)
	require.NoError(t, err)
	require.Len(t, gy, 1)
	assert.Equal(t, "GYc", gy[0].ID)

	n, err := repo.DeleteBefore(ctx, base.Add(90*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestRepository_SaveRequiresID(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.New(nil).Level(zerolog.Disabled))
	assert.Error(t, repo.Save(context.Background(), &export.Report{}, nil))
}
