package jobs

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/latticefold/internal/domain"
	"github.com/aristath/latticefold/internal/modules/export"
	"github.com/aristath/latticefold/internal/modules/optimization"
)

func newTestRegistry() *Registry {
	return NewRegistry(zerolog.New(nil).Level(zerolog.Disabled))
}

func TestRegistry_Lifecycle(t *testing.T) {
	reg := newTestRegistry()
	job := reg.Create("GY")

	assert.NotEmpty(t, job.ID)
	assert.Equal(t, StatusRunning, job.Status)

	require.NoError(t, reg.Append(job.ID, optimization.Record{Iteration: 1, Energy: -1}))
	require.NoError(t, reg.Complete(job.ID, &export.Report{Sequence: "GY"}, nil, "END\n"))

	got, err := reg.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Len(t, got.Trace, 1)
	assert.Equal(t, "END\n", got.PDB)
	assert.NotNil(t, got.FinishedAt)

	err = reg.Append(job.ID, optimization.Record{Iteration: 2})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestRegistry_FailRecordsKind(t *testing.T) {
	reg := newTestRegistry()
	job := reg.Create("AAAAAAAAAAA")

	cause := domain.ResourceInfeasible("predict", 0.015625, "too many qubits")
	require.NoError(t, reg.Fail(job.ID, cause, nil))

	got, err := reg.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "resource_infeasible", got.ErrorKind)
}

func TestRegistry_NotFound(t *testing.T) {
	_, err := newTestRegistry().Get("missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestRegistry_WatchSignalsChange(t *testing.T) {
	reg := newTestRegistry()
	job := reg.Create("ACE")

	_, changed, err := reg.Watch(job.ID)
	require.NoError(t, err)

	go func() { _ = reg.Append(job.ID, optimization.Record{Iteration: 1}) }()

	select {
	case <-changed:
	case <-time.After(time.Second):
		t.Fatal("watch channel was not closed")
	}
	snap, _, err := reg.Watch(job.ID)
	require.NoError(t, err)
	assert.Len(t, snap.Trace, 1)
}

func TestRegistry_SnapshotIsACopy(t *testing.T) {
	reg := newTestRegistry()
	job := reg.Create("ACE")
	require.NoError(t, reg.Append(job.ID, optimization.Record{Iteration: 1, Energy: -1}))

	snap, err := reg.Get(job.ID)
	require.NoError(t, err)
	snap.Trace[0].Energy = 99

	again, err := reg.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, -1.0, again.Trace[0].Energy)
}

func TestRegistry_ConcurrentUpdates(t *testing.T) {
	reg := newTestRegistry()
	const jobs, records = 8, 50

	ids := make([]string, jobs)
	for i := range ids {
		ids[i] = reg.Create(fmt.Sprintf("SEQ%d", i)).ID
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for i := 0; i < records; i++ {
				_ = reg.Append(id, optimization.Record{Iteration: i + 1})
			}
		}(id)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < records; i++ {
				_ = reg.List()
			}
		}()
	}
	wg.Wait()

	for _, id := range ids {
		j, err := reg.Get(id)
		require.NoError(t, err)
		assert.Len(t, j.Trace, records)
	}
}

func TestRegistry_Prune(t *testing.T) {
	reg := newTestRegistry()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return now }

	old := reg.Create("GY")
	require.NoError(t, reg.Complete(old.ID, &export.Report{}, nil, ""))
	running := reg.Create("ACE")

	now = now.Add(2 * time.Hour)
	fresh := reg.Create("FGH")
	require.NoError(t, reg.Fail(fresh.ID, errors.New("x"), nil))

	assert.Equal(t, 1, reg.Prune(time.Hour))
	assert.Equal(t, 2, reg.Len())

	_, err := reg.Get(running.ID)
	assert.NoError(t, err)
	_, err = reg.Get(old.ID)
	assert.Error(t, err)
}
