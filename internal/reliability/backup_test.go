package reliability

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/latticefold/internal/database"
	"github.com/aristath/latticefold/internal/modules/jobs"
	testingpkg "github.com/aristath/latticefold/internal/testing"
)

type memoryObjectStore struct {
	objects map[string][]byte
	err     error
}

func (m *memoryObjectStore) Put(_ context.Context, name string, body io.Reader) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.objects[name] = data
	return "prefix/" + name, nil
}

func readArchive(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	gz, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	out := map[string][]byte{}
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		body, err := io.ReadAll(tr)
		require.NoError(t, err)
		out[hdr.Name] = body
	}
	return out
}

func TestBackupService_CreateAndUploadBackup(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	db := testingpkg.NewTestDB(t)
	ts := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	repo := jobs.NewRepository(db.Conn(), log)
	require.NoError(t, repo.Save(context.Background(),
		testingpkg.NewReportFixture("r1", "GYA", ts),
		testingpkg.NewTraceFixture(3, ts),
	))

	store := &memoryObjectStore{objects: map[string][]byte{}}
	dataDir := t.TempDir()
	svc := NewBackupService(db, store, dataDir, log)
	svc.now = func() time.Time { return ts }

	key, err := svc.CreateAndUploadBackup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "prefix/backups/latticefold-backup-2026-03-04-050607.tar.gz", key)

	archive := store.objects["backups/latticefold-backup-2026-03-04-050607.tar.gz"]
	require.NotEmpty(t, archive)
	entries := readArchive(t, archive)
	require.Contains(t, entries, MetadataFile)
	require.Contains(t, entries, "reports.db")

	var meta BackupMetadata
	require.NoError(t, json.Unmarshal(entries[MetadataFile], &meta))
	require.Len(t, meta.Databases, 1)
	assert.True(t, meta.Timestamp.Equal(ts))
	assert.Equal(t, int64(len(entries["reports.db"])), meta.Databases[0].SizeBytes)
	assert.Equal(t, fmt.Sprintf("sha256:%x", sha256.Sum256(entries["reports.db"])), meta.Databases[0].Checksum)

	// The snapshot is a usable database holding the saved report.
	restored := filepath.Join(t.TempDir(), "restored.db")
	require.NoError(t, os.WriteFile(restored, entries["reports.db"], 0o644))
	rdb, err := database.New(database.Config{Path: restored})
	require.NoError(t, err)
	defer rdb.Close()
	report, trace, err := jobs.NewRepository(rdb.Conn(), log).Get(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "GYA", report.Sequence)
	assert.Len(t, trace, 3)

	_, err = os.Stat(filepath.Join(dataDir, "backup-staging"))
	assert.True(t, os.IsNotExist(err), "staging directory is removed")
}

func TestBackupService_UploadFailure(t *testing.T) {
	db := testingpkg.NewTestDB(t)
	store := &memoryObjectStore{objects: map[string][]byte{}, err: errors.New("bucket unavailable")}
	svc := NewBackupService(db, store, t.TempDir(), zerolog.New(nil).Level(zerolog.Disabled))

	_, err := svc.CreateAndUploadBackup(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "bucket unavailable"))
}

func TestBackupJob_Run(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	store := &memoryObjectStore{objects: map[string][]byte{}}
	job := NewBackupJob(NewBackupService(testingpkg.NewTestDB(t), store, t.TempDir(), log), log)

	assert.Equal(t, "backup_reports", job.Name())
	require.NoError(t, job.Run())
	assert.Len(t, store.objects, 1)
}

func TestVacuumJob_Run(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	db := testingpkg.NewTestDB(t)
	repo := jobs.NewRepository(db.Conn(), log)
	ts := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Save(context.Background(),
			testingpkg.NewReportFixture(fmt.Sprintf("r%d", i), "ACDE", ts.Add(-48*time.Hour)),
			testingpkg.NewTraceFixture(50, ts),
		))
	}
	_, err := repo.DeleteBefore(context.Background(), ts.Add(-time.Hour))
	require.NoError(t, err)

	job := NewVacuumJob(db, log)
	assert.Equal(t, "vacuum_reports", job.Name())
	require.NoError(t, job.Run())
}
