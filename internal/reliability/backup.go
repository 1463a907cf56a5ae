// Package reliability keeps the reports database healthy: compaction and
// off-site backups to the artifact bucket.
package reliability

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/latticefold/internal/database"
)

// MetadataFile is the manifest stored next to the snapshot in every archive.
const MetadataFile = "backup-metadata.json"

// ObjectStore receives finished archives.
type ObjectStore interface {
	Put(ctx context.Context, name string, body io.Reader) (string, error)
}

// BackupMetadata describes the contents of one archive.
type BackupMetadata struct {
	Timestamp time.Time          `json:"timestamp"`
	Version   string             `json:"version"`
	Databases []DatabaseMetadata `json:"databases"`
}

// DatabaseMetadata describes one database snapshot inside an archive.
type DatabaseMetadata struct {
	Name      string `json:"name"`
	Filename  string `json:"filename"`
	SizeBytes int64  `json:"size_bytes"`
	Checksum  string `json:"checksum"`
}

// BackupService snapshots the reports database and uploads it as a tar.gz
// archive.
type BackupService struct {
	db         *database.DB
	store      ObjectStore
	stagingDir string
	now        func() time.Time
	log        zerolog.Logger
}

// NewBackupService creates a backup service staging archives under
// dataDir/backup-staging.
func NewBackupService(db *database.DB, store ObjectStore, dataDir string, log zerolog.Logger) *BackupService {
	return &BackupService{
		db:         db,
		store:      store,
		stagingDir: filepath.Join(dataDir, "backup-staging"),
		now:        func() time.Time { return time.Now().UTC() },
		log:        log.With().Str("service", "backup").Logger(),
	}
}

// CreateAndUploadBackup snapshots the database, packs it with its manifest
// and uploads the archive. It returns the object key.
func (s *BackupService) CreateAndUploadBackup(ctx context.Context) (string, error) {
	s.log.Info().Msg("Starting backup")
	startTime := time.Now()

	if err := os.MkdirAll(s.stagingDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(s.stagingDir)

	timestamp := s.now()
	snapshotName := s.db.Name() + ".db"
	snapshotPath := filepath.Join(s.stagingDir, snapshotName)
	if err := s.db.Backup(ctx, snapshotPath); err != nil {
		return "", err
	}

	info, err := os.Stat(snapshotPath)
	if err != nil {
		return "", fmt.Errorf("failed to stat snapshot: %w", err)
	}
	checksum, err := calculateChecksum(snapshotPath)
	if err != nil {
		return "", fmt.Errorf("failed to calculate checksum: %w", err)
	}

	metadata := BackupMetadata{
		Timestamp: timestamp,
		Version:   "1",
		Databases: []DatabaseMetadata{{
			Name:      s.db.Name(),
			Filename:  snapshotName,
			SizeBytes: info.Size(),
			Checksum:  checksum,
		}},
	}
	if err := writeMetadata(filepath.Join(s.stagingDir, MetadataFile), metadata); err != nil {
		return "", fmt.Errorf("failed to write metadata: %w", err)
	}

	archiveName := fmt.Sprintf("latticefold-backup-%s.tar.gz", timestamp.Format("2006-01-02-150405"))
	archivePath := filepath.Join(s.stagingDir, archiveName)
	if err := createArchive(archivePath, s.stagingDir, []string{snapshotName, MetadataFile}); err != nil {
		return "", fmt.Errorf("failed to create archive: %w", err)
	}

	archive, err := os.Open(archivePath)
	if err != nil {
		return "", fmt.Errorf("failed to open archive: %w", err)
	}
	defer archive.Close()

	key, err := s.store.Put(ctx, "backups/"+archiveName, archive)
	if err != nil {
		return "", fmt.Errorf("failed to upload backup: %w", err)
	}

	s.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Str("key", key).
		Int64("snapshot_bytes", info.Size()).
		Msg("Backup completed")
	return key, nil
}

func calculateChecksum(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return fmt.Sprintf("sha256:%x", hash.Sum(nil)), nil
}

func writeMetadata(path string, metadata BackupMetadata) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(metadata)
}

func createArchive(archivePath, sourceDir string, names []string) error {
	archiveFile, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer archiveFile.Close()

	gzipWriter := gzip.NewWriter(archiveFile)
	tarWriter := tar.NewWriter(gzipWriter)

	for _, name := range names {
		if err := addFileToArchive(tarWriter, filepath.Join(sourceDir, name), name); err != nil {
			return fmt.Errorf("failed to add %s to archive: %w", name, err)
		}
	}

	if err := tarWriter.Close(); err != nil {
		return err
	}
	return gzipWriter.Close()
}

func addFileToArchive(tarWriter *tar.Writer, filePath, nameInArchive string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	header := &tar.Header{
		Name:    nameInArchive,
		Size:    info.Size(),
		Mode:    int64(info.Mode()),
		ModTime: info.ModTime(),
	}
	if err := tarWriter.WriteHeader(header); err != nil {
		return err
	}
	_, err = io.Copy(tarWriter, file)
	return err
}
