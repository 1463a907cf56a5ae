package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/latticefold/internal/database"
)

// BackupJob uploads a snapshot of the reports database.
type BackupJob struct {
	service *BackupService
	timeout time.Duration
	log     zerolog.Logger
}

// NewBackupJob creates a scheduled backup job.
func NewBackupJob(service *BackupService, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		service: service,
		timeout: 10 * time.Minute,
		log:     log.With().Str("job", "backup_reports").Logger(),
	}
}

// Name returns the job name
func (j *BackupJob) Name() string {
	return "backup_reports"
}

// Run executes the backup
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if _, err := j.service.CreateAndUploadBackup(ctx); err != nil {
		j.log.Error().Err(err).Msg("Backup failed")
		return err
	}
	return nil
}

// VacuumJob compacts the reports database after retention deletes.
type VacuumJob struct {
	db  *database.DB
	log zerolog.Logger
}

// NewVacuumJob creates a new vacuum job
func NewVacuumJob(db *database.DB, log zerolog.Logger) *VacuumJob {
	return &VacuumJob{
		db:  db,
		log: log.With().Str("job", "vacuum_reports").Logger(),
	}
}

// Name returns the job name
func (j *VacuumJob) Name() string {
	return "vacuum_reports"
}

// Run executes VACUUM and logs the space reclaimed.
func (j *VacuumJob) Run() error {
	j.log.Debug().Str("database", j.db.Name()).Msg("Starting VACUUM")

	sizeBefore, err := j.sizeMB()
	if err != nil {
		return err
	}

	if _, err := j.db.Conn().Exec("VACUUM"); err != nil {
		return fmt.Errorf("VACUUM failed: %w", err)
	}

	sizeAfter, err := j.sizeMB()
	if err != nil {
		return err
	}

	j.log.Info().
		Str("database", j.db.Name()).
		Float64("size_before_mb", sizeBefore).
		Float64("size_after_mb", sizeAfter).
		Float64("space_reclaimed_mb", sizeBefore-sizeAfter).
		Msg("VACUUM completed")
	return nil
}

func (j *VacuumJob) sizeMB() (float64, error) {
	var pageCount, pageSize int64
	if err := j.db.Conn().QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0, fmt.Errorf("failed to read page_count: %w", err)
	}
	if err := j.db.Conn().QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0, fmt.Errorf("failed to read page_size: %w", err)
	}
	return float64(pageCount*pageSize) / 1024 / 1024, nil
}
