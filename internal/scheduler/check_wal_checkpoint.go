package scheduler

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
)

// walFrameThreshold is the WAL size, in frames, that triggers a TRUNCATE
// checkpoint.
const walFrameThreshold = 1000

// Checkpointer is the database surface the WAL job needs.
type Checkpointer interface {
	Conn() *sql.DB
	Name() string
	WALCheckpoint(mode string) error
}

// CheckWALCheckpointJob monitors the reports database WAL and truncates it
// when it grows large.
type CheckWALCheckpointJob struct {
	log zerolog.Logger
	db  Checkpointer
}

// NewCheckWALCheckpointJob creates a new CheckWALCheckpointJob
func NewCheckWALCheckpointJob(db Checkpointer, log zerolog.Logger) *CheckWALCheckpointJob {
	return &CheckWALCheckpointJob{
		log: log.With().Str("job", "check_wal_checkpoint").Logger(),
		db:  db,
	}
}

// Name returns the job name
func (j *CheckWALCheckpointJob) Name() string {
	return "check_wal_checkpoint"
}

// Run executes the check
func (j *CheckWALCheckpointJob) Run() error {
	// PRAGMA wal_checkpoint returns: busy, log, checkpointed
	var busy, frames, checkpointed int
	err := j.db.Conn().QueryRow("PRAGMA wal_checkpoint(PASSIVE)").Scan(&busy, &frames, &checkpointed)
	if err != nil {
		return fmt.Errorf("failed to check WAL checkpoint for %s: %w", j.db.Name(), err)
	}

	if frames > walFrameThreshold {
		j.log.Warn().
			Str("database", j.db.Name()).
			Int("wal_frames", frames).
			Int("checkpointed", checkpointed).
			Msg("WAL file is large, truncating")
		return j.db.WALCheckpoint("TRUNCATE")
	}

	j.log.Debug().
		Str("database", j.db.Name()).
		Int("wal_frames", frames).
		Msg("WAL checkpoint status OK")
	return nil
}
