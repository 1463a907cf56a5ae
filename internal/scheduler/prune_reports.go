package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ReportPruner deletes persisted reports created before a cutoff.
type ReportPruner interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// PruneReportsJob enforces the retention window of the reports database
type PruneReportsJob struct {
	log       zerolog.Logger
	pruner    ReportPruner
	retention time.Duration
	now       func() time.Time
}

// NewPruneReportsJob creates a new PruneReportsJob
func NewPruneReportsJob(pruner ReportPruner, retention time.Duration, log zerolog.Logger) *PruneReportsJob {
	return &PruneReportsJob{
		log:       log.With().Str("job", "prune_reports").Logger(),
		pruner:    pruner,
		retention: retention,
		now:       time.Now,
	}
}

// Name returns the job name
func (j *PruneReportsJob) Name() string {
	return "prune_reports"
}

// Run deletes every report older than the retention window.
func (j *PruneReportsJob) Run() error {
	if j.retention <= 0 {
		return fmt.Errorf("report retention must be positive, got %s", j.retention)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := j.now().Add(-j.retention)
	removed, err := j.pruner.DeleteBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to prune reports: %w", err)
	}

	j.log.Info().Int64("removed", removed).Time("cutoff", cutoff).Msg("Report prune completed")
	return nil
}
