package scheduler

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// JobPruner drops finished jobs older than a retention window.
type JobPruner interface {
	Prune(retention time.Duration) int
}

// PruneJobsJob removes finished prediction jobs from memory
type PruneJobsJob struct {
	log       zerolog.Logger
	pruner    JobPruner
	retention time.Duration
}

// NewPruneJobsJob creates a new PruneJobsJob
func NewPruneJobsJob(pruner JobPruner, retention time.Duration, log zerolog.Logger) *PruneJobsJob {
	return &PruneJobsJob{
		log:       log.With().Str("job", "prune_jobs").Logger(),
		pruner:    pruner,
		retention: retention,
	}
}

// Name returns the job name
func (j *PruneJobsJob) Name() string {
	return "prune_jobs"
}

// Run executes the prune
func (j *PruneJobsJob) Run() error {
	if j.retention <= 0 {
		return fmt.Errorf("retention must be positive, got %s", j.retention)
	}
	removed := j.pruner.Prune(j.retention)
	j.log.Debug().Int("removed", removed).Dur("retention", j.retention).Msg("Job prune completed")
	return nil
}
