// Package scheduler runs the server's maintenance jobs (registry pruning,
// report retention, WAL checkpoints, vacuum and backups) on cron schedules.
package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is one named unit of maintenance work.
type Job interface {
	Run() error
	Name() string
}

// Scheduler fires registered jobs on their schedules. A job whose previous
// run is still going is skipped, and a panicking job is logged instead of
// taking the server down.
type Scheduler struct {
	cron  *cron.Cron
	names []string
	log   zerolog.Logger
}

// New creates a scheduler. Schedules include a seconds field.
func New(log zerolog.Logger) *Scheduler {
	log = log.With().Str("component", "scheduler").Logger()
	cl := cronLogger{log: log}
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		log: log,
	}
}

// Start begins firing jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Strs("jobs", s.names).Msg("Scheduler started")
}

// Stop stops firing jobs and waits for running ones to return.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers job under a cron schedule such as "0 */10 * * * *",
// "@hourly" or "@every 30s".
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() { s.run(job) })
	if err != nil {
		return fmt.Errorf("invalid schedule %q for %s: %w", schedule, job.Name(), err)
	}
	s.names = append(s.names, job.Name())

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")
	return nil
}

func (s *Scheduler) run(job Job) {
	start := time.Now()
	if err := job.Run(); err != nil {
		s.log.Error().
			Err(err).
			Str("job", job.Name()).
			Dur("duration", time.Since(start)).
			Msg("Job failed")
		return
	}
	s.log.Debug().Str("job", job.Name()).Dur("duration", time.Since(start)).Msg("Job completed")
}

// Entries returns the number of registered jobs.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// Jobs returns the registered job names in registration order.
func (s *Scheduler) Jobs() []string {
	return append([]string(nil), s.names...)
}

// RunNow executes a job immediately, outside its schedule.
func (s *Scheduler) RunNow(job Job) error {
	s.log.Info().Str("job", job.Name()).Msg("Running job immediately")
	return job.Run()
}

// cronLogger routes cron's own messages (skips, recovered panics) to zerolog.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
