// Package jobs tracks asynchronous predictions in memory and persists their
// reports.
package jobs

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/latticefold/internal/domain"
	"github.com/aristath/latticefold/internal/modules/export"
	"github.com/aristath/latticefold/internal/modules/optimization"
)

// Status is a job's lifecycle state.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether the job has finished.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is a snapshot of one prediction job.
type Job struct {
	ID         string                `json:"id"`
	Sequence   string                `json:"sequence"`
	Status     Status                `json:"status"`
	Error      string                `json:"error,omitempty"`
	ErrorKind  string                `json:"error_kind,omitempty"`
	Report     *export.Report        `json:"report,omitempty"`
	Trace      []optimization.Record `json:"-"`
	PDB        string                `json:"-"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
	FinishedAt *time.Time            `json:"finished_at,omitempty"`
}

type entry struct {
	mu      sync.Mutex
	job     Job
	changed chan struct{}
}

// snapshot copies the job; the caller must hold e.mu.
func (e *entry) snapshot() Job {
	j := e.job
	j.Trace = append([]optimization.Record(nil), e.job.Trace...)
	return j
}

// notify wakes every watcher; the caller must hold e.mu.
func (e *entry) notify() {
	close(e.changed)
	e.changed = make(chan struct{})
}

// Registry is the in-memory job store. The map lock only guards membership;
// each job has its own lock so updates to different jobs never contend.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	now     func() time.Time
	log     zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		now:     time.Now,
		log:     log.With().Str("component", "job_registry").Logger(),
	}
}

// Create registers a running job for sequence and returns its snapshot.
func (r *Registry) Create(sequence string) Job {
	now := r.now()
	e := &entry{
		job: Job{
			ID:        uuid.New().String(),
			Sequence:  sequence,
			Status:    StatusRunning,
			CreatedAt: now,
			UpdatedAt: now,
		},
		changed: make(chan struct{}),
	}

	r.mu.Lock()
	r.entries[e.job.ID] = e
	r.mu.Unlock()

	r.log.Debug().Str("job_id", e.job.ID).Str("sequence", sequence).Msg("Job created")
	return e.job
}

func (r *Registry) entry(id string) (*entry, error) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.NotFound("jobs.Registry", "job "+id)
	}
	return e, nil
}

// Get returns a snapshot of the job.
func (r *Registry) Get(id string) (Job, error) {
	e, err := r.entry(id)
	if err != nil {
		return Job{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot(), nil
}

// Watch returns a snapshot together with a channel that is closed on the
// next change to the job.
func (r *Registry) Watch(id string) (Job, <-chan struct{}, error) {
	e, err := r.entry(id)
	if err != nil {
		return Job{}, nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot(), e.changed, nil
}

func (r *Registry) update(id string, fn func(*Job) error) error {
	e, err := r.entry(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.job.Status.IsTerminal() {
		return domain.InvalidInput("jobs.Registry", "status", "job %s already %s", id, e.job.Status)
	}
	if err := fn(&e.job); err != nil {
		return err
	}
	e.job.UpdatedAt = r.now()
	e.notify()
	return nil
}

// Append adds a convergence record to a running job.
func (r *Registry) Append(id string, rec optimization.Record) error {
	return r.update(id, func(j *Job) error {
		j.Trace = append(j.Trace, rec)
		return nil
	})
}

// Complete marks the job finished with its report, full trace and PDB text.
func (r *Registry) Complete(id string, report *export.Report, trace []optimization.Record, pdb string) error {
	return r.update(id, func(j *Job) error {
		now := r.now()
		j.Status = StatusCompleted
		j.Report = report
		if trace != nil {
			j.Trace = append([]optimization.Record(nil), trace...)
		}
		j.PDB = pdb
		j.FinishedAt = &now
		return nil
	})
}

// Fail marks the job failed. A partial trace, when given, replaces the
// streamed one.
func (r *Registry) Fail(id string, cause error, trace []optimization.Record) error {
	return r.update(id, func(j *Job) error {
		now := r.now()
		j.Status = StatusFailed
		j.Error = cause.Error()
		j.ErrorKind = domain.KindOf(cause).String()
		if trace != nil {
			j.Trace = append([]optimization.Record(nil), trace...)
		}
		j.FinishedAt = &now
		return nil
	})
}

// List returns snapshots of all jobs, oldest first.
func (r *Registry) List() []Job {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	out := make([]Job, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.snapshot())
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Len returns the number of tracked jobs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Prune drops finished jobs whose completion is older than retention and
// returns how many were removed. Running jobs are never pruned.
func (r *Registry) Prune(retention time.Duration) int {
	cutoff := r.now().Add(-retention)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, e := range r.entries {
		e.mu.Lock()
		stale := e.job.FinishedAt != nil && e.job.FinishedAt.Before(cutoff)
		e.mu.Unlock()
		if stale {
			delete(r.entries, id)
			removed++
		}
	}

	if removed > 0 {
		r.log.Info().Int("removed", removed).Int("remaining", len(r.entries)).Msg("Pruned finished jobs")
	}
	return removed
}
