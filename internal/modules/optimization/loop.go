// Package optimization drives the variational loop: a classical optimizer
// proposes circuit parameters, the objective scores them, and every scored
// proposal is appended to the convergence trace.
package optimization

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/latticefold/internal/domain"
	"github.com/aristath/latticefold/internal/modules/quantum"
	"github.com/aristath/latticefold/pkg/formulas"
)

// Option configures a Loop.
type Option func(*Loop)

// WithMaxQubits lowers the simulation ceiling. Values outside
// [1, quantum.MaxQubits] keep the simulator's own limit.
func WithMaxQubits(n int) Option {
	return func(l *Loop) {
		if n > 0 && n <= quantum.MaxQubits {
			l.maxQubits = n
		}
	}
}

// WithHighResourceGB overrides the warning threshold.
func WithHighResourceGB(gb float64) Option {
	return func(l *Loop) { l.highResourceGB = gb }
}

// WithMemoryProbe replaces the host memory probe. nil disables probing.
func WithMemoryProbe(p MemoryProbe) Option {
	return func(l *Loop) { l.memProbe = p }
}

// WithTimeout bounds each run. It is enforced at iteration boundaries.
func WithTimeout(d time.Duration) Option {
	return func(l *Loop) { l.timeout = d }
}

// WithSeed seeds the stochastic strategies.
func WithSeed(seed int64) Option {
	return func(l *Loop) { l.seed = seed }
}

// WithTolerance sets the energy change treated as "no progress".
func WithTolerance(tol float64) Option {
	return func(l *Loop) { l.tolerance = tol }
}

// Loop runs optimizations. A Loop holds configuration only; all mutable
// iteration state belongs to a single Run.
type Loop struct {
	maxQubits      int
	highResourceGB float64
	memProbe       MemoryProbe
	timeout        time.Duration
	seed           int64
	tolerance      float64
	log            zerolog.Logger
}

// NewLoop creates a loop with the default resource limits.
func NewLoop(log zerolog.Logger, opts ...Option) *Loop {
	l := &Loop{
		maxQubits:      DefaultMaxQubits,
		highResourceGB: DefaultHighResourceGB,
		memProbe:       mem.VirtualMemory,
		seed:           42,
		tolerance:      1e-6,
		log:            log.With().Str("component", "optimization_loop").Logger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// MaxQubits returns the simulation ceiling in effect.
func (l *Loop) MaxQubits() int { return l.maxQubits }

// Admit checks whether a register of qubits qubits may be simulated. A
// refused register yields a Result in StateAbortedResourceLimit carrying the
// memory estimate, together with a ResourceInfeasible error.
func (l *Loop) Admit(qubits int, kind Kind) (*Result, error) {
	result := &Result{State: StateReady, Kind: kind, BestEnergy: math.Inf(1)}

	est, warnings, err := l.checkResources(qubits)
	result.Resources = est
	result.Warnings = warnings
	if err != nil {
		result.State = StateAbortedResourceLimit
		l.log.Warn().
			Int("qubits", est.Qubits).
			Float64("required_gb", est.RequiredGB).
			Msg("Optimization aborted: state vector exceeds simulation ceiling")
		return result, err
	}
	for _, w := range warnings {
		l.log.Warn().Int("qubits", est.Qubits).Msg(w)
	}
	return result, nil
}

// RunOption configures one Run.
type RunOption func(*session)

// WithProgress registers a callback invoked synchronously after every
// appended record.
func WithProgress(fn func(Record)) RunOption {
	return func(s *session) { s.onRecord = fn }
}

// Run minimises objective from initial with the given strategy. At most
// maxIterations records are produced. The returned Result is non-nil
// whenever the run got past argument checks, including failed and aborted
// runs, so the trace is available for diagnosis.
func (l *Loop) Run(ctx context.Context, objective Objective, initial []float64, kind Kind, maxIterations int, opts ...RunOption) (*Result, error) {
	const op = "optimization.Run"

	if objective == nil {
		return nil, domain.ConfigurationError(op, "objective", "objective is nil")
	}
	if maxIterations < 1 {
		return nil, domain.ConfigurationError(op, "max_iterations", "max iterations must be positive, got %d", maxIterations)
	}
	if len(initial) != objective.ParameterCount() {
		return nil, domain.ConfigurationError(op, "parameters", "got %d initial parameters, objective expects %d", len(initial), objective.ParameterCount())
	}
	method, err := l.method(kind)
	if err != nil {
		return nil, err
	}

	result, err := l.Admit(objective.QubitCount(), kind)
	if err != nil {
		return result, err
	}

	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	s := &session{
		ctx:       ctx,
		objective: objective,
		maxIter:   maxIterations,
		result:    result,
		start:     time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	l.log.Debug().
		Str("optimizer", string(kind)).
		Int("parameters", len(initial)).
		Int("max_iterations", maxIterations).
		Msg("Optimization started")

	var out outcome
	if err = s.halted(); err != nil {
		out = outcome{status: "halted"}
	} else if len(initial) == 0 {
		// nothing to optimise: score the fixed circuit once
		s.evaluate(initial, true)
		out = outcome{status: "no_parameters", converged: true}
		err = s.err
	} else {
		out, err = l.runMethod(method, s, initial)
	}

	result.MethodStatus = out.status
	result.Converged = out.converged && err == nil
	result.Iterations = len(result.Trace)
	result.Evaluations = s.evaluations
	result.Duration = time.Since(s.start)
	result.Summary = Summarize(result.Trace)

	if err != nil {
		result.State = StateFailed
		l.log.Error().
			Err(err).
			Str("optimizer", string(kind)).
			Int("iterations", result.Iterations).
			Msg("Optimization failed")
		return result, err
	}

	result.State = StateConverged
	l.log.Info().
		Str("optimizer", string(kind)).
		Int("iterations", result.Iterations).
		Int("evaluations", result.Evaluations).
		Float64("best_energy", result.BestEnergy).
		Str("status", out.status).
		Dur("duration", result.Duration).
		Msg("Optimization finished")

	return result, nil
}

// runMethod converts panics inside third-party minimisers into optimizer
// failures.
func (l *Loop) runMethod(m method, s *session, initial []float64) (out outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = outcome{status: "panic"}
			err = domain.OptimizerFailure("optimization.Run", fmt.Errorf("%s: %v", m.name(), r))
		}
	}()

	x0 := make([]float64, len(initial))
	copy(x0, initial)

	out, err = m.minimize(s, x0)
	if s.err != nil {
		// evaluation or cancellation errors take precedence over whatever
		// the method reported
		return out, s.err
	}
	if err != nil {
		var de *domain.Error
		if errors.As(err, &de) {
			return out, err
		}
		return out, domain.OptimizerFailure("optimization.Run", err)
	}
	return out, nil
}

type outcome struct {
	status    string
	converged bool
}

// session is the mutable state of one run.
type session struct {
	ctx         context.Context
	objective   Objective
	maxIter     int
	onRecord    func(Record)
	result      *Result
	evaluations int
	err         error
	start       time.Time
}

// evaluate scores x. Recorded evaluations are appended to the trace; probe
// evaluations (gradient stencils, perturbations) are not. After the first
// error every call returns +Inf without evaluating.
func (s *session) evaluate(x []float64, record bool) float64 {
	if s.err != nil {
		return math.Inf(1)
	}
	if record && len(s.result.Trace) >= s.maxIter {
		return math.Inf(1)
	}

	s.result.State = StateEvaluating
	ev, err := s.objective.Evaluate(x)
	s.evaluations++
	if err != nil {
		s.err = err
		return math.Inf(1)
	}
	if !formulas.IsFinite(ev.Energy) {
		s.err = domain.NumericFailure("optimization.evaluate", "objective returned %v", ev.Energy)
		return math.Inf(1)
	}

	if record {
		params := make([]float64, len(x))
		copy(params, x)
		rec := Record{
			Iteration:  len(s.result.Trace) + 1,
			Energy:     ev.Energy,
			Variance:   ev.Variance,
			Parameters: params,
			Timestamp:  time.Now(),
		}
		s.result.Trace = append(s.result.Trace, rec)
		if ev.Energy < s.result.BestEnergy {
			s.result.BestEnergy = ev.Energy
			s.result.BestVariance = ev.Variance
			s.result.BestParameters = params
		}
		if s.onRecord != nil {
			s.onRecord(rec)
		}
	}
	return ev.Energy
}

// halted returns the error that should stop the run at an iteration
// boundary, if any.
func (s *session) halted() error {
	if s.err != nil {
		return s.err
	}
	if err := s.ctx.Err(); err != nil {
		s.err = fmt.Errorf("optimization cancelled after %d iterations: %w", len(s.result.Trace), err)
		return s.err
	}
	return nil
}

// exhausted reports whether the record budget is spent.
func (s *session) exhausted() bool {
	return len(s.result.Trace) >= s.maxIter
}
