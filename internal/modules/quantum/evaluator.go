// Package quantum simulates parameterised circuits on a full state vector and
// evaluates Z-string Hamiltonians against the simulated state.
package quantum

import (
	"runtime"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/latticefold/internal/domain"
	"github.com/aristath/latticefold/internal/modules/hamiltonian"
	"github.com/aristath/latticefold/pkg/formulas"
)

const (
	// DefaultMaxEvaluatedTerms bounds the number of Hamiltonian terms
	// evaluated per call. Longer term lists are cut to the same prefix every
	// call, which is a deliberate approximation.
	DefaultMaxEvaluatedTerms = 50

	// DefaultParallelQubits is the register size from which the energy sum is
	// split across goroutines.
	DefaultParallelQubits = 14
)

// Estimate is the result of one evaluation.
type Estimate struct {
	Energy   float64 `json:"energy"`
	Variance float64 `json:"variance"`
	Terms    int     `json:"terms"`
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithMaxTerms sets the per-call term cap. n <= 0 disables the cap.
func WithMaxTerms(n int) Option {
	return func(e *Evaluator) { e.maxTerms = n }
}

// WithParallelQubits sets the register size at which evaluation fans out.
func WithParallelQubits(n int) Option {
	return func(e *Evaluator) { e.parallelQubits = n }
}

// WithWorkers caps the goroutines used for a parallel sum.
func WithWorkers(n int) Option {
	return func(e *Evaluator) {
		if n > 0 {
			e.workers = n
		}
	}
}

// Evaluator computes expectation values. It keeps no state between calls;
// the state vector lives only for the duration of one call.
type Evaluator struct {
	maxTerms       int
	parallelQubits int
	workers        int
	log            zerolog.Logger
}

// NewEvaluator creates an evaluator with the default term cap.
func NewEvaluator(log zerolog.Logger, opts ...Option) *Evaluator {
	e := &Evaluator{
		maxTerms:       DefaultMaxEvaluatedTerms,
		parallelQubits: DefaultParallelQubits,
		workers:        runtime.NumCPU(),
		log:            log.With().Str("component", "evaluator").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MaxTerms returns the per-call term cap.
func (e *Evaluator) MaxTerms() int { return e.maxTerms }

// Simulate prepares the circuit's state from |0...0> with params bound.
func (e *Evaluator) Simulate(c *Circuit, params []float64) (*StateVector, error) {
	const op = "quantum.Simulate"

	if c == nil {
		return nil, domain.ConfigurationError(op, "circuit", "circuit is nil")
	}
	if len(params) != c.ParameterCount {
		return nil, domain.ConfigurationError(op, "parameters", "got %d parameters, circuit expects %d", len(params), c.ParameterCount)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	state := NewStateVector(c.QubitCount)
	for _, g := range c.Gates {
		theta := 0.0
		if g.Param >= 0 {
			theta = params[g.Param]
		}
		state.Apply(g, theta)
	}
	return state, nil
}

// Evaluate returns the energy of h in the state prepared by c(params).
func (e *Evaluator) Evaluate(c *Circuit, params []float64, h *hamiltonian.Hamiltonian) (float64, error) {
	est, err := e.EvaluateDetailed(c, params, h)
	if err != nil {
		return 0, err
	}
	return est.Energy, nil
}

// EvaluateDetailed returns energy and exact variance. Constant terms add
// their coefficient to every basis energy and so shift the mean only.
func (e *Evaluator) EvaluateDetailed(c *Circuit, params []float64, h *hamiltonian.Hamiltonian) (Estimate, error) {
	const op = "quantum.Evaluate"

	if h == nil {
		return Estimate{}, domain.ConfigurationError(op, "hamiltonian", "hamiltonian is nil")
	}
	terms := h.PauliTerms(e.maxTerms)

	state, err := e.Simulate(c, params)
	if err != nil {
		return Estimate{}, err
	}

	limit := uint64(1) << uint(c.QubitCount)
	for _, t := range terms {
		if t.Mask >= limit {
			return Estimate{}, domain.ConfigurationError(op, "hamiltonian", "term %s acts outside a %d-qubit register", t.Label, c.QubitCount)
		}
	}

	mean, second, err := e.moments(state, terms)
	if err != nil {
		return Estimate{}, err
	}

	variance := second - mean*mean
	if variance < 0 && variance > -1e-9 {
		variance = 0
	}
	if !formulas.IsFinite(mean) || !formulas.IsFinite(variance) {
		return Estimate{}, domain.NumericFailure(op, "non-finite energy estimate (energy=%v, variance=%v)", mean, variance)
	}

	return Estimate{Energy: mean, Variance: variance, Terms: len(terms)}, nil
}

// moments returns E[e_b] and E[e_b^2] over the basis distribution, where
// e_b is the Hamiltonian's eigenvalue on basis state b.
func (e *Evaluator) moments(state *StateVector, terms []hamiltonian.PauliTerm) (float64, float64, error) {
	n := len(state.Amplitudes)
	if state.NumQubits < e.parallelQubits || e.workers < 2 {
		m1, m2 := partialMoments(state.Amplitudes, 0, n, terms)
		return m1, m2, nil
	}

	chunks := e.workers
	size := (n + chunks - 1) / chunks
	first := make([]float64, chunks)
	second := make([]float64, chunks)

	var g errgroup.Group
	for w := 0; w < chunks; w++ {
		w := w
		lo := w * size
		hi := lo + size
		if hi > n {
			hi = n
		}
		if lo >= hi {
			continue
		}
		g.Go(func() error {
			first[w], second[w] = partialMoments(state.Amplitudes, lo, hi, terms)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, 0, err
	}

	m1, m2 := 0.0, 0.0
	for w := range first {
		m1 += first[w]
		m2 += second[w]
	}
	return m1, m2, nil
}

func partialMoments(amps []complex128, lo, hi int, terms []hamiltonian.PauliTerm) (float64, float64) {
	m1, m2 := 0.0, 0.0
	for b := lo; b < hi; b++ {
		a := amps[b]
		p := real(a)*real(a) + imag(a)*imag(a)
		if p == 0 {
			continue
		}
		eb := 0.0
		for _, t := range terms {
			eb += t.Coefficient * zSign(uint64(b), t.Mask)
		}
		m1 += p * eb
		m2 += p * eb * eb
	}
	return m1, m2
}

// Outcome is a measured basis state with its probability.
type Outcome struct {
	Bitstring   string  `json:"bitstring"`
	Probability float64 `json:"probability"`
}

// MostLikely returns the highest-probability measurement outcome of
// c(params). Ties resolve to the lowest basis index.
func (e *Evaluator) MostLikely(c *Circuit, params []float64) (Outcome, error) {
	state, err := e.Simulate(c, params)
	if err != nil {
		return Outcome{}, err
	}
	best, bestP := 0, -1.0
	for i, p := range state.Probabilities() {
		if p > bestP+1e-15 {
			best, bestP = i, p
		}
	}
	return Outcome{Bitstring: Bitstring(best, c.QubitCount), Probability: bestP}, nil
}
