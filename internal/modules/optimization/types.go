package optimization

import (
	"strings"
	"time"

	"github.com/aristath/latticefold/internal/domain"
)

// State is the loop's lifecycle state.
type State string

const (
	StateReady                State = "ready"
	StateEvaluating           State = "evaluating"
	StateConverged            State = "converged"
	StateFailed               State = "failed"
	StateAbortedResourceLimit State = "aborted_resource_limit"
)

// IsTerminal reports whether no further transitions can happen.
func (s State) IsTerminal() bool {
	return s == StateConverged || s == StateFailed || s == StateAbortedResourceLimit
}

// Kind selects the optimization strategy.
type Kind string

const (
	// DirectSearch is a derivative-free simplex search (COBYLA-style).
	DirectSearch Kind = "cobyla"
	// StochasticPerturbation is simultaneous perturbation stochastic approximation.
	StochasticPerturbation Kind = "spsa"
	// SequentialQuadratic is a quasi-Newton method on a finite-difference gradient.
	SequentialQuadratic Kind = "slsqp"
	// QuasiNewtonBounded is limited-memory BFGS with box bounds on every angle.
	QuasiNewtonBounded Kind = "l_bfgs_b"
)

// Kinds lists every supported strategy.
var Kinds = []Kind{DirectSearch, StochasticPerturbation, SequentialQuadratic, QuasiNewtonBounded}

var kindAliases = map[string]Kind{
	"cobyla":                        DirectSearch,
	"nelder_mead":                   DirectSearch,
	"derivative-free-direct-search": DirectSearch,
	"direct_search":                 DirectSearch,
	"spsa":                          StochasticPerturbation,
	"stochastic-perturbation":       StochasticPerturbation,
	"slsqp":                         SequentialQuadratic,
	"sequential-quadratic":          SequentialQuadratic,
	"l_bfgs_b":                      QuasiNewtonBounded,
	"l-bfgs-b":                      QuasiNewtonBounded,
	"lbfgsb":                        QuasiNewtonBounded,
	"quasi-newton-bounded":          QuasiNewtonBounded,
}

// ParseKind resolves an optimizer name.
func ParseKind(name string) (Kind, error) {
	if k, ok := kindAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return k, nil
	}
	return "", domain.ConfigurationError("optimization.ParseKind", "optimizer", "unknown optimizer %q (supported: cobyla, spsa, slsqp, l_bfgs_b)", name)
}

// Evaluation is what the objective returns for one parameter vector.
type Evaluation struct {
	Energy   float64
	Variance float64
}

// Objective is the function being minimised.
type Objective interface {
	QubitCount() int
	ParameterCount() int
	Evaluate(params []float64) (Evaluation, error)
}

// Record is one entry of the convergence trace. Records are never modified
// after they are appended.
type Record struct {
	Iteration  int       `json:"iteration" msgpack:"i"`
	Energy     float64   `json:"energy" msgpack:"e"`
	Variance   float64   `json:"variance" msgpack:"v"`
	Parameters []float64 `json:"parameters" msgpack:"p"`
	Timestamp  time.Time `json:"timestamp" msgpack:"t"`
}

// ResourceEstimate describes the memory a run needs.
type ResourceEstimate struct {
	Qubits          int     `json:"qubits"`
	RequiredBytes   float64 `json:"required_bytes"`
	RequiredGB      float64 `json:"required_gb"`
	HostTotalGB     float64 `json:"host_total_gb,omitempty"`
	HostAvailableGB float64 `json:"host_available_gb,omitempty"`
}

// Result is the outcome of one Run. Trace is populated for failed runs too.
type Result struct {
	State          State            `json:"state"`
	Kind           Kind             `json:"optimizer"`
	BestEnergy     float64          `json:"best_energy"`
	BestVariance   float64          `json:"best_variance"`
	BestParameters []float64        `json:"best_parameters"`
	Iterations     int              `json:"iterations"`
	Evaluations    int              `json:"evaluations"`
	Converged      bool             `json:"converged"`
	MethodStatus   string           `json:"method_status"`
	Trace          []Record         `json:"trace"`
	Resources      ResourceEstimate `json:"resources"`
	Summary        Summary          `json:"summary"`
	Warnings       []string         `json:"warnings,omitempty"`
	Duration       time.Duration    `json:"duration"`
}

// Energies returns the energy column of the trace.
func (r *Result) Energies() []float64 {
	return energiesOf(r.Trace)
}

func energiesOf(trace []Record) []float64 {
	out := make([]float64, len(trace))
	for i, rec := range trace {
		out[i] = rec.Energy
	}
	return out
}
