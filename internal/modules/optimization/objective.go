package optimization

import (
	"github.com/aristath/latticefold/internal/modules/hamiltonian"
	"github.com/aristath/latticefold/internal/modules/quantum"
)

// CircuitObjective scores parameters by simulating a circuit and taking the
// Hamiltonian's expectation value.
type CircuitObjective struct {
	evaluator   *quantum.Evaluator
	circuit     *quantum.Circuit
	hamiltonian *hamiltonian.Hamiltonian
}

// NewCircuitObjective binds an evaluator, circuit and Hamiltonian.
func NewCircuitObjective(ev *quantum.Evaluator, c *quantum.Circuit, h *hamiltonian.Hamiltonian) *CircuitObjective {
	return &CircuitObjective{evaluator: ev, circuit: c, hamiltonian: h}
}

func (o *CircuitObjective) QubitCount() int { return o.circuit.QubitCount }

func (o *CircuitObjective) ParameterCount() int { return o.circuit.ParameterCount }

func (o *CircuitObjective) Evaluate(params []float64) (Evaluation, error) {
	est, err := o.evaluator.EvaluateDetailed(o.circuit, params, o.hamiltonian)
	if err != nil {
		return Evaluation{}, err
	}
	return Evaluation{Energy: est.Energy, Variance: est.Variance}, nil
}

// MostLikely returns the most probable measurement outcome at params.
func (o *CircuitObjective) MostLikely(params []float64) (quantum.Outcome, error) {
	return o.evaluator.MostLikely(o.circuit, params)
}
