package optimization

import "github.com/aristath/latticefold/pkg/formulas"

// SummaryWindow is the number of trailing records the tail statistics cover.
const SummaryWindow = 10

// Summary describes the shape of a convergence trace.
type Summary struct {
	Records       int     `json:"records"`
	MeanEnergy    float64 `json:"mean_energy"`
	StdDevEnergy  float64 `json:"std_energy"`
	TailMean      float64 `json:"tail_mean"`
	TailVariance  float64 `json:"tail_variance"`
	Improvement   float64 `json:"improvement"`
	BestIteration int     `json:"best_iteration"`
}

// Summarize computes trace statistics. An empty trace gives the zero Summary.
func Summarize(trace []Record) Summary {
	if len(trace) == 0 {
		return Summary{}
	}

	energies := energiesOf(trace)
	tail := formulas.Tail(energies, SummaryWindow)
	_, best := formulas.Min(energies)

	return Summary{
		Records:       len(trace),
		MeanEnergy:    formulas.Mean(energies),
		StdDevEnergy:  formulas.StdDev(energies),
		TailMean:      formulas.Mean(tail),
		TailVariance:  formulas.Variance(tail),
		Improvement:   formulas.Improvement(energies),
		BestIteration: trace[best].Iteration,
	}
}
