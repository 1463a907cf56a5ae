package testing

import (
	"time"

	"github.com/aristath/latticefold/internal/modules/export"
	"github.com/aristath/latticefold/internal/modules/optimization"
	"github.com/aristath/latticefold/internal/modules/sequence"
)

// NewReportFixture returns a finished report for seq created at ts.
func NewReportFixture(id, seq string, ts time.Time) *export.Report {
	qubits := sequence.QubitCount(len(seq))
	return &export.Report{
		ID:               id,
		Sequence:         seq,
		Length:           len(seq),
		Qubits:           qubits,
		Energy:           -12.5,
		Variance:         0.25,
		Iterations:       3,
		Evaluations:      7,
		ValidStructure:   true,
		RadiusOfGyration: 1.2,
		Ansatz:           "custom",
		Optimizer:        "cobyla",
		Repetitions:      2,
		State:            "converged",
		Bitstring:        zeros(qubits),
		DurationMS:       42,
		Timestamp:        ts.UTC().Truncate(time.Second),
	}
}

// NewTraceFixture returns n records with decreasing energy, one second apart.
func NewTraceFixture(n int, start time.Time) []optimization.Record {
	out := make([]optimization.Record, n)
	for i := range out {
		out[i] = optimization.Record{
			Iteration:  i + 1,
			Energy:     -float64(i + 1),
			Variance:   0.1,
			Parameters: []float64{0.1 * float64(i), -0.2},
			Timestamp:  start.Add(time.Duration(i) * time.Second).UTC(),
		}
	}
	return out
}

func zeros(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = '0'
	}
	return string(b)
}
