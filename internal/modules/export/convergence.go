package export

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/aristath/latticefold/internal/modules/optimization"
	"github.com/aristath/latticefold/pkg/formulas"
)

// ConvergenceHeader is the column layout of the convergence CSV.
var ConvergenceHeader = []string{"iteration", "energy", "variance", "std", "best_energy", "timestamp"}

// WriteConvergenceCSV writes one row per trace record, plus the running best
// energy, for external plotting.
func WriteConvergenceCSV(w io.Writer, trace []optimization.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ConvergenceHeader); err != nil {
		return err
	}

	energies := make([]float64, len(trace))
	for i, r := range trace {
		energies[i] = r.Energy
	}
	best := formulas.RunningMin(energies)

	for i, r := range trace {
		std := 0.0
		if r.Variance > 0 {
			std = math.Sqrt(r.Variance)
		}
		row := []string{
			strconv.Itoa(r.Iteration),
			strconv.FormatFloat(r.Energy, 'f', 8, 64),
			strconv.FormatFloat(r.Variance, 'f', 8, 64),
			strconv.FormatFloat(std, 'f', 8, 64),
			strconv.FormatFloat(best[i], 'f', 8, 64),
			r.Timestamp.UTC().Format(time.RFC3339Nano),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
