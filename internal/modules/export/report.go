package export

import (
	"encoding/json"
	"io"
	"time"

	"github.com/aristath/latticefold/internal/modules/optimization"
)

// Files are the artifact paths produced for one prediction.
type Files struct {
	PDB         string `json:"pdb"`
	Structure   string `json:"structure"`
	Convergence string `json:"convergence"`
	Report      string `json:"report"`
}

// Report is the persisted summary of one prediction.
type Report struct {
	ID                  string               `json:"id,omitempty"`
	Sequence            string               `json:"sequence"`
	Length              int                  `json:"length"`
	Qubits              int                  `json:"qubits"`
	Energy              float64              `json:"energy"`
	Variance            float64              `json:"variance"`
	Iterations          int                  `json:"iterations"`
	Evaluations         int                  `json:"evaluations"`
	ValidStructure      bool                 `json:"valid_structure"`
	RadiusOfGyration    float64              `json:"radius_of_gyration"`
	Ansatz              string               `json:"ansatz"`
	Optimizer           string               `json:"optimizer"`
	Repetitions         int                  `json:"repetitions"`
	State               string               `json:"state"`
	Bitstring           string               `json:"bitstring"`
	MostLikelyBitstring string               `json:"most_likely_bitstring,omitempty"`
	Warnings            []string             `json:"warnings,omitempty"`
	Convergence         optimization.Summary `json:"convergence"`
	Files               Files                `json:"files"`
	DurationMS          int64                `json:"duration_ms"`
	Timestamp           time.Time            `json:"timestamp"`
}

// WriteReport writes r as indented JSON.
func WriteReport(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
