package hamiltonian

import "strings"

// Family tags a term with the penalty it encodes.
type Family int

// Families are declared in build order. Interaction comes before overlap so
// that a truncated term list keeps the sequence-dependent terms longest.
const (
	Chirality Family = iota
	Geometry
	Interaction
	Overlap
)

// Families lists every family in build order.
var Families = []Family{Chirality, Geometry, Interaction, Overlap}

func (f Family) String() string {
	switch f {
	case Chirality:
		return "chirality"
	case Geometry:
		return "geometry"
	case Overlap:
		return "overlap"
	case Interaction:
		return "interaction"
	}
	return "unknown"
}

// Weights are the scalar penalty weights of the four families.
type Weights struct {
	Chirality   float64 `json:"chirality"`
	Geometry    float64 `json:"geometry"`
	Overlap     float64 `json:"overlap"`
	Interaction float64 `json:"interaction"`
}

// DefaultWeights returns the standard penalty weights.
func DefaultWeights() Weights {
	return Weights{
		Chirality:   10.0,
		Geometry:    8.0,
		Overlap:     15.0,
		Interaction: 1.0,
	}
}

// Term is one weighted entry of the Hamiltonian.
// Qubits is empty for constant (support-free) terms.
// Residues holds the residue pair for overlap and interaction terms, -1 otherwise.
type Term struct {
	Family      Family
	Qubits      []int
	Residues    [2]int
	Coefficient float64
}

// IsConstant reports whether the term has no qubit support.
func (t Term) IsConstant() bool { return len(t.Qubits) == 0 }

// Hamiltonian is the ordered term list, grouped by family, plus the weights
// it was built with.
type Hamiltonian struct {
	Sequence   string
	QubitCount int
	Weights    Weights
	Terms      []Term
}

// Count returns the number of terms in family f.
func (h *Hamiltonian) Count(f Family) int {
	n := 0
	for _, t := range h.Terms {
		if t.Family == f {
			n++
		}
	}
	return n
}

// Summary reports per-family and total term counts.
type Summary struct {
	Sequence    string         `json:"sequence"`
	QubitCount  int            `json:"qubit_count"`
	Weights     Weights        `json:"weights"`
	Counts      map[string]int `json:"counts"`
	Total       int            `json:"total"`
	PauliTerms  int            `json:"pauli_terms"`
	Evaluated   int            `json:"evaluated_terms"`
	ConstantSum float64        `json:"constant_offset"`
}

// Summarize builds a Summary; maxTerms is the evaluation cap (<= 0 for none).
func (h *Hamiltonian) Summarize(maxTerms int) Summary {
	counts := make(map[string]int, len(Families))
	for _, f := range Families {
		counts[f.String()] = h.Count(f)
	}
	paulis := h.PauliTerms(0)
	evaluated := h.PauliTerms(maxTerms)

	constant := 0.0
	for _, p := range evaluated {
		if p.Mask == 0 {
			constant += p.Coefficient
		}
	}

	return Summary{
		Sequence:    h.Sequence,
		QubitCount:  h.QubitCount,
		Weights:     h.Weights,
		Counts:      counts,
		Total:       len(h.Terms),
		PauliTerms:  len(paulis),
		Evaluated:   len(evaluated),
		ConstantSum: constant,
	}
}

// PauliTerm is a Z-string: Z on every qubit whose bit is set in Mask,
// identity elsewhere. Mask 0 is a constant offset.
type PauliTerm struct {
	Coefficient float64 `json:"coefficient"`
	Mask        uint64  `json:"mask"`
	Label       string  `json:"label"`
}

// PauliTerms converts the Hamiltonian to Z-strings in term order and keeps
// the first maxTerms of them. maxTerms <= 0 keeps all. The prefix is the same
// on every call.
func (h *Hamiltonian) PauliTerms(maxTerms int) []PauliTerm {
	out := make([]PauliTerm, 0, len(h.Terms))
	for _, t := range h.Terms {
		var mask uint64
		for _, q := range t.Qubits {
			mask |= 1 << uint(q)
		}
		out = append(out, PauliTerm{
			Coefficient: t.Coefficient,
			Mask:        mask,
			Label:       label(mask, h.QubitCount),
		})
	}
	if maxTerms > 0 && len(out) > maxTerms {
		out = out[:maxTerms]
	}
	return out
}

// label renders mask with qubit 0 as the rightmost character.
func label(mask uint64, qubits int) string {
	var b strings.Builder
	b.Grow(qubits)
	for q := qubits - 1; q >= 0; q-- {
		if mask&(1<<uint(q)) != 0 {
			b.WriteByte('Z')
		} else {
			b.WriteByte('I')
		}
	}
	return b.String()
}
