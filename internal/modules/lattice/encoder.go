// Package lattice maps a residue sequence onto a tetrahedral lattice turn
// encoding: one 2-bit turn between each pair of consecutive residues.
package lattice

import (
	"github.com/aristath/latticefold/internal/modules/sequence"
)

const (
	BitsPerTurn       = 2
	DirectionsPerTurn = 4
	Type              = "tetrahedral"
)

// Residue is one encoded residue.
type Residue struct {
	Code           byte    `json:"code"`
	Hydrophobicity float64 `json:"hydrophobicity"`
}

// Encoding is the lattice representation of a sequence.
type Encoding struct {
	Sequence          string    `json:"sequence"`
	Length            int       `json:"length"`
	NumTurns          int       `json:"num_turns"`
	BitsPerTurn       int       `json:"bits_per_turn"`
	DirectionsPerTurn int       `json:"directions_per_turn"`
	QubitCount        int       `json:"qubit_count"`
	LatticeType       string    `json:"lattice_type"`
	Residues          []Residue `json:"residues"`
}

// Hydrophobicity returns the weight of residue i.
func (e *Encoding) Hydrophobicity(i int) float64 {
	return e.Residues[i].Hydrophobicity
}

// TurnQubits returns the qubit indices that encode turn t.
func (e *Encoding) TurnQubits(t int) []int {
	qs := make([]int, BitsPerTurn)
	for b := range qs {
		qs[b] = t*BitsPerTurn + b
	}
	return qs
}

// Encode builds the encoding for a validated sequence. It is a pure function
// of the sequence and the fixed hydrophobicity table.
func Encode(seq sequence.Sequence) *Encoding {
	s := string(seq)
	numTurns := 0
	if len(s) > 1 {
		numTurns = len(s) - 1
	}

	residues := make([]Residue, len(s))
	for i := 0; i < len(s); i++ {
		residues[i] = Residue{Code: s[i], Hydrophobicity: sequence.Hydrophobicity(s[i])}
	}

	return &Encoding{
		Sequence:          s,
		Length:            len(s),
		NumTurns:          numTurns,
		BitsPerTurn:       BitsPerTurn,
		DirectionsPerTurn: DirectionsPerTurn,
		QubitCount:        numTurns * BitsPerTurn,
		LatticeType:       Type,
		Residues:          residues,
	}
}
