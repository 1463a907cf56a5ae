package sequence

import (
	"math"
	"strings"

	"github.com/aristath/latticefold/internal/domain"
)

const (
	// MaxLength is the longest sequence accepted at all.
	MaxLength = 20
	// DefaultMaxSimulated is the longest sequence simulated classically.
	// Eleven residues already need 20 qubits.
	DefaultMaxSimulated = 10

	// BytesPerAmplitude is the size of one complex128 amplitude.
	BytesPerAmplitude = 16
)

// Sequence is a validated, upper-case residue string.
type Sequence string

// Len returns the number of residues.
func (s Sequence) Len() int { return len(s) }

// QubitCount is the number of qubits needed to encode the sequence's turns.
func QubitCount(length int) int {
	if length < 2 {
		return 0
	}
	return (length - 1) * 2
}

// StateMemoryGB returns the memory needed for a full state vector over
// qubits qubits: 2^q * 16 bytes, in GiB.
func StateMemoryGB(qubits int) float64 {
	return math.Pow(2, float64(qubits)) * BytesPerAmplitude / (1024 * 1024 * 1024)
}

// Validator checks raw input before any encoding happens.
type Validator struct {
	maxSimulated int
}

// NewValidator creates a validator that refuses sequences longer than
// maxSimulated residues for simulation. Values < 1 use DefaultMaxSimulated.
func NewValidator(maxSimulated int) *Validator {
	if maxSimulated < 1 {
		maxSimulated = DefaultMaxSimulated
	}
	if maxSimulated > MaxLength {
		maxSimulated = MaxLength
	}
	return &Validator{maxSimulated: maxSimulated}
}

// MaxSimulated returns the simulation length limit.
func (v *Validator) MaxSimulated() int { return v.maxSimulated }

// Validate normalises raw and checks, in order: empty input, alphabet,
// absolute length, and simulation feasibility.
func (v *Validator) Validate(raw string) (Sequence, error) {
	const op = "sequence.Validate"

	seq := strings.ToUpper(strings.TrimSpace(raw))
	if seq == "" {
		return "", domain.InvalidInput(op, "sequence", "sequence is empty")
	}

	for i := 0; i < len(seq); i++ {
		if !IsResidue(seq[i]) {
			return "", domain.InvalidInput(op, "sequence", "invalid amino acid %q at position %d (allowed: %s)", seq[i], i+1, Alphabet)
		}
	}

	if len(seq) > MaxLength {
		return "", domain.InvalidInput(op, "sequence", "sequence length %d exceeds maximum of %d residues", len(seq), MaxLength)
	}

	if len(seq) > v.maxSimulated {
		qubits := QubitCount(len(seq))
		gb := StateMemoryGB(qubits)
		return "", domain.ResourceInfeasible(op, gb,
			"sequence length %d needs %d qubits (~%.3f GB state vector); classical simulation is limited to %d residues",
			len(seq), qubits, gb, v.maxSimulated)
	}

	return Sequence(seq), nil
}
