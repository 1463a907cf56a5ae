// Package hamiltonian builds the penalty Hamiltonian over lattice turn qubits.
package hamiltonian

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/aristath/latticefold/internal/domain"
	"github.com/aristath/latticefold/internal/modules/lattice"
)

// DefaultInteractionThreshold drops interaction terms with |c| at or below it.
const DefaultInteractionThreshold = 0.01

// Option configures a Builder.
type Option func(*Builder)

// WithWeights overrides the penalty weights.
func WithWeights(w Weights) Option {
	return func(b *Builder) { b.weights = w }
}

// WithInteractionThreshold overrides the interaction magnitude cutoff.
func WithInteractionThreshold(th float64) Option {
	return func(b *Builder) { b.threshold = th }
}

// Builder turns a lattice encoding into a Hamiltonian.
type Builder struct {
	weights   Weights
	threshold float64
	log       zerolog.Logger
}

// NewBuilder creates a builder with the default weights.
func NewBuilder(log zerolog.Logger, opts ...Option) *Builder {
	b := &Builder{
		weights:   DefaultWeights(),
		threshold: DefaultInteractionThreshold,
		log:       log.With().Str("component", "hamiltonian_builder").Logger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Weights returns the weights used by the builder.
func (b *Builder) Weights() Weights { return b.weights }

// Build produces chirality, geometry, interaction and overlap terms, in that
// order.
func (b *Builder) Build(enc *lattice.Encoding) (*Hamiltonian, error) {
	const op = "hamiltonian.Build"

	if enc == nil || enc.Length == 0 {
		return nil, domain.InvalidInput(op, "encoding", "empty encoding")
	}
	if len(enc.Residues) != enc.Length {
		return nil, domain.InvalidInput(op, "encoding", "encoding has %d residues for length %d", len(enc.Residues), enc.Length)
	}
	for name, w := range map[string]float64{
		"chirality":   b.weights.Chirality,
		"geometry":    b.weights.Geometry,
		"overlap":     b.weights.Overlap,
		"interaction": b.weights.Interaction,
	} {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, domain.ConfigurationError(op, "weights."+name, "weight must be finite")
		}
	}

	h := &Hamiltonian{
		Sequence:   enc.Sequence,
		QubitCount: enc.QubitCount,
		Weights:    b.weights,
	}

	h.Terms = append(h.Terms, b.chiralityTerms(enc)...)
	h.Terms = append(h.Terms, b.geometryTerms(enc)...)
	h.Terms = append(h.Terms, b.interactionTerms(enc)...)
	h.Terms = append(h.Terms, b.overlapTerms(enc)...)

	b.log.Debug().
		Str("sequence", enc.Sequence).
		Int("qubits", enc.QubitCount).
		Int("chirality", h.Count(Chirality)).
		Int("geometry", h.Count(Geometry)).
		Int("overlap", h.Count(Overlap)).
		Int("interaction", h.Count(Interaction)).
		Int("total", len(h.Terms)).
		Msg("Hamiltonian built")

	return h, nil
}

// chiralityTerms penalises each adjacent turn pair (i, i+1) on the first bit
// of both turns.
func (b *Builder) chiralityTerms(enc *lattice.Encoding) []Term {
	if enc.NumTurns < 2 {
		return nil
	}
	terms := make([]Term, 0, enc.NumTurns-1)
	for i := 0; i < enc.NumTurns-1; i++ {
		terms = append(terms, Term{
			Family:      Chirality,
			Qubits:      []int{i * lattice.BitsPerTurn, (i + 1) * lattice.BitsPerTurn},
			Residues:    [2]int{-1, -1},
			Coefficient: b.weights.Chirality,
		})
	}
	return terms
}

func (b *Builder) geometryTerms(enc *lattice.Encoding) []Term {
	terms := make([]Term, 0, enc.QubitCount)
	for t := 0; t < enc.NumTurns; t++ {
		for _, q := range enc.TurnQubits(t) {
			terms = append(terms, Term{
				Family:      Geometry,
				Qubits:      []int{q},
				Residues:    [2]int{-1, -1},
				Coefficient: b.weights.Geometry,
			})
		}
	}
	return terms
}

// overlapTerms adds one term per non-adjacent residue pair (i, j), j >= i+2.
// The pair acts on the first bit of turn i (leaving residue i) and of turn
// j-1 (arriving at residue j).
func (b *Builder) overlapTerms(enc *lattice.Encoding) []Term {
	var terms []Term
	for i := 0; i < enc.Length; i++ {
		for j := i + 2; j < enc.Length; j++ {
			terms = append(terms, Term{
				Family:      Overlap,
				Qubits:      []int{i * lattice.BitsPerTurn, (j - 1) * lattice.BitsPerTurn},
				Residues:    [2]int{i, j},
				Coefficient: b.weights.Overlap,
			})
		}
	}
	return terms
}

// interactionTerms are constant offsets: they carry no qubit support.
func (b *Builder) interactionTerms(enc *lattice.Encoding) []Term {
	var terms []Term
	for i := 0; i < enc.Length; i++ {
		for j := i + 1; j < enc.Length; j++ {
			c := b.Coefficient(enc, i, j)
			if math.Abs(c) <= b.threshold {
				continue
			}
			terms = append(terms, Term{
				Family:      Interaction,
				Residues:    [2]int{i, j},
				Coefficient: c,
			})
		}
	}
	return terms
}

// Coefficient is the hydrophobic interaction coefficient of residues i and j.
// Coefficient(enc, i, j) == Coefficient(enc, j, i).
func (b *Builder) Coefficient(enc *lattice.Encoding, i, j int) float64 {
	return -b.weights.Interaction * (enc.Hydrophobicity(i) * enc.Hydrophobicity(j))
}
