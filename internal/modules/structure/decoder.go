// Package structure turns an optimization outcome into lattice coordinates
// and scores the resulting conformation.
package structure

import (
	"strings"

	"github.com/aristath/latticefold/internal/domain"
	"github.com/aristath/latticefold/internal/modules/lattice"
)

// Directions maps a 2-bit turn code to its lattice step:
// 00 +X, 01 +Y, 10 +Z, 11 the (-1,-1,-1) diagonal.
var Directions = [lattice.DirectionsPerTurn]Point{
	{X: 1},
	{Y: 1},
	{Z: 1},
	{X: -1, Y: -1, Z: -1},
}

// Energy bands for the representative bitstring.
const (
	CompactEnergy      = -15.0
	IntermediateEnergy = -10.0
)

// Band names the compactness class chosen for an energy.
type Band string

const (
	BandCompact      Band = "compact"
	BandIntermediate Band = "intermediate"
	BandExtended     Band = "extended"
)

// Conformation is a decoded structure.
type Conformation struct {
	Sequence         string  `json:"sequence"`
	Energy           float64 `json:"energy"`
	Band             Band    `json:"band"`
	Bitstring        string  `json:"bitstring"`
	Turns            []int   `json:"turns"`
	Coordinates      []Point `json:"coordinates"`
	Valid            bool    `json:"valid"`
	Overlaps         []Pair  `json:"overlaps"`
	RadiusOfGyration float64 `json:"radius_of_gyration"`
}

// BandFor classifies an energy.
func BandFor(energy float64) Band {
	switch {
	case energy < CompactEnergy:
		return BandCompact
	case energy < IntermediateEnergy:
		return BandIntermediate
	}
	return BandExtended
}

// RepresentativeBitstring picks the canonical turn pattern of the energy's
// band, cut or zero-padded to exactly 2*numTurns bits. It stands in for
// sampling the optimised circuit.
func RepresentativeBitstring(numTurns int, energy float64) string {
	if numTurns <= 0 {
		return ""
	}
	nbits := numTurns * lattice.BitsPerTurn

	var bits string
	switch BandFor(energy) {
	case BandCompact:
		bits = strings.Repeat("00", numTurns/2) + strings.Repeat("11", numTurns-numTurns/2)
	case BandIntermediate:
		bits = strings.Repeat("0110", numTurns/2)
	default:
		bits = strings.Repeat("01", numTurns)
	}

	if len(bits) > nbits {
		bits = bits[:nbits]
	}
	if len(bits) < nbits {
		bits += strings.Repeat("0", nbits-len(bits))
	}
	return bits
}

// Turns splits a bitstring into 2-bit turn codes.
func Turns(bits string) ([]int, error) {
	const op = "structure.Turns"

	if len(bits)%lattice.BitsPerTurn != 0 {
		return nil, domain.InvalidInput(op, "bitstring", "length %d is not a multiple of %d", len(bits), lattice.BitsPerTurn)
	}
	turns := make([]int, 0, len(bits)/lattice.BitsPerTurn)
	for i := 0; i < len(bits); i += lattice.BitsPerTurn {
		code := 0
		for _, b := range bits[i : i+lattice.BitsPerTurn] {
			switch b {
			case '0':
				code <<= 1
			case '1':
				code = code<<1 | 1
			default:
				return nil, domain.InvalidInput(op, "bitstring", "invalid bit %q at %d", b, i)
			}
		}
		turns = append(turns, code)
	}
	return turns, nil
}

// Walk places one residue at the origin and one more per turn.
func Walk(turns []int) []Point {
	points := make([]Point, 0, len(turns)+1)
	pos := Point{}
	points = append(points, pos)
	for _, t := range turns {
		pos = pos.Add(Directions[t])
		points = append(points, pos)
	}
	return points
}

// Decoder builds conformations. It has no state; every method is a pure
// function of its inputs.
type Decoder struct{}

// NewDecoder creates a decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode derives the representative bitstring for finalEnergy and decodes it.
func (d *Decoder) Decode(length int, finalEnergy float64, enc *lattice.Encoding) (*Conformation, error) {
	const op = "structure.Decode"

	if enc == nil {
		return nil, domain.InvalidInput(op, "encoding", "encoding is nil")
	}
	if length < 1 || length != enc.Length {
		return nil, domain.InvalidInput(op, "length", "length %d does not match encoding length %d", length, enc.Length)
	}

	conf, err := d.DecodeBitstring(RepresentativeBitstring(enc.NumTurns, finalEnergy), enc)
	if err != nil {
		return nil, err
	}
	conf.Energy = finalEnergy
	conf.Band = BandFor(finalEnergy)
	return conf, nil
}

// DecodeBitstring decodes an explicit bitstring of 2*numTurns bits.
func (d *Decoder) DecodeBitstring(bits string, enc *lattice.Encoding) (*Conformation, error) {
	const op = "structure.DecodeBitstring"

	if enc == nil {
		return nil, domain.InvalidInput(op, "encoding", "encoding is nil")
	}
	if len(bits) != enc.NumTurns*lattice.BitsPerTurn {
		return nil, domain.InvalidInput(op, "bitstring", "got %d bits, want %d", len(bits), enc.NumTurns*lattice.BitsPerTurn)
	}

	turns, err := Turns(bits)
	if err != nil {
		return nil, err
	}
	points := Walk(turns)
	vecs := Vectors(points)
	overlaps := FindOverlaps(vecs)

	return &Conformation{
		Sequence:         enc.Sequence,
		Bitstring:        bits,
		Turns:            turns,
		Coordinates:      points,
		Valid:            len(overlaps) == 0,
		Overlaps:         overlaps,
		RadiusOfGyration: RadiusOfGyration(vecs),
	}, nil
}
