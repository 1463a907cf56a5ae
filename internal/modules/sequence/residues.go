// Package sequence validates amino-acid sequences and holds the fixed
// per-residue tables used by the encoder and the PDB exporter.
package sequence

// Alphabet is the set of accepted one-letter residue codes.
const Alphabet = "ACDEFGHIKLMNPQRSTVWY"

// hydrophobicity is a simplified Kyte-Doolittle style scale.
var hydrophobicity = map[byte]float64{
	'A': 0.5, 'C': 1.0, 'D': -0.8, 'E': -0.8, 'F': 1.2,
	'G': 0.0, 'H': 0.5, 'I': 1.8, 'K': -0.9, 'L': 1.8,
	'M': 1.3, 'N': -0.2, 'P': 0.0, 'Q': -0.2, 'R': -0.9,
	'S': -0.3, 'T': 0.4, 'V': 1.5, 'W': 0.9, 'Y': 0.7,
}

var threeLetter = map[byte]string{
	'A': "ALA", 'C': "CYS", 'D': "ASP", 'E': "GLU", 'F': "PHE",
	'G': "GLY", 'H': "HIS", 'I': "ILE", 'K': "LYS", 'L': "LEU",
	'M': "MET", 'N': "ASN", 'P': "PRO", 'Q': "GLN", 'R': "ARG",
	'S': "SER", 'T': "THR", 'V': "VAL", 'W': "TRP", 'Y': "TYR",
}

// Hydrophobicity returns the hydrophobicity weight of a residue code.
// Unknown codes weigh 0.
func Hydrophobicity(code byte) float64 {
	return hydrophobicity[code]
}

// ThreeLetter returns the PDB residue name for a one-letter code, or UNK.
func ThreeLetter(code byte) string {
	if name, ok := threeLetter[code]; ok {
		return name
	}
	return "UNK"
}

// IsResidue reports whether code belongs to Alphabet.
func IsResidue(code byte) bool {
	_, ok := hydrophobicity[code]
	return ok
}
