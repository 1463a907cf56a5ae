// Package export writes prediction artifacts: PDB structures, convergence
// traces and JSON reports.
package export

import (
	"bufio"
	"fmt"
	"io"

	"github.com/aristath/latticefold/internal/modules/sequence"
	"github.com/aristath/latticefold/internal/modules/structure"
)

// AngstromPerUnit is the C-alpha spacing one lattice unit stands for.
const AngstromPerUnit = 3.8

// WritePDB writes a single-chain C-alpha PDB record set: header lines, one
// ATOM per residue, CONECT records between neighbours and END.
func WritePDB(w io.Writer, seq string, energy float64, coords []structure.Point) error {
	if len(coords) != len(seq) {
		return fmt.Errorf("pdb: %d coordinates for %d residues", len(coords), len(seq))
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "HEADER    QUANTUM PREDICTED PROTEIN STRUCTURE")
	fmt.Fprintf(bw, "TITLE     SEQUENCE: %s\n", seq)
	fmt.Fprintf(bw, "REMARK    ENERGY: %.6f\n", energy)
	fmt.Fprintln(bw, "REMARK    METHOD: QUANTUM VQE OPTIMIZATION")

	for i, p := range coords {
		serial := i + 1
		fmt.Fprintf(bw, "ATOM  %5d  %-3s %-3s A%4d    %8.3f%8.3f%8.3f  1.00  0.00           C\n",
			serial, "CA", sequence.ThreeLetter(seq[i]), serial,
			float64(p.X)*AngstromPerUnit,
			float64(p.Y)*AngstromPerUnit,
			float64(p.Z)*AngstromPerUnit)
	}
	for i := 0; i+1 < len(coords); i++ {
		fmt.Fprintf(bw, "CONECT%5d%5d\n", i+1, i+2)
	}
	fmt.Fprintln(bw, "END")

	return bw.Flush()
}
