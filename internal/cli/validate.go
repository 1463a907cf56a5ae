package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/aristath/latticefold/internal/modules/sequence"
)

// ValidationResult describes an accepted sequence and what simulating it costs.
type ValidationResult struct {
	Sequence string  `json:"sequence"`
	Length   int     `json:"length"`
	Qubits   int     `json:"qubits"`
	MemoryGB float64 `json:"memory_gb"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	maxSimulated := sequence.DefaultMaxSimulated

	cmd := &cobra.Command{
		Use:           "validate <sequence>",
		Short:         "Check a sequence without folding it",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}

			seq, err := sequence.NewValidator(maxSimulated).Validate(args[0])
			if err != nil {
				_ = formatter.Error(err)
				return WrapExitError(ExitFailure, "sequence rejected", err)
			}

			qubits := sequence.QubitCount(seq.Len())
			result := ValidationResult{
				Sequence: string(seq),
				Length:   seq.Len(),
				Qubits:   qubits,
				MemoryGB: sequence.StateMemoryGB(qubits),
			}
			return formatter.Success(result, func(w io.Writer) {
				fmt.Fprintf(w, "✓ %s: %d residues, %d qubits, %.6f GB state vector\n",
					result.Sequence, result.Length, result.Qubits, result.MemoryGB)
			})
		},
	}

	cmd.Flags().IntVar(&maxSimulated, "max-residues", maxSimulated, "longest sequence simulated classically")
	return cmd
}
