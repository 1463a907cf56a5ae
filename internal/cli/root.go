// Package cli implements the foldctl command line client.
package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aristath/latticefold/pkg/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	log zerolog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for foldctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{log: logger.Nop()}

	cmd := &cobra.Command{
		Use:   "foldctl",
		Short: "Lattice protein folding with a simulated variational eigensolver",
		Long: `foldctl predicts coarse-grained 3-D structures of short peptides.

Each sequence is encoded as turns on a tetrahedral lattice, turned into a
qubit Hamiltonian and minimised with a classically simulated variational
circuit. The decoded structure is written as PDB alongside a JSON report
and a CSV convergence trace.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			level := "warn"
			if opts.Verbose {
				level = "debug"
			}
			opts.log = logger.New(logger.Config{
				Level:  level,
				Pretty: true,
				Output: cmd.ErrOrStderr(),
			})
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log pipeline progress to stderr")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewPredictCommand(opts))
	cmd.AddCommand(NewBatchCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
