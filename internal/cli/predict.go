package cli

import (
	"fmt"
	"io"
	"math"

	"github.com/spf13/cobra"

	"github.com/aristath/latticefold/internal/modules/prediction"
)

// NewPredictCommand creates the predict command.
func NewPredictCommand(rootOpts *RootOptions) *cobra.Command {
	flags := newRunFlags()

	cmd := &cobra.Command{
		Use:   "predict <sequence>",
		Short: "Fold one sequence",
		Long: `Fold one amino-acid sequence and write its structure.

With --out set (the default is ./results) the PDB file, structure JSON,
convergence CSV and report JSON are written there, named after the sequence.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPredict(cmd, rootOpts, flags, args[0])
		},
	}

	flags.register(cmd.Flags())
	return cmd
}

func runPredict(cmd *cobra.Command, opts *RootOptions, flags *runFlags, raw string) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	if err := flags.cfg.Validate(); err != nil {
		_ = formatter.Error(err)
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	svc := flags.service(opts)
	res, err := svc.Predict(cmd.Context(), raw, flags.cfg)
	if err != nil {
		_ = formatter.Error(err)
		return WrapExitError(exitCodeFor(err), "prediction failed", err)
	}

	return formatter.Success(res, func(w io.Writer) {
		writeResultText(w, res)
	})
}

func writeResultText(w io.Writer, res *prediction.Result) {
	r := res.Report
	fmt.Fprintf(w, "Sequence:           %s\n", r.Sequence)
	fmt.Fprintf(w, "Residues / qubits:  %d / %d\n", r.Length, r.Qubits)
	fmt.Fprintf(w, "Ansatz / optimizer: %s (reps %d) / %s\n", r.Ansatz, r.Repetitions, r.Optimizer)
	fmt.Fprintf(w, "Energy:             %.6f (variance %.6f)\n", r.Energy, r.Variance)
	fmt.Fprintf(w, "Iterations:         %d (%d evaluations, %s)\n", r.Iterations, r.Evaluations, r.State)
	fmt.Fprintf(w, "Convergence:        improvement %.6f, best at iteration %d, tail std %.6f\n",
		r.Convergence.Improvement, r.Convergence.BestIteration, math.Sqrt(r.Convergence.TailVariance))
	fmt.Fprintf(w, "Valid structure:    %t\n", r.ValidStructure)
	fmt.Fprintf(w, "Radius of gyration: %.4f\n", r.RadiusOfGyration)
	fmt.Fprintf(w, "Bitstring:          %s\n", displayBitstring(r.Bitstring))
	for _, warning := range r.Warnings {
		fmt.Fprintf(w, "Warning:            %s\n", warning)
	}
	if res.Files.Report != "" {
		fmt.Fprintf(w, "PDB:                %s\n", res.Files.PDB)
		fmt.Fprintf(w, "Report:             %s\n", res.Files.Report)
	}
}

func displayBitstring(b string) string {
	if b == "" {
		return "(none)"
	}
	return b
}
