package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aristath/latticefold/internal/modules/prediction"
)

// BatchOutput is the JSON payload of the batch command. Results are keyed
// by the sequence exactly as it was given.
type BatchOutput struct {
	Results map[string]prediction.BatchEntry `json:"results"`
	Failed  int                              `json:"failed"`
}

// NewBatchCommand creates the batch command.
func NewBatchCommand(rootOpts *RootOptions) *cobra.Command {
	flags := newRunFlags()
	var file string

	cmd := &cobra.Command{
		Use:   "batch [sequence...]",
		Short: "Fold several sequences concurrently",
		Long: `Fold several sequences on a bounded worker pool.

Sequences come from the arguments, from --file (one per line, blank lines
and lines starting with # are ignored), or both. A failing sequence is
reported in place and does not stop the others.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, rootOpts, flags, file, args)
		},
	}

	flags.register(cmd.Flags())
	cmd.Flags().StringVarP(&file, "file", "f", "", "read sequences from a file")
	cmd.Flags().IntVar(&flags.workers, "workers", flags.workers, "sequences folded concurrently")
	return cmd
}

func runBatch(cmd *cobra.Command, opts *RootOptions, flags *runFlags, file string, args []string) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	sequences := append([]string(nil), args...)
	if file != "" {
		fromFile, err := readSequences(file)
		if err != nil {
			return NewExitError(ExitCommandError, fmt.Sprintf("failed to read sequence file: %v", err))
		}
		sequences = append(sequences, fromFile...)
	}
	if len(sequences) == 0 {
		return NewExitError(ExitCommandError, "no sequences given: pass them as arguments or with --file")
	}

	if err := flags.cfg.Validate(); err != nil {
		_ = formatter.Error(err)
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	results := flags.service(opts).BatchPredict(cmd.Context(), sequences, flags.cfg)
	out := BatchOutput{Results: results}
	for _, entry := range results {
		if entry.Err != nil {
			out.Failed++
		}
	}

	if err := formatter.Success(out, func(w io.Writer) {
		writeBatchText(w, sequences, results)
	}); err != nil {
		return err
	}

	if out.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d sequences failed", out.Failed, len(results)))
	}
	return nil
}

func writeBatchText(w io.Writer, order []string, results map[string]prediction.BatchEntry) {
	printed := make(map[string]bool, len(results))
	for _, seq := range order {
		if printed[seq] {
			continue
		}
		printed[seq] = true

		entry := results[seq]
		if entry.Err != nil {
			fmt.Fprintf(w, "%-22s error: %s\n", seq, entry.Error)
			continue
		}
		r := entry.Result.Report
		fmt.Fprintf(w, "%-22s energy=%.6f valid=%t rg=%.4f iterations=%d\n",
			seq, r.Energy, r.ValidStructure, r.RadiusOfGyration, r.Iterations)
	}
}

func readSequences(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, scanner.Err()
}
