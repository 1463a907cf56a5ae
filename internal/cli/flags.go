package cli

import (
	"time"

	"github.com/spf13/pflag"

	"github.com/aristath/latticefold/internal/modules/prediction"
	"github.com/aristath/latticefold/internal/modules/sequence"
	"github.com/aristath/latticefold/internal/workers"
)

// runFlags are the prediction settings shared by predict and batch.
type runFlags struct {
	cfg          prediction.Config
	maxSimulated int
	workers      int
}

func newRunFlags() *runFlags {
	return &runFlags{
		cfg:          prediction.DefaultConfig(),
		maxSimulated: sequence.DefaultMaxSimulated,
		workers:      workers.DefaultWorkers,
	}
}

func (f *runFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.cfg.Ansatz, "ansatz", f.cfg.Ansatz, "ansatz variant (custom|hardware_efficient|two_local)")
	fs.StringVar(&f.cfg.Optimizer, "optimizer", f.cfg.Optimizer, "optimizer (cobyla|spsa|slsqp|l_bfgs_b)")
	fs.IntVar(&f.cfg.MaxIterations, "max-iter", f.cfg.MaxIterations, "maximum optimizer iterations")
	fs.IntVar(&f.cfg.Repetitions, "reps", f.cfg.Repetitions, "ansatz repetitions")
	fs.StringVar(&f.cfg.OutputDir, "out", f.cfg.OutputDir, `output directory ("" writes no files)`)
	fs.Int64Var(&f.cfg.Seed, "seed", f.cfg.Seed, "seed for initial parameters and SPSA")
	fs.IntVar(&f.cfg.MaxEvaluatedTerms, "max-terms", f.cfg.MaxEvaluatedTerms, "Hamiltonian terms evaluated per energy call")
	fs.DurationVar(&f.cfg.Timeout, "timeout", time.Duration(0), "wall-clock limit per sequence (0 = none)")
	fs.IntVar(&f.maxSimulated, "max-residues", f.maxSimulated, "longest sequence simulated classically")
}

func (f *runFlags) service(opts *RootOptions) *prediction.Service {
	return prediction.NewService(opts.log,
		prediction.WithMaxSimulated(f.maxSimulated),
		prediction.WithBatchWorkers(f.workers),
	)
}
