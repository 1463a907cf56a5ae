// Package prediction runs the full folding pipeline for one or many
// sequences: validation, lattice encoding, Hamiltonian construction, ansatz
// construction, variational optimization, decoding and export.
package prediction

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/latticefold/internal/modules/ansatz"
	"github.com/aristath/latticefold/internal/modules/export"
	"github.com/aristath/latticefold/internal/modules/hamiltonian"
	"github.com/aristath/latticefold/internal/modules/lattice"
	"github.com/aristath/latticefold/internal/modules/optimization"
	"github.com/aristath/latticefold/internal/modules/quantum"
	"github.com/aristath/latticefold/internal/modules/sequence"
	"github.com/aristath/latticefold/internal/modules/structure"
	"github.com/aristath/latticefold/internal/workers"
)

// Store persists finished reports.
type Store interface {
	Save(ctx context.Context, report *export.Report, trace []optimization.Record) error
}

// Uploader copies generated files to remote storage.
type Uploader interface {
	Upload(ctx context.Context, jobID string, files export.Files) ([]string, error)
}

// CircuitSummary describes the ansatz used for a prediction.
type CircuitSummary struct {
	Variant     string                   `json:"variant"`
	Qubits      int                      `json:"qubits"`
	Repetitions int                      `json:"repetitions"`
	Parameters  int                      `json:"parameters"`
	Gates       int                      `json:"gates"`
	Depth       int                      `json:"depth"`
	GateCounts  map[quantum.GateType]int `json:"gate_counts"`
}

// SummarizeCircuit reports the shape of c.
func SummarizeCircuit(c *quantum.Circuit) CircuitSummary {
	return CircuitSummary{
		Variant:     c.Name,
		Qubits:      c.QubitCount,
		Repetitions: c.Repetitions,
		Parameters:  c.ParameterCount,
		Gates:       len(c.Gates),
		Depth:       c.Layers,
		GateCounts:  c.GateCounts(),
	}
}

// Result is everything a prediction produced.
type Result struct {
	ID           string                  `json:"id"`
	Sequence     string                  `json:"sequence"`
	Encoding     *lattice.Encoding       `json:"encoding"`
	Hamiltonian  hamiltonian.Summary     `json:"hamiltonian"`
	Circuit      CircuitSummary          `json:"circuit"`
	Optimization *optimization.Result    `json:"optimization"`
	Conformation *structure.Conformation `json:"conformation,omitempty"`
	MostLikely   quantum.Outcome         `json:"most_likely"`
	Report       *export.Report          `json:"report,omitempty"`
	PDB          string                  `json:"-"`
	Files        export.Files            `json:"files"`
	UploadedKeys []string                `json:"uploaded_keys,omitempty"`
}

// Option configures a Service.
type Option func(*Service)

// WithStore persists every successful prediction.
func WithStore(s Store) Option {
	return func(svc *Service) { svc.store = s }
}

// WithUploader uploads generated files after every successful prediction.
func WithUploader(u Uploader) Option {
	return func(svc *Service) { svc.uploader = u }
}

// WithMaxSimulated sets the largest sequence length that will be simulated.
func WithMaxSimulated(n int) Option {
	return func(svc *Service) { svc.validator = sequence.NewValidator(n) }
}

// WithBatchWorkers bounds how many batch sequences run at once.
func WithBatchWorkers(n int) Option {
	return func(svc *Service) { svc.pool = workers.NewPool(n) }
}

// WithLoopOptions passes resource settings to every optimization loop.
func WithLoopOptions(opts ...optimization.Option) Option {
	return func(svc *Service) { svc.loopOpts = append(svc.loopOpts, opts...) }
}

// Service runs predictions. It holds no per-prediction state and is safe for
// concurrent use.
type Service struct {
	validator *sequence.Validator
	builder   *hamiltonian.Builder
	factory   *ansatz.Factory
	decoder   *structure.Decoder
	pool      *workers.Pool
	loopOpts  []optimization.Option
	store     Store
	uploader  Uploader
	log       zerolog.Logger
}

// NewService creates a prediction service.
func NewService(log zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		validator: sequence.NewValidator(sequence.DefaultMaxSimulated),
		builder:   hamiltonian.NewBuilder(log),
		factory:   ansatz.NewFactory(log),
		decoder:   structure.NewDecoder(),
		pool:      workers.NewPool(workers.DefaultWorkers),
		log:       log.With().Str("service", "prediction").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validator returns the sequence validator in use.
func (s *Service) Validator() *sequence.Validator { return s.validator }

// Admit checks a register of qubits qubits against the simulation ceiling
// without running anything. A refusal is a ResourceInfeasible error carrying
// the memory estimate.
func (s *Service) Admit(qubits int) error {
	_, err := optimization.NewLoop(s.log, s.loopOpts...).Admit(qubits, optimization.DirectSearch)
	return err
}

// PredictOption configures a single Predict call.
type PredictOption func(*predictOptions)

type predictOptions struct {
	id       string
	progress func(optimization.Record)
}

// WithID assigns the prediction (and report) id.
func WithID(id string) PredictOption {
	return func(o *predictOptions) { o.id = id }
}

// WithProgress streams every convergence record as it is appended.
func WithProgress(fn func(optimization.Record)) PredictOption {
	return func(o *predictOptions) { o.progress = fn }
}

// Prepared is a validated sequence with its encoding and Hamiltonian.
type Prepared struct {
	Sequence    sequence.Sequence
	Encoding    *lattice.Encoding
	Hamiltonian *hamiltonian.Hamiltonian
}

// Prepare validates raw and builds its encoding and Hamiltonian.
func (s *Service) Prepare(raw string) (*Prepared, error) {
	seq, err := s.validator.Validate(raw)
	if err != nil {
		return nil, err
	}
	enc := lattice.Encode(seq)
	h, err := s.builder.Build(enc)
	if err != nil {
		return nil, fmt.Errorf("failed to build hamiltonian for %s: %w", seq, err)
	}
	return &Prepared{Sequence: seq, Encoding: enc, Hamiltonian: h}, nil
}

// BuildCircuit builds the ansatz cfg selects for qubits qubits.
func (s *Service) BuildCircuit(qubits int, cfg Config) (*quantum.Circuit, []float64, error) {
	r, err := cfg.resolve()
	if err != nil {
		return nil, nil, err
	}
	return s.factory.Build(qubits, r.variant, cfg.Repetitions, ansatz.WithSeed(cfg.Seed))
}

// Predict folds one sequence. When optimization fails after it started, the
// returned Result is non-nil and carries the partial trace alongside the
// error.
func (s *Service) Predict(ctx context.Context, raw string, cfg Config, opts ...PredictOption) (*Result, error) {
	o := predictOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.id == "" {
		o.id = uuid.New().String()
	}

	r, err := cfg.resolve()
	if err != nil {
		return nil, err
	}
	prep, err := s.Prepare(raw)
	if err != nil {
		return nil, err
	}
	seq, enc, h := prep.Sequence, prep.Encoding, prep.Hamiltonian

	log := s.log.With().Str("job_id", o.id).Str("sequence", string(seq)).Logger()
	loopOpts := append(append([]optimization.Option(nil), s.loopOpts...),
		optimization.WithSeed(cfg.Seed),
		optimization.WithTimeout(cfg.Timeout),
	)
	loop := optimization.NewLoop(log, loopOpts...)

	// The register size is gated before any circuit is allocated.
	if aborted, err := loop.Admit(enc.QubitCount, r.kind); err != nil {
		return &Result{
			ID:           o.id,
			Sequence:     string(seq),
			Encoding:     enc,
			Hamiltonian:  h.Summarize(cfg.MaxEvaluatedTerms),
			Optimization: aborted,
		}, fmt.Errorf("cannot simulate %s: %w", seq, err)
	}

	circuit, initial, err := s.factory.Build(enc.QubitCount, r.variant, cfg.Repetitions, ansatz.WithSeed(cfg.Seed))
	if err != nil {
		return nil, fmt.Errorf("failed to build ansatz for %s: %w", seq, err)
	}

	log.Info().
		Int("qubits", enc.QubitCount).
		Int("terms", len(h.Terms)).
		Int("parameters", circuit.ParameterCount).
		Str("ansatz", string(r.variant)).
		Str("optimizer", string(r.kind)).
		Msg("Prediction started")

	evaluator := quantum.NewEvaluator(log, quantum.WithMaxTerms(cfg.MaxEvaluatedTerms))
	objective := optimization.NewCircuitObjective(evaluator, circuit, h)
	var runOpts []optimization.RunOption
	if o.progress != nil {
		runOpts = append(runOpts, optimization.WithProgress(o.progress))
	}

	result := &Result{
		ID:          o.id,
		Sequence:    string(seq),
		Encoding:    enc,
		Hamiltonian: h.Summarize(cfg.MaxEvaluatedTerms),
		Circuit:     SummarizeCircuit(circuit),
	}

	optResult, err := loop.Run(ctx, objective, initial, r.kind, cfg.MaxIterations, runOpts...)
	result.Optimization = optResult
	if err != nil {
		return result, fmt.Errorf("optimization failed for %s: %w", seq, err)
	}

	conf, err := s.decoder.Decode(enc.Length, optResult.BestEnergy, enc)
	if err != nil {
		return result, fmt.Errorf("failed to decode structure for %s: %w", seq, err)
	}
	result.Conformation = conf

	outcome, err := objective.MostLikely(optResult.BestParameters)
	if err != nil {
		return result, fmt.Errorf("failed to sample final state for %s: %w", seq, err)
	}
	result.MostLikely = outcome

	var pdb bytes.Buffer
	if err := export.WritePDB(&pdb, string(seq), optResult.BestEnergy, conf.Coordinates); err != nil {
		return result, fmt.Errorf("failed to render PDB for %s: %w", seq, err)
	}
	result.PDB = pdb.String()

	result.Report = s.report(o.id, cfg, r, enc, optResult, conf, outcome)

	if cfg.OutputDir != "" {
		files, err := export.NewWriter(cfg.OutputDir, log).Write(export.Bundle{
			Report:       result.Report,
			Conformation: conf,
			Trace:        optResult.Trace,
		})
		if err != nil {
			return result, fmt.Errorf("failed to export %s: %w", seq, err)
		}
		result.Files = files

		if s.uploader != nil {
			keys, err := s.uploader.Upload(ctx, o.id, files)
			if err != nil {
				log.Warn().Err(err).Msg("Artifact upload failed")
				result.Report.Warnings = append(result.Report.Warnings, "artifact upload failed: "+err.Error())
			}
			result.UploadedKeys = keys
		}
	}

	if s.store != nil {
		if err := s.store.Save(ctx, result.Report, optResult.Trace); err != nil {
			log.Warn().Err(err).Msg("Failed to persist report")
			result.Report.Warnings = append(result.Report.Warnings, "report not persisted: "+err.Error())
		}
	}

	log.Info().
		Float64("energy", optResult.BestEnergy).
		Int("iterations", optResult.Iterations).
		Bool("valid", conf.Valid).
		Float64("radius_of_gyration", conf.RadiusOfGyration).
		Msg("Prediction finished")

	return result, nil
}

func (s *Service) report(
	id string,
	cfg Config,
	r resolved,
	enc *lattice.Encoding,
	opt *optimization.Result,
	conf *structure.Conformation,
	outcome quantum.Outcome,
) *export.Report {
	return &export.Report{
		ID:                  id,
		Sequence:            enc.Sequence,
		Length:              enc.Length,
		Qubits:              enc.QubitCount,
		Energy:              opt.BestEnergy,
		Variance:            opt.BestVariance,
		Iterations:          opt.Iterations,
		Evaluations:         opt.Evaluations,
		ValidStructure:      conf.Valid,
		RadiusOfGyration:    conf.RadiusOfGyration,
		Ansatz:              string(r.variant),
		Optimizer:           string(r.kind),
		Repetitions:         cfg.Repetitions,
		State:               string(opt.State),
		Bitstring:           conf.Bitstring,
		MostLikelyBitstring: outcome.Bitstring,
		Warnings:            append([]string(nil), opt.Warnings...),
		Convergence:         opt.Summary,
		DurationMS:          opt.Duration.Milliseconds(),
		Timestamp:           time.Now(),
	}
}

// BatchEntry is the outcome for one sequence of a batch. Exactly one of
// Result and Err is set.
type BatchEntry struct {
	Result *Result `json:"result,omitempty"`
	Err    error   `json:"-"`
	Error  string  `json:"error,omitempty"`
}

// BatchPredict folds every sequence on the worker pool. The map has one
// entry per distinct input string; a failure never removes or affects
// another sequence's entry.
func (s *Service) BatchPredict(ctx context.Context, sequences []string, cfg Config) map[string]BatchEntry {
	keys := make([]string, 0, len(sequences))
	seen := make(map[string]struct{}, len(sequences))
	for _, seq := range sequences {
		if _, ok := seen[seq]; ok {
			continue
		}
		seen[seq] = struct{}{}
		keys = append(keys, seq)
	}

	entries := workers.Map(ctx, s.pool, keys, func(ctx context.Context, seq string) BatchEntry {
		res, err := s.Predict(ctx, seq, cfg)
		if err != nil {
			return BatchEntry{Err: err, Error: err.Error()}
		}
		return BatchEntry{Result: res}
	})

	out := make(map[string]BatchEntry, len(keys))
	failed := 0
	for i, key := range keys {
		out[key] = entries[i]
		if entries[i].Err != nil {
			failed++
		}
	}

	s.log.Info().
		Int("sequences", len(keys)).
		Int("failed", failed).
		Str("sequences_list", strings.Join(keys, ",")).
		Msg("Batch finished")
	return out
}
