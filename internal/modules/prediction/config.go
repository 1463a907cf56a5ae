package prediction

import (
	"time"

	"github.com/aristath/latticefold/internal/domain"
	"github.com/aristath/latticefold/internal/modules/ansatz"
	"github.com/aristath/latticefold/internal/modules/optimization"
	"github.com/aristath/latticefold/internal/modules/quantum"
)

// Upper bounds on request-controlled cost. A circuit grows linearly with
// repetitions and every iteration re-simulates it.
const (
	IterationsLimit     = 10000
	RepetitionsLimit    = 10
	EvaluatedTermsLimit = 1000
)

// Config selects how one prediction runs.
type Config struct {
	Ansatz            string        `json:"ansatz"`
	Optimizer         string        `json:"optimizer"`
	MaxIterations     int           `json:"max_iterations"`
	Repetitions       int           `json:"repetitions"`
	OutputDir         string        `json:"output_dir,omitempty"` // empty = no files written
	Seed              int64         `json:"seed"`
	MaxEvaluatedTerms int           `json:"max_evaluated_terms"`
	Timeout           time.Duration `json:"timeout,omitempty"`
}

// DefaultConfig returns the defaults used by the CLI and the HTTP service.
func DefaultConfig() Config {
	return Config{
		Ansatz:            string(ansatz.Custom),
		Optimizer:         string(optimization.DirectSearch),
		MaxIterations:     100,
		Repetitions:       2,
		OutputDir:         "results",
		Seed:              ansatz.DefaultSeed,
		MaxEvaluatedTerms: quantum.DefaultMaxEvaluatedTerms,
	}
}

type resolved struct {
	variant ansatz.Variant
	kind    optimization.Kind
}

// Validate checks the configuration before any work is done.
func (c Config) Validate() error {
	_, err := c.resolve()
	return err
}

func (c Config) resolve() (resolved, error) {
	const op = "prediction.Config"

	variant, err := ansatz.ParseVariant(c.Ansatz)
	if err != nil {
		return resolved{}, err
	}
	kind, err := optimization.ParseKind(c.Optimizer)
	if err != nil {
		return resolved{}, err
	}
	bounds := []struct {
		field string
		value int
		limit int
	}{
		{"max_iterations", c.MaxIterations, IterationsLimit},
		{"repetitions", c.Repetitions, RepetitionsLimit},
		{"max_evaluated_terms", c.MaxEvaluatedTerms, EvaluatedTermsLimit},
	}
	for _, b := range bounds {
		if b.value < 1 || b.value > b.limit {
			return resolved{}, domain.ConfigurationError(op, b.field, "must be in 1..%d, got %d", b.limit, b.value)
		}
	}
	if c.Timeout < 0 {
		return resolved{}, domain.ConfigurationError(op, "timeout", "must not be negative")
	}
	return resolved{variant: variant, kind: kind}, nil
}
