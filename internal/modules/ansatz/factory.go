// Package ansatz builds the parameterised circuit families used by the
// variational loop.
package ansatz

import (
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/aristath/latticefold/internal/domain"
	"github.com/aristath/latticefold/internal/modules/quantum"
)

const (
	DefaultSeed = 42
	// DefaultInitScale bounds the initial parameters to [-scale, scale).
	DefaultInitScale = 0.1
)

// Option configures one Build call.
type Option func(*buildOptions)

type buildOptions struct {
	rotations [2]quantum.GateType
	entangler quantum.GateType
	seed      int64
	zeroInit  bool
	scale     float64
}

// WithRotationAxes picks the two rotation gates of the two-local variant.
func WithRotationAxes(a, b quantum.GateType) Option {
	return func(o *buildOptions) { o.rotations = [2]quantum.GateType{a, b} }
}

// WithEntangler picks the two-qubit gate of the two-local variant. The
// default is CX.
func WithEntangler(g quantum.GateType) Option {
	return func(o *buildOptions) { o.entangler = g }
}

// WithSeed sets the seed for the initial parameters.
func WithSeed(seed int64) Option {
	return func(o *buildOptions) { o.seed = seed }
}

// WithZeroInit starts every parameter at zero.
func WithZeroInit() Option {
	return func(o *buildOptions) { o.zeroInit = true }
}

// Factory builds circuits.
type Factory struct {
	log zerolog.Logger
}

// NewFactory creates a circuit factory.
func NewFactory(log zerolog.Logger) *Factory {
	return &Factory{log: log.With().Str("component", "ansatz_factory").Logger()}
}

// Build creates the circuit for variant over qubits qubits with reps
// repetitions, and its initial parameter vector. Every circuit starts with H
// on each qubit and ends with a full measurement.
func (f *Factory) Build(qubits int, variant Variant, reps int, opts ...Option) (*quantum.Circuit, []float64, error) {
	const op = "ansatz.Build"

	o := buildOptions{
		rotations: [2]quantum.GateType{quantum.GateRY, quantum.GateRZ},
		entangler: quantum.GateCX,
		seed:      DefaultSeed,
		scale:     DefaultInitScale,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if qubits < 0 || qubits > quantum.MaxQubits {
		return nil, nil, domain.ConfigurationError(op, "qubits", "qubit count %d out of range [0, %d]", qubits, quantum.MaxQubits)
	}
	if reps < 1 {
		return nil, nil, domain.ConfigurationError(op, "repetitions", "repetitions must be positive, got %d", reps)
	}
	for _, g := range o.rotations {
		if !g.IsRotation() {
			return nil, nil, domain.ConfigurationError(op, "rotation_axes", "%s is not a rotation gate", g)
		}
	}
	if o.rotations[0] == o.rotations[1] {
		return nil, nil, domain.ConfigurationError(op, "rotation_axes", "rotation axes must differ")
	}
	if !o.entangler.IsControlled() {
		return nil, nil, domain.ConfigurationError(op, "entangler", "%s is not a two-qubit gate", o.entangler)
	}

	c := quantum.NewCircuit(string(variant), qubits, reps)
	for q := 0; q < qubits; q++ {
		c.Add(quantum.GateH, q, 0)
	}
	layer := 1

	switch variant {
	case HardwareEfficient:
		layer = rotationEntangler(c, layer, reps, [2]quantum.GateType{quantum.GateRY, quantum.GateRZ}, quantum.GateCX)
	case TwoLocal:
		layer = rotationEntangler(c, layer, reps, o.rotations, o.entangler)
	case Custom:
		layer = proteinAware(c, layer, reps)
	default:
		return nil, nil, domain.ConfigurationError(op, "ansatz", "unknown ansatz %q", variant)
	}

	for q := 0; q < qubits; q++ {
		c.Add(quantum.GateMeasure, q, layer)
	}

	params := initialParameters(c.ParameterCount, o)

	f.log.Debug().
		Str("variant", string(variant)).
		Int("qubits", qubits).
		Int("reps", reps).
		Int("parameters", c.ParameterCount).
		Int("gates", len(c.Gates)).
		Int("layers", c.Layers).
		Msg("Circuit built")

	return c, params, nil
}

// rotationEntangler lays out reps blocks of two rotation layers followed by a
// linear entangling chain, then a final pair of rotation layers.
// Parameter count is 2 * n * (reps + 1).
func rotationEntangler(c *quantum.Circuit, layer, reps int, rot [2]quantum.GateType, ent quantum.GateType) int {
	n := c.QubitCount
	rotations := func() {
		for _, g := range rot {
			for q := 0; q < n; q++ {
				c.AddRotation(g, q, layer)
			}
			layer++
		}
	}
	for r := 0; r < reps; r++ {
		rotations()
		for q := 0; q+1 < n; q++ {
			c.AddControlled(ent, q, q+1, layer)
			layer++
		}
	}
	rotations()
	return layer
}

// proteinAware lays out, per repetition: RY on all qubits, CX on even pairs,
// RZ on all qubits, CX on odd pairs. Parameter count is n * reps * 2.
func proteinAware(c *quantum.Circuit, layer, reps int) int {
	n := c.QubitCount
	for r := 0; r < reps; r++ {
		for q := 0; q < n; q++ {
			c.AddRotation(quantum.GateRY, q, layer)
		}
		layer++
		for q := 0; q+1 < n; q += 2 {
			c.AddControlled(quantum.GateCX, q, q+1, layer)
		}
		layer++
		for q := 0; q < n; q++ {
			c.AddRotation(quantum.GateRZ, q, layer)
		}
		layer++
		for q := 1; q+1 < n; q += 2 {
			c.AddControlled(quantum.GateCX, q, q+1, layer)
		}
		layer++
	}
	return layer
}

func initialParameters(n int, o buildOptions) []float64 {
	params := make([]float64, n)
	if o.zeroInit {
		return params
	}
	rng := rand.New(rand.NewSource(o.seed))
	for i := range params {
		params[i] = (rng.Float64()*2 - 1) * o.scale
	}
	return params
}
