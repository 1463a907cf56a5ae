package quantum

import (
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/latticefold/internal/domain"
	"github.com/aristath/latticefold/internal/modules/hamiltonian"
	"github.com/aristath/latticefold/internal/modules/lattice"
)

func testLogger() zerolog.Logger {
	return zerolog.New(nil).Level(zerolog.Disabled)
}

// zHamiltonian builds a Hamiltonian from explicit terms.
func zHamiltonian(qubits int, terms ...hamiltonian.Term) *hamiltonian.Hamiltonian {
	return &hamiltonian.Hamiltonian{QubitCount: qubits, Terms: terms}
}

func zTerm(c float64, qubits ...int) hamiltonian.Term {
	return hamiltonian.Term{Family: hamiltonian.Geometry, Qubits: qubits, Coefficient: c}
}

func TestStateVector_KnownExpectations(t *testing.T) {
	tests := []struct {
		name   string
		build  func(c *Circuit)
		params []float64
		mask   uint64
		want   float64
	}{
		{"ground state", func(c *Circuit) {}, nil, 1, 1},
		{"X flips", func(c *Circuit) { c.Add(GateX, 0, 0) }, nil, 1, -1},
		{"H is balanced", func(c *Circuit) { c.Add(GateH, 0, 0) }, nil, 1, 0},
		{"RY(pi) flips", func(c *Circuit) { c.AddRotation(GateRY, 0, 0) }, []float64{math.Pi}, 1, -1},
		{"RX(pi/2) balanced", func(c *Circuit) { c.AddRotation(GateRX, 0, 0) }, []float64{math.Pi / 2}, 1, 0},
		{"RZ keeps Z", func(c *Circuit) { c.AddRotation(GateRZ, 0, 0) }, []float64{1.234}, 1, 1},
		{"Bell ZZ", func(c *Circuit) {
			c.Add(GateH, 0, 0)
			c.AddControlled(GateCX, 0, 1, 1)
		}, nil, 0b11, 1},
		{"Bell Z1", func(c *Circuit) {
			c.Add(GateH, 0, 0)
			c.AddControlled(GateCX, 0, 1, 1)
		}, nil, 0b10, 0},
	}

	e := NewEvaluator(testLogger())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCircuit("test", 2, 1)
			tt.build(c)
			params := tt.params
			if params == nil {
				params = []float64{}
			}
			state, err := e.Simulate(c, params)
			require.NoError(t, err)
			assert.InDelta(t, 1.0, state.Norm(), 1e-12)
			assert.InDelta(t, tt.want, state.ExpectationZ(tt.mask), 1e-12)
		})
	}
}

func TestStateVector_CZPhase(t *testing.T) {
	s := NewStateVector(2)
	s.Apply(Gate{Type: GateX, Target: 0, Control: -1, Param: -1}, 0)
	s.Apply(Gate{Type: GateX, Target: 1, Control: -1, Param: -1}, 0)
	s.Apply(Gate{Type: GateCZ, Target: 1, Control: 0, Param: -1}, 0)
	assert.Equal(t, complex(-1, 0), s.Amplitudes[3])
}

func TestEvaluateDetailed_Variance(t *testing.T) {
	e := NewEvaluator(testLogger())
	c := NewCircuit("h", 1, 1)
	c.Add(GateH, 0, 0)

	est, err := e.EvaluateDetailed(c, []float64{}, zHamiltonian(1, zTerm(2.0, 0)))
	require.NoError(t, err)
	assert.InDelta(t, 0.0, est.Energy, 1e-12)
	assert.InDelta(t, 4.0, est.Variance, 1e-12)
	assert.Equal(t, 1, est.Terms)
}

func TestEvaluate_ConstantTermsShiftEnergy(t *testing.T) {
	e := NewEvaluator(testLogger())
	c := NewCircuit("empty", 1, 1)

	h := zHamiltonian(1, zTerm(3.0, 0), hamiltonian.Term{Family: hamiltonian.Interaction, Coefficient: -0.5})
	est, err := e.EvaluateDetailed(c, []float64{}, h)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, est.Energy, 1e-12)
	assert.InDelta(t, 0.0, est.Variance, 1e-12)
}

func TestEvaluate_TruncatesTerms(t *testing.T) {
	c := NewCircuit("empty", 1, 1)
	h := zHamiltonian(1, zTerm(1, 0), zTerm(1, 0), zTerm(1, 0))

	full, err := NewEvaluator(testLogger(), WithMaxTerms(0)).Evaluate(c, []float64{}, h)
	require.NoError(t, err)
	capped, err := NewEvaluator(testLogger(), WithMaxTerms(2)).Evaluate(c, []float64{}, h)
	require.NoError(t, err)

	assert.InDelta(t, 3.0, full, 1e-12)
	assert.InDelta(t, 2.0, capped, 1e-12)
}

func TestEvaluate_Errors(t *testing.T) {
	e := NewEvaluator(testLogger())
	c := NewCircuit("rot", 1, 1)
	c.AddRotation(GateRY, 0, 0)
	h := zHamiltonian(1, zTerm(1, 0))

	_, err := e.Evaluate(c, []float64{}, h)
	assert.Equal(t, domain.KindConfiguration, domain.KindOf(err))

	_, err = e.Evaluate(c, []float64{math.NaN()}, h)
	assert.Equal(t, domain.KindEvaluationNumeric, domain.KindOf(err))

	_, err = e.Evaluate(c, []float64{0}, zHamiltonian(2, zTerm(1, 1)))
	assert.Equal(t, domain.KindConfiguration, domain.KindOf(err))

	_, err = e.Evaluate(c, []float64{0}, nil)
	assert.Equal(t, domain.KindConfiguration, domain.KindOf(err))
}

func TestEvaluate_ParallelMatchesSerial(t *testing.T) {
	enc := lattice.Encode("ACDEF")
	h, err := hamiltonian.NewBuilder(testLogger()).Build(enc)
	require.NoError(t, err)

	c := NewCircuit("layered", enc.QubitCount, 1)
	for q := 0; q < enc.QubitCount; q++ {
		c.Add(GateH, q, 0)
		c.AddRotation(GateRY, q, 1)
	}
	for q := 0; q+1 < enc.QubitCount; q++ {
		c.AddControlled(GateCX, q, q+1, 2)
	}
	params := make([]float64, c.ParameterCount)
	for i := range params {
		params[i] = 0.1 * float64(i+1)
	}

	serial, err := NewEvaluator(testLogger(), WithParallelQubits(64)).EvaluateDetailed(c, params, h)
	require.NoError(t, err)
	parallel, err := NewEvaluator(testLogger(), WithParallelQubits(1), WithWorkers(4)).EvaluateDetailed(c, params, h)
	require.NoError(t, err)

	assert.InDelta(t, serial.Energy, parallel.Energy, 1e-9)
	assert.InDelta(t, serial.Variance, parallel.Variance, 1e-9)
}

func TestMostLikely(t *testing.T) {
	e := NewEvaluator(testLogger())
	c := NewCircuit("x", 3, 1)
	c.Add(GateX, 1, 0)

	out, err := e.MostLikely(c, []float64{})
	require.NoError(t, err)
	assert.Equal(t, "010", out.Bitstring)
	assert.InDelta(t, 1.0, out.Probability, 1e-12)
}

func TestCircuit_Validate(t *testing.T) {
	c := NewCircuit("bad", 2, 1)
	c.Add(GateH, 2, 0)
	assert.Equal(t, domain.KindConfiguration, domain.KindOf(c.Validate()))

	c = NewCircuit("bad-control", 2, 1)
	c.AddControlled(GateCX, 1, 1, 0)
	assert.Error(t, c.Validate())

	c = NewCircuit("ok", 2, 1)
	c.AddRotation(GateRY, 0, 0)
	c.AddControlled(GateCZ, 0, 1, 1)
	require.NoError(t, c.Validate())
	assert.Equal(t, 2, c.Layers)
	assert.Equal(t, 1, c.GateCounts()[GateCZ])
}

func TestBitstring(t *testing.T) {
	assert.Equal(t, "0001", Bitstring(1, 4))
	assert.Equal(t, "1010", Bitstring(10, 4))
	assert.Equal(t, "", Bitstring(0, 0))
}
