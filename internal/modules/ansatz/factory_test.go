package ansatz

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/latticefold/internal/domain"
	"github.com/aristath/latticefold/internal/modules/quantum"
)

func newTestFactory() *Factory {
	return NewFactory(zerolog.New(nil).Level(zerolog.Disabled))
}

func TestParseVariant(t *testing.T) {
	tests := []struct {
		name string
		want Variant
	}{
		{"hardware_efficient", HardwareEfficient},
		{"EfficientSU2", HardwareEfficient},
		{"two-local", TwoLocal},
		{"TwoLocal", TwoLocal},
		{"custom", Custom},
		{" custom-protein-aware ", Custom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ParseVariant(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}

	_, err := ParseVariant("qaoa")
	assert.Equal(t, domain.KindConfiguration, domain.KindOf(err))
}

func expectedParameters(qubits int, variant Variant, reps int) int {
	if variant == Custom {
		return qubits * reps * 2
	}
	return 2 * qubits * (reps + 1)
}

func TestBuild_ParameterCounts(t *testing.T) {
	f := newTestFactory()

	for _, v := range Variants {
		for _, qubits := range []int{2, 4, 6} {
			for _, reps := range []int{1, 2, 3} {
				c, params, err := f.Build(qubits, v, reps)
				require.NoError(t, err)
				assert.Equal(t, expectedParameters(qubits, v, reps), c.ParameterCount, "%s q=%d r=%d", v, qubits, reps)
				assert.Len(t, params, c.ParameterCount)
				require.NoError(t, c.Validate())
			}
		}
	}

	c, _, err := f.Build(6, Custom, 3)
	require.NoError(t, err)
	assert.Equal(t, 6*3*2, c.ParameterCount)
}

func TestBuild_SuperpositionAndMeasurement(t *testing.T) {
	c, _, err := newTestFactory().Build(4, HardwareEfficient, 1)
	require.NoError(t, err)

	for q := 0; q < 4; q++ {
		assert.Equal(t, quantum.GateH, c.Gates[q].Type)
		assert.Equal(t, q, c.Gates[q].Target)
	}
	tail := c.Gates[len(c.Gates)-4:]
	for _, g := range tail {
		assert.Equal(t, quantum.GateMeasure, g.Type)
	}
	assert.Equal(t, 4, c.GateCounts()[quantum.GateH])
}

func TestBuild_CustomLayout(t *testing.T) {
	c, _, err := newTestFactory().Build(4, Custom, 1)
	require.NoError(t, err)

	var cx [][2]int
	for _, g := range c.Gates {
		if g.Type == quantum.GateCX {
			cx = append(cx, [2]int{g.Control, g.Target})
		}
	}
	assert.Equal(t, [][2]int{{0, 1}, {2, 3}, {1, 2}}, cx)
}

func TestBuild_TwoLocalAxes(t *testing.T) {
	c, _, err := newTestFactory().Build(2, TwoLocal, 1, WithRotationAxes(quantum.GateRX, quantum.GateRY))
	require.NoError(t, err)

	counts := c.GateCounts()
	assert.Equal(t, 4, counts[quantum.GateRX])
	assert.Equal(t, 4, counts[quantum.GateRY])
	assert.Equal(t, 0, counts[quantum.GateRZ])
	assert.Equal(t, 1, counts[quantum.GateCX])
	assert.Equal(t, 0, counts[quantum.GateCZ])

	c, _, err = newTestFactory().Build(3, TwoLocal, 2, WithEntangler(quantum.GateCZ))
	require.NoError(t, err)
	counts = c.GateCounts()
	assert.Equal(t, 4, counts[quantum.GateCZ])
	assert.Equal(t, 0, counts[quantum.GateCX])

	_, _, err = newTestFactory().Build(2, TwoLocal, 1, WithEntangler(quantum.GateRY))
	assert.True(t, errors.Is(err, domain.ErrConfiguration))

	_, _, err = newTestFactory().Build(2, TwoLocal, 1, WithRotationAxes(quantum.GateRX, quantum.GateRX))
	assert.Error(t, err)
	_, _, err = newTestFactory().Build(2, TwoLocal, 1, WithRotationAxes(quantum.GateH, quantum.GateRX))
	assert.Error(t, err)
}

func TestBuild_InitialParameters(t *testing.T) {
	f := newTestFactory()

	_, a, err := f.Build(4, Custom, 2, WithSeed(7))
	require.NoError(t, err)
	_, b, err := f.Build(4, Custom, 2, WithSeed(7))
	require.NoError(t, err)
	assert.Equal(t, a, b)
	for _, p := range a {
		assert.LessOrEqual(t, p, DefaultInitScale)
		assert.GreaterOrEqual(t, p, -DefaultInitScale)
	}

	_, z, err := f.Build(4, Custom, 2, WithZeroInit())
	require.NoError(t, err)
	for _, p := range z {
		assert.Zero(t, p)
	}
}

func TestBuild_Errors(t *testing.T) {
	f := newTestFactory()

	_, _, err := f.Build(4, Variant("bogus"), 1)
	assert.Equal(t, domain.KindConfiguration, domain.KindOf(err))

	_, _, err = f.Build(4, Custom, 0)
	assert.Equal(t, domain.KindConfiguration, domain.KindOf(err))

	_, _, err = f.Build(quantum.MaxQubits+2, Custom, 1)
	assert.Equal(t, domain.KindConfiguration, domain.KindOf(err))
}

func TestBuild_ZeroQubits(t *testing.T) {
	c, params, err := newTestFactory().Build(0, HardwareEfficient, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, c.ParameterCount)
	assert.Empty(t, params)
}
