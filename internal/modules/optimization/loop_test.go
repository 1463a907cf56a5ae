package optimization

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/latticefold/internal/domain"
)

// quadratic is sum((x_i - target_i)^2) over a fake register.
type quadratic struct {
	qubits int
	target []float64
	calls  int
	nanAt  int // return NaN on this call (1-based), 0 disables
	errAt  int
}

func (q *quadratic) QubitCount() int     { return q.qubits }
func (q *quadratic) ParameterCount() int { return len(q.target) }

func (q *quadratic) Evaluate(x []float64) (Evaluation, error) {
	q.calls++
	if q.nanAt > 0 && q.calls == q.nanAt {
		return Evaluation{Energy: math.NaN()}, nil
	}
	if q.errAt > 0 && q.calls == q.errAt {
		return Evaluation{}, domain.NumericFailure("test", "boom")
	}
	e := 0.0
	for i, v := range x {
		d := v - q.target[i]
		e += d * d
	}
	return Evaluation{Energy: e, Variance: 0.01}, nil
}

func newTestLoop(opts ...Option) *Loop {
	opts = append([]Option{WithMemoryProbe(nil)}, opts...)
	return NewLoop(zerolog.New(nil).Level(zerolog.Disabled), opts...)
}

func TestParseKind(t *testing.T) {
	tests := map[string]Kind{
		"cobyla":                        DirectSearch,
		"derivative-free-direct-search": DirectSearch,
		"SPSA":                          StochasticPerturbation,
		"stochastic-perturbation":       StochasticPerturbation,
		"slsqp":                         SequentialQuadratic,
		"sequential-quadratic":          SequentialQuadratic,
		"L_BFGS_B":                      QuasiNewtonBounded,
		"quasi-newton-bounded":          QuasiNewtonBounded,
	}
	for name, want := range tests {
		got, err := ParseKind(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseKind("adam")
	assert.Equal(t, domain.KindConfiguration, domain.KindOf(err))
}

func TestRun_EveryKindLowersEnergy(t *testing.T) {
	for _, kind := range Kinds {
		t.Run(string(kind), func(t *testing.T) {
			obj := &quadratic{qubits: 4, target: []float64{0.3, -0.2, 0.5}}
			initial := []float64{1, 1, 1}
			start, _ := obj.Evaluate(initial)
			obj.calls = 0

			res, err := newTestLoop().Run(context.Background(), obj, initial, kind, 300)
			require.NoError(t, err)

			assert.Equal(t, StateConverged, res.State)
			assert.Equal(t, kind, res.Kind)
			require.NotEmpty(t, res.Trace)
			assert.LessOrEqual(t, len(res.Trace), 300)
			assert.Less(t, res.BestEnergy, start.Energy)
			assert.Len(t, res.BestParameters, 3)
			assert.Equal(t, len(res.Trace), res.Iterations)
			assert.GreaterOrEqual(t, res.Evaluations, res.Iterations)

			for i, rec := range res.Trace {
				assert.Equal(t, i+1, rec.Iteration)
				assert.GreaterOrEqual(t, rec.Energy, res.BestEnergy)
			}
		})
	}
}

func TestRun_DirectSearchConvergesOnQuadratic(t *testing.T) {
	obj := &quadratic{qubits: 2, target: []float64{0.3, -0.2}}

	res, err := newTestLoop().Run(context.Background(), obj, []float64{1, 1}, DirectSearch, 500)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, res.BestEnergy, 1e-4)
	assert.InDelta(t, 0.3, res.BestParameters[0], 1e-2)
	assert.InDelta(t, -0.2, res.BestParameters[1], 1e-2)
}

func TestRun_RespectsIterationCap(t *testing.T) {
	for _, kind := range Kinds {
		obj := &quadratic{qubits: 2, target: []float64{5, -5, 5, -5}}
		res, err := newTestLoop().Run(context.Background(), obj, []float64{0, 0, 0, 0}, kind, 7)
		require.NoError(t, err, kind)
		assert.LessOrEqual(t, len(res.Trace), 7, kind)
	}
}

func TestRun_BoundedKeepsAnglesInBox(t *testing.T) {
	obj := &quadratic{qubits: 2, target: []float64{10, -10}}

	res, err := newTestLoop().Run(context.Background(), obj, []float64{0, 0}, QuasiNewtonBounded, 200)
	require.NoError(t, err)
	for _, rec := range res.Trace {
		for _, p := range rec.Parameters {
			assert.LessOrEqual(t, math.Abs(p), AngleBound+1e-12)
		}
	}
	assert.InDelta(t, AngleBound, res.BestParameters[0], 1e-3)
}

func TestRun_ResourceCeiling(t *testing.T) {
	obj := &quadratic{qubits: 21, target: []float64{0}}

	res, err := newTestLoop().Run(context.Background(), obj, []float64{0}, DirectSearch, 10)
	require.Error(t, err)
	require.NotNil(t, res)

	assert.Equal(t, StateAbortedResourceLimit, res.State)
	assert.True(t, errors.Is(err, domain.ErrResourceInfeasible))
	gb, ok := domain.MemoryEstimateOf(err)
	require.True(t, ok)
	assert.InDelta(t, math.Pow(2, 21)*16/math.Pow(2, 30), gb, 1e-15)
	assert.Zero(t, obj.calls)
	assert.Empty(t, res.Trace)
}

func TestAdmit_MaxQubits(t *testing.T) {
	tests := []struct {
		name    string
		option  int
		ceiling int
	}{
		{"lowered", 6, 6},
		{"above simulator limit", 30, DefaultMaxQubits},
		{"zero", 0, DefaultMaxQubits},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLoop(WithMaxQubits(tt.option))
			assert.Equal(t, tt.ceiling, l.MaxQubits())

			_, err := l.Admit(tt.ceiling, DirectSearch)
			assert.NoError(t, err)

			res, err := l.Admit(tt.ceiling+2, DirectSearch)
			assert.True(t, errors.Is(err, domain.ErrResourceInfeasible))
			assert.Equal(t, StateAbortedResourceLimit, res.State)
			assert.Equal(t, RequiredBytes(tt.ceiling+2), res.Resources.RequiredBytes)
		})
	}
}

func TestRun_HighResourceWarning(t *testing.T) {
	probe := func() (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{Total: 1 << 30, Available: 1 << 10}, nil
	}
	l := newTestLoop(WithHighResourceGB(0), WithMemoryProbe(probe))
	obj := &quadratic{qubits: 8, target: []float64{0}}

	res, err := l.Run(context.Background(), obj, []float64{1}, DirectSearch, 5)
	require.NoError(t, err)
	assert.Len(t, res.Warnings, 2)
	assert.InDelta(t, 1.0, res.Resources.HostTotalGB, 1e-12)
	assert.Equal(t, StateConverged, res.State)
}

func TestRun_NumericFailureKeepsTrace(t *testing.T) {
	obj := &quadratic{qubits: 2, target: []float64{0, 0}, nanAt: 3}

	res, err := newTestLoop().Run(context.Background(), obj, []float64{1, 1}, DirectSearch, 50)
	require.Error(t, err)
	assert.Equal(t, domain.KindEvaluationNumeric, domain.KindOf(err))
	assert.Equal(t, StateFailed, res.State)
	assert.Len(t, res.Trace, 2)
	assert.False(t, res.Converged)
}

func TestRun_ObjectiveErrorInSPSA(t *testing.T) {
	obj := &quadratic{qubits: 2, target: []float64{0, 0}, errAt: 4}

	res, err := newTestLoop().Run(context.Background(), obj, []float64{1, 1}, StochasticPerturbation, 50)
	require.Error(t, err)
	assert.Equal(t, StateFailed, res.State)
	// calls 1-2 are probes, call 3 is the first record, call 4 fails
	assert.Len(t, res.Trace, 1)
}

func TestRun_Cancellation(t *testing.T) {
	for _, kind := range Kinds {
		t.Run(string(kind), func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			obj := &quadratic{qubits: 2, target: []float64{3, 3}}
			stopAt := 2
			res, err := newTestLoop().Run(ctx, obj, []float64{0, 0}, kind, 1000, WithProgress(func(r Record) {
				if r.Iteration == stopAt {
					cancel()
				}
			}))
			require.Error(t, err)
			assert.True(t, errors.Is(err, context.Canceled))
			assert.Equal(t, StateFailed, res.State)
			assert.Len(t, res.Trace, stopAt)
		})
	}
}

func TestRun_AlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	obj := &quadratic{qubits: 2, target: []float64{1}}
	res, err := newTestLoop().Run(ctx, obj, []float64{0}, DirectSearch, 10)
	require.Error(t, err)
	assert.Equal(t, StateFailed, res.State)
	assert.Zero(t, obj.calls)
}

func TestRun_ProgressIsOrdered(t *testing.T) {
	obj := &quadratic{qubits: 2, target: []float64{1, 2}}
	var seen []int

	res, err := newTestLoop().Run(context.Background(), obj, []float64{0, 0}, DirectSearch, 40, WithProgress(func(r Record) {
		seen = append(seen, r.Iteration)
	}))
	require.NoError(t, err)
	require.Len(t, seen, len(res.Trace))
	for i, it := range seen {
		assert.Equal(t, i+1, it)
	}
}

func TestRun_ZeroParameters(t *testing.T) {
	obj := &quadratic{qubits: 0, target: nil}

	res, err := newTestLoop().Run(context.Background(), obj, []float64{}, SequentialQuadratic, 10)
	require.NoError(t, err)
	assert.Equal(t, StateConverged, res.State)
	assert.Len(t, res.Trace, 1)
	assert.Equal(t, 0.0, res.BestEnergy)
	assert.Equal(t, "no_parameters", res.MethodStatus)
}

func TestRun_ArgumentErrors(t *testing.T) {
	l := newTestLoop()
	obj := &quadratic{qubits: 2, target: []float64{0, 0}}

	_, err := l.Run(context.Background(), obj, []float64{0, 0}, DirectSearch, 0)
	assert.Equal(t, domain.KindConfiguration, domain.KindOf(err))

	_, err = l.Run(context.Background(), obj, []float64{0}, DirectSearch, 10)
	assert.Equal(t, domain.KindConfiguration, domain.KindOf(err))

	_, err = l.Run(context.Background(), obj, []float64{0, 0}, Kind("newton"), 10)
	assert.Equal(t, domain.KindConfiguration, domain.KindOf(err))

	_, err = l.Run(context.Background(), nil, nil, DirectSearch, 10)
	assert.Error(t, err)
}

func TestRequiredBytes(t *testing.T) {
	assert.Equal(t, 64.0, RequiredBytes(2))
	assert.Equal(t, float64(1<<24), RequiredBytes(20))
}

func TestState_IsTerminal(t *testing.T) {
	assert.False(t, StateReady.IsTerminal())
	assert.False(t, StateEvaluating.IsTerminal())
	assert.True(t, StateConverged.IsTerminal())
	assert.True(t, StateFailed.IsTerminal())
	assert.True(t, StateAbortedResourceLimit.IsTerminal())
}
