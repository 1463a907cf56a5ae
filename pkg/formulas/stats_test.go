package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeanStdDevVariance(t *testing.T) {
	data := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	assert.InDelta(t, 5.0, Mean(data), 1e-12)
	// sample variance
	assert.InDelta(t, 32.0/7.0, Variance(data), 1e-12)
	assert.InDelta(t, math.Sqrt(32.0/7.0), StdDev(data), 1e-12)
}

func TestEmptyInputs(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 0.0, StdDev([]float64{1}))
	assert.Equal(t, 0.0, Variance(nil))

	v, idx := Min(nil)
	assert.True(t, math.IsInf(v, 1))
	assert.Equal(t, -1, idx)
}

func TestMin(t *testing.T) {
	v, idx := Min([]float64{3, -1.5, 2, -1.5})
	assert.Equal(t, -1.5, v)
	assert.Equal(t, 1, idx)
}

func TestImprovement(t *testing.T) {
	assert.InDelta(t, 4.0, Improvement([]float64{1, 0, -3}), 1e-12)
	assert.Equal(t, 0.0, Improvement([]float64{1}))
}

func TestTail(t *testing.T) {
	data := []float64{1, 2, 3, 4}
	assert.Equal(t, []float64{3, 4}, Tail(data, 2))
	assert.Equal(t, data, Tail(data, 10))
	assert.Empty(t, Tail(data, 0))
}

func TestRunningMin(t *testing.T) {
	assert.Equal(t, []float64{3, 1, 1, 0}, RunningMin([]float64{3, 1, 2, 0}))
	assert.Empty(t, RunningMin(nil))
}

func TestIsFinite(t *testing.T) {
	assert.True(t, IsFinite(1.5))
	assert.False(t, IsFinite(math.NaN()))
	assert.False(t, IsFinite(math.Inf(-1)))
}
