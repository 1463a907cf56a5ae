package optimization

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func traceOf(energies ...float64) []Record {
	trace := make([]Record, len(energies))
	for i, e := range energies {
		trace[i] = Record{Iteration: i + 1, Energy: e}
	}
	return trace
}

func TestSummarize(t *testing.T) {
	s := Summarize(traceOf(4, 2, -1, 0))

	assert.Equal(t, 4, s.Records)
	assert.InDelta(t, 1.25, s.MeanEnergy, 1e-12)
	assert.InDelta(t, 4.0, s.Improvement, 1e-12)
	assert.Equal(t, 3, s.BestIteration)
	// the whole trace fits the tail window
	assert.InDelta(t, s.MeanEnergy, s.TailMean, 1e-12)
}

func TestSummarize_TailWindow(t *testing.T) {
	energies := make([]float64, 0, SummaryWindow+5)
	for i := 0; i < 5; i++ {
		energies = append(energies, 100)
	}
	for i := 0; i < SummaryWindow; i++ {
		energies = append(energies, -3)
	}

	s := Summarize(traceOf(energies...))
	assert.InDelta(t, -3.0, s.TailMean, 1e-12)
	assert.InDelta(t, 0.0, s.TailVariance, 1e-12)
	assert.Equal(t, 6, s.BestIteration)
}

func TestSummarize_Empty(t *testing.T) {
	assert.Equal(t, Summary{}, Summarize(nil))
}
