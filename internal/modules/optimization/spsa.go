package optimization

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// spsa is simultaneous perturbation stochastic approximation. Each iteration
// spends two unrecorded probe evaluations on a random ±1 perturbation, steps
// along the resulting gradient estimate and records the new point.
type spsa struct {
	a, c         float64 // step and perturbation magnitudes
	alpha, gamma float64 // gain decay exponents
	stability    float64 // fraction of the budget added to the step denominator
	seed         int64
	tolerance    float64
	patience     int
}

func newSPSA(seed int64, tolerance float64) *spsa {
	return &spsa{
		a:         0.2,
		c:         0.1,
		alpha:     0.602,
		gamma:     0.101,
		stability: 0.1,
		seed:      seed,
		tolerance: tolerance,
		patience:  25,
	}
}

func (m *spsa) name() string { return string(StochasticPerturbation) }

func (m *spsa) minimize(s *session, x0 []float64) (outcome, error) {
	rng := rand.New(rand.NewSource(m.seed))
	n := len(x0)

	theta := make([]float64, n)
	copy(theta, x0)
	delta := make([]float64, n)
	plus := make([]float64, n)
	minus := make([]float64, n)

	bigA := m.stability * float64(s.maxIter)
	prev := math.Inf(1)
	stall := 0

	for k := 0; !s.exhausted(); k++ {
		if err := s.halted(); err != nil {
			return outcome{status: "halted"}, err
		}

		ak := m.a / math.Pow(float64(k+1)+bigA, m.alpha)
		ck := m.c / math.Pow(float64(k+1), m.gamma)

		for i := range delta {
			if rng.Intn(2) == 0 {
				delta[i] = -1
			} else {
				delta[i] = 1
			}
		}

		copy(plus, theta)
		floats.AddScaled(plus, ck, delta)
		copy(minus, theta)
		floats.AddScaled(minus, -ck, delta)

		yPlus := s.evaluate(plus, false)
		yMinus := s.evaluate(minus, false)
		if s.err != nil {
			return outcome{status: "evaluation_error"}, s.err
		}

		// delta[i] is ±1, so dividing by it equals multiplying by it
		g := (yPlus - yMinus) / (2 * ck)
		floats.AddScaled(theta, -ak*g, delta)

		energy := s.evaluate(theta, true)
		if s.err != nil {
			return outcome{status: "evaluation_error"}, s.err
		}

		if math.Abs(prev-energy) < m.tolerance {
			stall++
			if stall >= m.patience {
				return outcome{status: "FunctionConvergence", converged: true}, nil
			}
		} else {
			stall = 0
		}
		prev = energy
	}

	return outcome{status: "IterationLimit"}, nil
}
