package optimization

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"

	"github.com/aristath/latticefold/internal/domain"
)

const (
	// AngleBound is the box applied by the bounded quasi-Newton strategy.
	AngleBound = 2 * math.Pi
	// GradientThreshold stops the gradient strategies once the
	// finite-difference gradient norm falls below it.
	GradientThreshold = 1e-6
)

// method is one optimization strategy: it proposes parameter vectors and
// hands each to the session for scoring.
type method interface {
	name() string
	minimize(s *session, x0 []float64) (outcome, error)
}

func (l *Loop) method(kind Kind) (method, error) {
	switch kind {
	case DirectSearch:
		return &gonumMethod{
			kind:      kind,
			tolerance: l.tolerance,
			newMethod: func() optimize.Method { return &optimize.NelderMead{} },
		}, nil
	case StochasticPerturbation:
		return newSPSA(l.seed, l.tolerance), nil
	case SequentialQuadratic:
		return &gonumMethod{
			kind:      kind,
			tolerance: l.tolerance,
			gradient:  true,
			newMethod: func() optimize.Method { return &optimize.BFGS{} },
		}, nil
	case QuasiNewtonBounded:
		return &gonumMethod{
			kind:      kind,
			tolerance: l.tolerance,
			gradient:  true,
			bounded:   true,
			newMethod: func() optimize.Method { return &optimize.LBFGS{} },
		}, nil
	}
	return nil, domain.ConfigurationError("optimization.Run", "optimizer", "unknown optimizer %q", kind)
}

// gonumMethod adapts a gonum optimize.Method. Gradient methods get a central
// finite-difference gradient whose stencil evaluations are not recorded.
type gonumMethod struct {
	kind      Kind
	tolerance float64
	gradient  bool
	bounded   bool
	newMethod func() optimize.Method
}

func (m *gonumMethod) name() string { return string(m.kind) }

func (m *gonumMethod) project(x []float64) []float64 {
	if !m.bounded {
		return x
	}
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = math.Max(-AngleBound, math.Min(AngleBound, v))
	}
	return out
}

func (m *gonumMethod) minimize(s *session, x0 []float64) (outcome, error) {
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return s.evaluate(m.project(x), true)
		},
		Status: func() (optimize.Status, error) {
			if err := s.halted(); err != nil {
				return optimize.Failure, err
			}
			return optimize.NotTerminated, nil
		},
	}
	if m.gradient {
		probe := func(x []float64) float64 {
			return s.evaluate(m.project(x), false)
		}
		settings := &fd.Settings{Formula: fd.Central, Step: 1e-4}
		problem.Grad = func(grad, x []float64) {
			fd.Gradient(grad, probe, x, settings)
		}
	}

	settings := &optimize.Settings{
		MajorIterations: s.maxIter,
		FuncEvaluations: s.maxIter,
		Converger: &optimize.FunctionConverge{
			Absolute:   m.tolerance,
			Iterations: 25,
		},
	}
	if m.gradient {
		settings.GradientThreshold = GradientThreshold
	}

	result, err := optimize.Minimize(problem, m.project(x0), settings, m.newMethod())
	if result == nil {
		return outcome{status: "error"}, err
	}
	if errors.Is(err, optimize.ErrNoProgress) && s.err == nil {
		// the line search cannot move at finite-difference precision
		return outcome{status: "NoProgress", converged: true}, nil
	}

	out := outcome{status: result.Status.String()}
	switch result.Status {
	case optimize.Success, optimize.FunctionConvergence, optimize.GradientThreshold,
		optimize.StepConvergence, optimize.MethodConverge, optimize.FunctionThreshold:
		out.converged = true
		return out, nil
	case optimize.FunctionEvaluationLimit, optimize.IterationLimit, optimize.RuntimeLimit:
		// budget spent; the best point so far stands
		return out, nil
	}
	if err == nil {
		err = errStatus(result.Status)
	}
	return out, err
}

type errStatus optimize.Status

func (e errStatus) Error() string {
	return "optimizer terminated with status " + optimize.Status(e).String()
}
