package quantum

import (
	"math"
	"math/bits"
	"math/cmplx"
)

// MaxQubits is the largest register the simulator will allocate.
const MaxQubits = 20

// StateVector holds the 2^n amplitudes of an n-qubit register.
// Qubit k is bit k of the basis index.
type StateVector struct {
	Amplitudes []complex128
	NumQubits  int
}

// NewStateVector returns |0...0>.
func NewStateVector(numQubits int) *StateVector {
	amps := make([]complex128, 1<<uint(numQubits))
	amps[0] = 1
	return &StateVector{Amplitudes: amps, NumQubits: numQubits}
}

// Apply applies one gate with its angle already resolved.
func (s *StateVector) Apply(g Gate, theta float64) {
	switch g.Type {
	case GateH:
		s.applyH(g.Target)
	case GateX:
		s.applyX(g.Target)
	case GateRX:
		s.applyRX(g.Target, theta)
	case GateRY:
		s.applyRY(g.Target, theta)
	case GateRZ:
		s.applyRZ(g.Target, theta)
	case GateCX:
		s.applyCX(g.Control, g.Target)
	case GateCZ:
		s.applyCZ(g.Control, g.Target)
	case GateMeasure:
		// expectation values are taken on the pre-measurement state
	}
}

func (s *StateVector) applyH(q int) {
	f := complex(1.0/math.Sqrt2, 0)
	bit := 1 << uint(q)
	for i := range s.Amplitudes {
		if i&bit == 0 {
			j := i | bit
			a, b := s.Amplitudes[i], s.Amplitudes[j]
			s.Amplitudes[i] = f * (a + b)
			s.Amplitudes[j] = f * (a - b)
		}
	}
}

func (s *StateVector) applyX(q int) {
	bit := 1 << uint(q)
	for i := range s.Amplitudes {
		if i&bit == 0 {
			j := i | bit
			s.Amplitudes[i], s.Amplitudes[j] = s.Amplitudes[j], s.Amplitudes[i]
		}
	}
}

func (s *StateVector) applyRX(q int, theta float64) {
	c := complex(math.Cos(theta/2), 0)
	js := complex(0, -math.Sin(theta/2))
	bit := 1 << uint(q)
	for i := range s.Amplitudes {
		if i&bit == 0 {
			j := i | bit
			a, b := s.Amplitudes[i], s.Amplitudes[j]
			s.Amplitudes[i] = c*a + js*b
			s.Amplitudes[j] = js*a + c*b
		}
	}
}

func (s *StateVector) applyRY(q int, theta float64) {
	c := complex(math.Cos(theta/2), 0)
	sn := complex(math.Sin(theta/2), 0)
	bit := 1 << uint(q)
	for i := range s.Amplitudes {
		if i&bit == 0 {
			j := i | bit
			a, b := s.Amplitudes[i], s.Amplitudes[j]
			s.Amplitudes[i] = c*a - sn*b
			s.Amplitudes[j] = sn*a + c*b
		}
	}
}

func (s *StateVector) applyRZ(q int, theta float64) {
	phase := cmplx.Exp(complex(0, theta/2))
	conj := cmplx.Conj(phase)
	bit := 1 << uint(q)
	for i := range s.Amplitudes {
		if i&bit != 0 {
			s.Amplitudes[i] *= phase
		} else {
			s.Amplitudes[i] *= conj
		}
	}
}

func (s *StateVector) applyCX(control, target int) {
	cBit := 1 << uint(control)
	tBit := 1 << uint(target)
	for i := range s.Amplitudes {
		if i&cBit != 0 && i&tBit == 0 {
			j := i | tBit
			s.Amplitudes[i], s.Amplitudes[j] = s.Amplitudes[j], s.Amplitudes[i]
		}
	}
}

func (s *StateVector) applyCZ(control, target int) {
	mask := 1<<uint(control) | 1<<uint(target)
	for i := range s.Amplitudes {
		if i&mask == mask {
			s.Amplitudes[i] = -s.Amplitudes[i]
		}
	}
}

// Probabilities returns |a_b|^2 for every basis state b.
func (s *StateVector) Probabilities() []float64 {
	probs := make([]float64, len(s.Amplitudes))
	for i, a := range s.Amplitudes {
		probs[i] = real(a)*real(a) + imag(a)*imag(a)
	}
	return probs
}

// Norm returns the squared norm of the state; 1 for a valid state.
func (s *StateVector) Norm() float64 {
	n := 0.0
	for _, a := range s.Amplitudes {
		n += real(a)*real(a) + imag(a)*imag(a)
	}
	return n
}

// ExpectationZ returns <psi|Z^mask|psi>.
func (s *StateVector) ExpectationZ(mask uint64) float64 {
	e := 0.0
	for i, a := range s.Amplitudes {
		p := real(a)*real(a) + imag(a)*imag(a)
		e += p * zSign(uint64(i), mask)
	}
	return e
}

// zSign is the eigenvalue of Z^mask on basis state b.
func zSign(b, mask uint64) float64 {
	if bits.OnesCount64(b&mask)%2 == 1 {
		return -1
	}
	return 1
}

// Bitstring renders basis index b over n qubits with qubit 0 rightmost.
func Bitstring(b, n int) string {
	out := make([]byte, n)
	for q := 0; q < n; q++ {
		if b&(1<<uint(q)) != 0 {
			out[n-1-q] = '1'
		} else {
			out[n-1-q] = '0'
		}
	}
	return string(out)
}
