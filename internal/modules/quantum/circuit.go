package quantum

import (
	"fmt"

	"github.com/aristath/latticefold/internal/domain"
)

// GateType names a gate the simulator understands.
type GateType string

const (
	GateH       GateType = "H"
	GateX       GateType = "X"
	GateRX      GateType = "RX"
	GateRY      GateType = "RY"
	GateRZ      GateType = "RZ"
	GateCX      GateType = "CX"
	GateCZ      GateType = "CZ"
	GateMeasure GateType = "MEASURE"
)

// IsRotation reports whether the gate takes an angle.
func (g GateType) IsRotation() bool {
	return g == GateRX || g == GateRY || g == GateRZ
}

// IsControlled reports whether the gate needs a control qubit.
func (g GateType) IsControlled() bool {
	return g == GateCX || g == GateCZ
}

// Gate is one gate placed on the circuit.
type Gate struct {
	Type    GateType `json:"type"`
	Target  int      `json:"target"`
	Control int      `json:"control"` // -1 if not a controlled gate
	Param   int      `json:"param"`   // index into the parameter vector, -1 if fixed
	Layer   int      `json:"layer"`   // position in the circuit timeline
}

// Circuit is a parameterised circuit description. It holds parameter
// references, not values.
type Circuit struct {
	Name           string `json:"name"`
	QubitCount     int    `json:"qubit_count"`
	Repetitions    int    `json:"repetitions"`
	ParameterCount int    `json:"parameter_count"`
	Gates          []Gate `json:"gates"`
	Layers         int    `json:"layers"`
}

// NewCircuit creates an empty circuit over n qubits.
func NewCircuit(name string, n, reps int) *Circuit {
	return &Circuit{Name: name, QubitCount: n, Repetitions: reps}
}

// Add appends a fixed single-qubit gate.
func (c *Circuit) Add(t GateType, target, layer int) {
	c.append(Gate{Type: t, Target: target, Control: -1, Param: -1, Layer: layer})
}

// AddRotation appends a rotation bound to the next free parameter and
// returns that parameter's index.
func (c *Circuit) AddRotation(t GateType, target, layer int) int {
	idx := c.ParameterCount
	c.ParameterCount++
	c.append(Gate{Type: t, Target: target, Control: -1, Param: idx, Layer: layer})
	return idx
}

// AddControlled appends a two-qubit gate.
func (c *Circuit) AddControlled(t GateType, control, target, layer int) {
	c.append(Gate{Type: t, Target: target, Control: control, Param: -1, Layer: layer})
}

func (c *Circuit) append(g Gate) {
	c.Gates = append(c.Gates, g)
	if g.Layer >= c.Layers {
		c.Layers = g.Layer + 1
	}
}

// GateCounts returns how many gates of each type the circuit holds.
func (c *Circuit) GateCounts() map[GateType]int {
	counts := make(map[GateType]int)
	for _, g := range c.Gates {
		counts[g.Type]++
	}
	return counts
}

// Validate checks qubit indices and parameter references.
func (c *Circuit) Validate() error {
	const op = "quantum.Circuit.Validate"

	if c.QubitCount < 0 || c.QubitCount > MaxQubits {
		return domain.ConfigurationError(op, "qubit_count", "qubit count %d out of range [0, %d]", c.QubitCount, MaxQubits)
	}
	for i, g := range c.Gates {
		if g.Target < 0 || g.Target >= c.QubitCount {
			return domain.ConfigurationError(op, "gates", "gate %d (%s) targets qubit %d of %d", i, g.Type, g.Target, c.QubitCount)
		}
		if g.Type.IsControlled() {
			if g.Control < 0 || g.Control >= c.QubitCount || g.Control == g.Target {
				return domain.ConfigurationError(op, "gates", "gate %d (%s) has invalid control %d", i, g.Type, g.Control)
			}
		}
		if g.Type.IsRotation() && g.Param >= c.ParameterCount {
			return domain.ConfigurationError(op, "gates", "gate %d references parameter %d of %d", i, g.Param, c.ParameterCount)
		}
	}
	return nil
}

func (c *Circuit) String() string {
	return fmt.Sprintf("%s(qubits=%d, reps=%d, params=%d, gates=%d, layers=%d)",
		c.Name, c.QubitCount, c.Repetitions, c.ParameterCount, len(c.Gates), c.Layers)
}
