package optimization

import (
	"fmt"
	"math"

	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/latticefold/internal/domain"
	"github.com/aristath/latticefold/internal/modules/quantum"
)

const (
	// DefaultMaxQubits is the hard simulation ceiling.
	DefaultMaxQubits = quantum.MaxQubits
	// DefaultHighResourceGB triggers the high-resource warning.
	DefaultHighResourceGB = 8.0

	bytesPerAmplitude = 16
	gib               = 1024 * 1024 * 1024
)

// MemoryProbe reports host memory. Replaced in tests.
type MemoryProbe func() (*mem.VirtualMemoryStat, error)

// RequiredBytes is 2^qubits * 16, the size of a complex128 state vector.
func RequiredBytes(qubits int) float64 {
	return math.Pow(2, float64(qubits)) * bytesPerAmplitude
}

// checkResources gates a run on the state-vector size. A qubit count above
// maxQubits is fatal; a large but feasible state yields warnings only.
func (l *Loop) checkResources(qubits int) (ResourceEstimate, []string, error) {
	const op = "optimization.checkResources"

	est := ResourceEstimate{
		Qubits:        qubits,
		RequiredBytes: RequiredBytes(qubits),
	}
	est.RequiredGB = est.RequiredBytes / gib

	if qubits > l.maxQubits {
		return est, nil, domain.ResourceInfeasible(op, est.RequiredGB,
			"%d qubits need %.3f GB for the state vector; the simulation ceiling is %d qubits",
			qubits, est.RequiredGB, l.maxQubits)
	}

	var warnings []string
	if est.RequiredGB >= l.highResourceGB {
		warnings = append(warnings, fmt.Sprintf("high memory usage: %.3f GB state vector for %d qubits", est.RequiredGB, qubits))
	}

	if l.memProbe != nil {
		vm, err := l.memProbe()
		if err != nil {
			l.log.Debug().Err(err).Msg("Host memory probe failed")
		} else if vm != nil {
			est.HostTotalGB = float64(vm.Total) / gib
			est.HostAvailableGB = float64(vm.Available) / gib
			if vm.Available > 0 && est.RequiredBytes > float64(vm.Available) {
				warnings = append(warnings, fmt.Sprintf("state vector (%.3f GB) exceeds available host memory (%.3f GB)", est.RequiredGB, est.HostAvailableGB))
			}
		}
	}

	return est, warnings, nil
}
