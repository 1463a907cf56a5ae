package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/latticefold/internal/modules/lattice"
	"github.com/aristath/latticefold/internal/modules/optimization"
	"github.com/aristath/latticefold/internal/modules/structure"
)

func TestWriter_Write(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "results")
	w := NewWriter(dir, zerolog.New(nil).Level(zerolog.Disabled))

	enc := lattice.Encode("GY")
	conf, err := structure.NewDecoder().Decode(2, -20, enc)
	require.NoError(t, err)

	report := &Report{
		Sequence:  "GY",
		Length:    2,
		Qubits:    2,
		Energy:    -20,
		Ansatz:    "custom",
		Optimizer: "cobyla",
		Timestamp: time.Now(),
	}
	files, err := w.Write(Bundle{
		Report:       report,
		Conformation: conf,
		Trace:        []optimization.Record{{Iteration: 1, Energy: -20}},
	})
	require.NoError(t, err)

	assert.Equal(t, Paths(dir, "GY"), files)
	assert.Equal(t, files, report.Files)
	for _, p := range []string{files.PDB, files.Structure, files.Convergence, files.Report} {
		info, err := os.Stat(p)
		require.NoError(t, err, p)
		assert.Positive(t, info.Size())
	}

	raw, err := os.ReadFile(files.Report)
	require.NoError(t, err)
	var decoded Report
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "GY", decoded.Sequence)
	assert.Equal(t, files.PDB, decoded.Files.PDB)
}

func TestWriter_RequiresInputs(t *testing.T) {
	w := NewWriter(t.TempDir(), zerolog.New(nil).Level(zerolog.Disabled))
	_, err := w.Write(Bundle{})
	assert.Error(t, err)
}

func TestPaths(t *testing.T) {
	p := Paths("out", "ACD")
	assert.Equal(t, filepath.Join("out", "ACD_structure.pdb"), p.PDB)
	assert.Equal(t, filepath.Join("out", "ACD_report.json"), p.Report)
}
