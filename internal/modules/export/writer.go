package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/aristath/latticefold/internal/modules/optimization"
	"github.com/aristath/latticefold/internal/modules/structure"
)

// Bundle is everything needed to write one prediction's artifacts.
type Bundle struct {
	Report       *Report
	Conformation *structure.Conformation
	Trace        []optimization.Record
}

// Writer writes artifact files under a base directory.
type Writer struct {
	dir string
	log zerolog.Logger
}

// NewWriter creates a writer rooted at dir.
func NewWriter(dir string, log zerolog.Logger) *Writer {
	return &Writer{
		dir: dir,
		log: log.With().Str("component", "export").Logger(),
	}
}

// Dir returns the base output directory.
func (w *Writer) Dir() string { return w.dir }

// Paths returns the artifact paths for a sequence under dir.
func Paths(dir, seq string) Files {
	return Files{
		PDB:         filepath.Join(dir, seq+"_structure.pdb"),
		Structure:   filepath.Join(dir, seq+"_structure.json"),
		Convergence: filepath.Join(dir, seq+"_convergence.csv"),
		Report:      filepath.Join(dir, seq+"_report.json"),
	}
}

// Write writes the PDB, structure, convergence and report files and records
// their paths on b.Report.
func (w *Writer) Write(b Bundle) (Files, error) {
	if b.Report == nil || b.Conformation == nil {
		return Files{}, fmt.Errorf("export: report and conformation are required")
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return Files{}, fmt.Errorf("export: failed to create output directory: %w", err)
	}

	files := Paths(w.dir, b.Report.Sequence)
	b.Report.Files = files

	steps := []struct {
		path  string
		write func(io.Writer) error
	}{
		{files.PDB, func(out io.Writer) error {
			return WritePDB(out, b.Report.Sequence, b.Report.Energy, b.Conformation.Coordinates)
		}},
		{files.Structure, func(out io.Writer) error {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(b.Conformation)
		}},
		{files.Convergence, func(out io.Writer) error {
			return WriteConvergenceCSV(out, b.Trace)
		}},
		{files.Report, func(out io.Writer) error {
			return WriteReport(out, b.Report)
		}},
	}

	for _, s := range steps {
		if err := writeFile(s.path, s.write); err != nil {
			return Files{}, err
		}
	}

	w.log.Info().
		Str("sequence", b.Report.Sequence).
		Str("dir", w.dir).
		Msg("Artifacts written")

	return files, nil
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("export: failed to close %s: %w", path, cerr)
		}
	}()
	if err := write(f); err != nil {
		return fmt.Errorf("export: failed to write %s: %w", path, err)
	}
	return nil
}
