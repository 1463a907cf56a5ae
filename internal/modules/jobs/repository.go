package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/latticefold/internal/domain"
	"github.com/aristath/latticefold/internal/modules/export"
	"github.com/aristath/latticefold/internal/modules/optimization"
)

// DefaultListLimit bounds List when the caller passes a non-positive limit.
const DefaultListLimit = 50

// Repository persists prediction reports. The convergence trace is stored as
// a msgpack blob next to the JSON report.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a repository over an already migrated database.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "reports").Logger(),
	}
}

// Save inserts or replaces a report.
func (r *Repository) Save(ctx context.Context, report *export.Report, trace []optimization.Record) error {
	if report == nil || report.ID == "" {
		return domain.InvalidInput("jobs.Save", "id", "report id is required")
	}

	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	traceBlob, err := msgpack.Marshal(trace)
	if err != nil {
		return fmt.Errorf("failed to encode trace: %w", err)
	}

	query := `
		INSERT OR REPLACE INTO reports
		(id, sequence, length, qubits, energy, variance, iterations, evaluations,
		 valid_structure, radius_of_gyration, ansatz, optimizer, repetitions, state,
		 bitstring, most_likely_bitstring, report_json, trace, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	valid := 0
	if report.ValidStructure {
		valid = 1
	}
	_, err = r.db.ExecContext(ctx, query,
		report.ID,
		report.Sequence,
		report.Length,
		report.Qubits,
		report.Energy,
		report.Variance,
		report.Iterations,
		report.Evaluations,
		valid,
		report.RadiusOfGyration,
		report.Ansatz,
		report.Optimizer,
		report.Repetitions,
		report.State,
		report.Bitstring,
		report.MostLikelyBitstring,
		reportJSON,
		traceBlob,
		report.DurationMS,
		report.Timestamp.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save report %s: %w", report.ID, err)
	}

	r.log.Debug().Str("id", report.ID).Str("sequence", report.Sequence).Msg("Report saved")
	return nil
}

// Get loads a report and its trace.
func (r *Repository) Get(ctx context.Context, id string) (*export.Report, []optimization.Record, error) {
	var reportJSON, traceBlob []byte
	err := r.db.QueryRowContext(ctx, `SELECT report_json, trace FROM reports WHERE id = ?`, id).Scan(&reportJSON, &traceBlob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, domain.NotFound("jobs.Get", "report "+id)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load report %s: %w", id, err)
	}

	var report export.Report
	if err := json.Unmarshal(reportJSON, &report); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal report %s: %w", id, err)
	}
	var trace []optimization.Record
	if len(traceBlob) > 0 {
		if err := msgpack.Unmarshal(traceBlob, &trace); err != nil {
			return nil, nil, fmt.Errorf("failed to decode trace for %s: %w", id, err)
		}
	}
	return &report, trace, nil
}

// List returns the most recent reports, newest first. An empty sequence
// matches all.
func (r *Repository) List(ctx context.Context, sequence string, limit int) ([]export.Report, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `SELECT report_json FROM reports ORDER BY created_at DESC, id LIMIT ?`
	args := []interface{}{limit}
	if sequence != "" {
		query = `SELECT report_json FROM reports WHERE sequence = ? ORDER BY created_at DESC, id LIMIT ?`
		args = []interface{}{sequence, limit}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	reports := make([]export.Report, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		var rep export.Report
		if err := json.Unmarshal(raw, &rep); err != nil {
			return nil, fmt.Errorf("failed to unmarshal report: %w", err)
		}
		reports = append(reports, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reports: %w", err)
	}
	return reports, nil
}

// DeleteBefore removes reports created before cutoff.
func (r *Repository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reports WHERE created_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete reports: %w", err)
	}
	return res.RowsAffected()
}
