// Package handlers provides HTTP handlers for prediction jobs and reports.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/latticefold/internal/domain"
	"github.com/aristath/latticefold/internal/modules/export"
	"github.com/aristath/latticefold/internal/modules/jobs"
	"github.com/aristath/latticefold/internal/modules/optimization"
	"github.com/aristath/latticefold/internal/modules/prediction"
	"github.com/aristath/latticefold/internal/modules/sequence"
)

// ReportLister reads persisted reports.
type ReportLister interface {
	List(ctx context.Context, sequence string, limit int) ([]export.Report, error)
	Get(ctx context.Context, id string) (*export.Report, []optimization.Record, error)
}

// Handler handles prediction HTTP requests. Jobs run in the background on
// a context owned by the handler, cancelled by Shutdown.
type Handler struct {
	service  *prediction.Service
	registry *jobs.Registry
	reports  ReportLister
	defaults prediction.Config
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	origins  []string
	log      zerolog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithOriginPatterns lists the cross-origin hosts allowed to open trace
// streams. Without patterns only same-origin upgrades are accepted.
func WithOriginPatterns(patterns ...string) Option {
	return func(h *Handler) { h.origins = append(h.origins, patterns...) }
}

// NewHandler creates a new prediction handler. reports may be nil when no
// database is configured.
func NewHandler(
	service *prediction.Service,
	registry *jobs.Registry,
	reports ReportLister,
	defaults prediction.Config,
	log zerolog.Logger,
	opts ...Option,
) *Handler {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Handler{
		service:  service,
		registry: registry,
		reports:  reports,
		defaults: defaults,
		ctx:      ctx,
		cancel:   cancel,
		log:      log.With().Str("handler", "prediction").Logger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Shutdown cancels running jobs and waits for them to record their outcome
// or for ctx to expire.
func (h *Handler) Shutdown(ctx context.Context) error {
	h.cancel()
	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until every background job has finished.
func (h *Handler) Wait() { h.wg.Wait() }

// PredictRequest is the body of POST /api/predictions. Zero-valued fields
// take the service defaults.
type PredictRequest struct {
	Sequence          string `json:"sequence"`
	Ansatz            string `json:"ansatz,omitempty"`
	Optimizer         string `json:"optimizer,omitempty"`
	MaxIterations     int    `json:"max_iterations,omitempty"`
	Repetitions       int    `json:"repetitions,omitempty"`
	Seed              *int64 `json:"seed,omitempty"`
	MaxEvaluatedTerms int    `json:"max_evaluated_terms,omitempty"`
}

// BatchRequest is the body of POST /api/predictions/batch.
type BatchRequest struct {
	Sequences []string `json:"sequences"`
	PredictRequest
}

func (h *Handler) configFor(req PredictRequest) prediction.Config {
	cfg := h.defaults
	if req.Ansatz != "" {
		cfg.Ansatz = req.Ansatz
	}
	if req.Optimizer != "" {
		cfg.Optimizer = req.Optimizer
	}
	if req.MaxIterations != 0 {
		cfg.MaxIterations = req.MaxIterations
	}
	if req.Repetitions != 0 {
		cfg.Repetitions = req.Repetitions
	}
	if req.Seed != nil {
		cfg.Seed = *req.Seed
	}
	if req.MaxEvaluatedTerms != 0 {
		cfg.MaxEvaluatedTerms = req.MaxEvaluatedTerms
	}
	return cfg
}

// submit validates and starts one job.
func (h *Handler) submit(raw string, cfg prediction.Config) (jobs.Job, error) {
	if err := cfg.Validate(); err != nil {
		return jobs.Job{}, err
	}
	seq, err := h.service.Validator().Validate(raw)
	if err != nil {
		return jobs.Job{}, err
	}
	if err := h.service.Admit(sequence.QubitCount(seq.Len())); err != nil {
		return jobs.Job{}, err
	}

	job := h.registry.Create(string(seq))
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.run(job.ID, string(seq), cfg)
	}()
	return job, nil
}

func (h *Handler) run(id, seq string, cfg prediction.Config) {
	res, err := h.service.Predict(h.ctx, seq, cfg,
		prediction.WithID(id),
		prediction.WithProgress(func(r optimization.Record) {
			if err := h.registry.Append(id, r); err != nil {
				h.log.Debug().Err(err).Str("job_id", id).Msg("Dropped progress record")
			}
		}),
	)
	if err != nil {
		var trace []optimization.Record
		if res != nil && res.Optimization != nil {
			trace = res.Optimization.Trace
		}
		if ferr := h.registry.Fail(id, err, trace); ferr != nil {
			h.log.Error().Err(ferr).Str("job_id", id).Msg("Failed to record job failure")
		}
		return
	}
	if cerr := h.registry.Complete(id, res.Report, res.Optimization.Trace, res.PDB); cerr != nil {
		h.log.Error().Err(cerr).Str("job_id", id).Msg("Failed to record job completion")
	}
}

// HandleCreatePrediction handles POST /api/predictions
func (h *Handler) HandleCreatePrediction(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	job, err := h.submit(req.Sequence, h.configFor(req))
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id":   job.ID,
		"sequence": job.Sequence,
		"status":   job.Status,
	})
}

// HandleBatchPrediction handles POST /api/predictions/batch. Each sequence
// becomes its own job; rejected sequences report their error instead.
func (h *Handler) HandleBatchPrediction(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Sequences) == 0 {
		h.writeError(w, domain.InvalidInput("predictions.batch", "sequences", "at least one sequence is required"))
		return
	}

	cfg := h.configFor(req.PredictRequest)
	if err := cfg.Validate(); err != nil {
		h.writeError(w, err)
		return
	}

	type entry struct {
		JobID string `json:"job_id,omitempty"`
		Error string `json:"error,omitempty"`
	}
	out := make(map[string]entry, len(req.Sequences))
	for _, raw := range req.Sequences {
		if _, ok := out[raw]; ok {
			continue
		}
		job, err := h.submit(raw, cfg)
		if err != nil {
			out[raw] = entry{Error: err.Error()}
			continue
		}
		out[raw] = entry{JobID: job.ID}
	}

	h.writeJSON(w, http.StatusAccepted, map[string]interface{}{"jobs": out})
}

// HandleGetPrediction handles GET /api/predictions/{id}
func (h *Handler) HandleGetPrediction(w http.ResponseWriter, r *http.Request) {
	job, err := h.registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"job":          job,
		"trace_length": len(job.Trace),
	})
}

// HandleGetPDB handles GET /api/predictions/{id}/pdb
func (h *Handler) HandleGetPDB(w http.ResponseWriter, r *http.Request) {
	job, err := h.registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if job.Status != jobs.StatusCompleted {
		http.Error(w, "structure not available: job is "+string(job.Status), http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+job.Sequence+"_structure.pdb\"")
	_, _ = w.Write([]byte(job.PDB))
}

// HandleGetTrace handles GET /api/predictions/{id}/trace
func (h *Handler) HandleGetTrace(w http.ResponseWriter, r *http.Request) {
	job, err := h.registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"job_id": job.ID,
		"status": job.Status,
		"trace":  job.Trace,
	})
}

// HandleListReports handles GET /api/reports?limit=&sequence=
func (h *Handler) HandleListReports(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		http.Error(w, "report storage is not configured", http.StatusServiceUnavailable)
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	reports, err := h.reports.List(r.Context(), r.URL.Query().Get("sequence"), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"reports": reports,
		"count":   len(reports),
	})
}

// HandleGetReport handles GET /api/reports/{id}
func (h *Handler) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		http.Error(w, "report storage is not configured", http.StatusServiceUnavailable)
		return
	}

	report, trace, err := h.reports.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"report": report,
		"trace":  trace,
	})
}

// StatusFor maps an error kind to an HTTP status code.
func StatusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindInvalidInput, domain.KindConfiguration:
		return http.StatusBadRequest
	case domain.KindResourceInfeasible:
		return http.StatusUnprocessableEntity
	case domain.KindNotFound:
		return http.StatusNotFound
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("Request failed")
	}

	body := map[string]interface{}{
		"error": err.Error(),
		"kind":  domain.KindOf(err).String(),
	}
	if gb, ok := domain.MemoryEstimateOf(err); ok {
		body["memory_gb"] = gb
	}
	h.writeJSON(w, status, body)
}

// writeJSON writes data wrapped in the {data, metadata} envelope
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
