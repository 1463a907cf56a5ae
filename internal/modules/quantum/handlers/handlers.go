// Package handlers provides HTTP handlers for inspecting the quantum model of
// a sequence: its Hamiltonian, its ansatz circuit and single energy
// evaluations.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/latticefold/internal/domain"
	"github.com/aristath/latticefold/internal/modules/ansatz"
	"github.com/aristath/latticefold/internal/modules/optimization"
	"github.com/aristath/latticefold/internal/modules/prediction"
	"github.com/aristath/latticefold/internal/modules/quantum"
	"github.com/aristath/latticefold/internal/modules/sequence"
)

// Handler handles quantum HTTP requests
type Handler struct {
	service  *prediction.Service
	defaults prediction.Config
	log      zerolog.Logger
}

// NewHandler creates a new quantum handler
func NewHandler(
	service *prediction.Service,
	defaults prediction.Config,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		service:  service,
		defaults: defaults,
		log:      log.With().Str("handler", "quantum").Logger(),
	}
}

// HamiltonianRequest represents a request to inspect a sequence's Hamiltonian
type HamiltonianRequest struct {
	Sequence string `json:"sequence"`
	MaxTerms int    `json:"max_terms,omitempty"`
	Terms    bool   `json:"include_terms,omitempty"`
}

// CircuitRequest represents a request to inspect an ansatz
type CircuitRequest struct {
	Sequence    string `json:"sequence"`
	Ansatz      string `json:"ansatz,omitempty"`
	Repetitions int    `json:"repetitions,omitempty"`
}

// EvaluateRequest represents a request to evaluate the energy at one
// parameter vector. Parameters default to the ansatz's initial vector.
type EvaluateRequest struct {
	CircuitRequest
	Parameters []float64 `json:"parameters,omitempty"`
	MaxTerms   int       `json:"max_terms,omitempty"`
}

// HandleHamiltonian handles POST /api/quantum/hamiltonian
func (h *Handler) HandleHamiltonian(w http.ResponseWriter, r *http.Request) {
	var req HamiltonianRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	prep, err := h.service.Prepare(req.Sequence)
	if err != nil {
		h.writeError(w, err)
		return
	}

	maxTerms := req.MaxTerms
	if maxTerms <= 0 {
		maxTerms = h.defaults.MaxEvaluatedTerms
	}

	data := map[string]interface{}{
		"encoding":    prep.Encoding,
		"hamiltonian": prep.Hamiltonian.Summarize(maxTerms),
		"memory_gb":   sequence.StateMemoryGB(prep.Encoding.QubitCount),
	}
	if req.Terms {
		data["terms"] = prep.Hamiltonian.PauliTerms(maxTerms)
	}

	h.writeJSON(w, http.StatusOK, data)
}

func (h *Handler) circuitFor(req CircuitRequest) (*prediction.Prepared, *quantum.Circuit, []float64, error) {
	prep, err := h.service.Prepare(req.Sequence)
	if err != nil {
		return nil, nil, nil, err
	}
	cfg := h.defaults
	if req.Ansatz != "" {
		cfg.Ansatz = req.Ansatz
	}
	if req.Repetitions != 0 {
		cfg.Repetitions = req.Repetitions
	}
	c, params, err := h.service.BuildCircuit(prep.Encoding.QubitCount, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return prep, c, params, nil
}

// HandleCircuit handles POST /api/quantum/circuit
func (h *Handler) HandleCircuit(w http.ResponseWriter, r *http.Request) {
	var req CircuitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	_, c, params, err := h.circuitFor(req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"circuit":            prediction.SummarizeCircuit(c),
		"initial_parameters": params,
		"description":        c.String(),
	})
}

// HandleEvaluate handles POST /api/quantum/evaluate
func (h *Handler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	prep, c, params, err := h.circuitFor(req.CircuitRequest)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if req.Parameters != nil {
		params = req.Parameters
	}

	maxTerms := req.MaxTerms
	if maxTerms <= 0 {
		maxTerms = h.defaults.MaxEvaluatedTerms
	}
	ev := quantum.NewEvaluator(h.log, quantum.WithMaxTerms(maxTerms))
	est, err := ev.EvaluateDetailed(c, params, prep.Hamiltonian)
	if err != nil {
		h.writeError(w, err)
		return
	}
	outcome, err := ev.MostLikely(c, params)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"sequence":    string(prep.Sequence),
		"energy":      est.Energy,
		"variance":    est.Variance,
		"terms":       est.Terms,
		"most_likely": outcome,
	})
}

// HandleListMethods handles GET /api/quantum/methods
func (h *Handler) HandleListMethods(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"ansatzes":   ansatz.Variants,
		"optimizers": optimization.Kinds,
		"defaults":   h.defaults,
		"limits": map[string]interface{}{
			"max_length":          sequence.MaxLength,
			"max_simulated":       h.service.Validator().MaxSimulated(),
			"max_qubits":          quantum.MaxQubits,
			"bytes_per_amplitude": sequence.BytesPerAmplitude,
		},
	})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch domain.KindOf(err) {
	case domain.KindInvalidInput, domain.KindConfiguration:
		status = http.StatusBadRequest
	case domain.KindResourceInfeasible:
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("Request failed")
	}
	h.writeJSON(w, status, map[string]interface{}{
		"error": err.Error(),
		"kind":  domain.KindOf(err).String(),
	})
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
