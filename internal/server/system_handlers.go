package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/latticefold/internal/config"
	"github.com/aristath/latticefold/internal/database"
	"github.com/aristath/latticefold/internal/modules/jobs"
	"github.com/aristath/latticefold/internal/modules/sequence"
	"github.com/aristath/latticefold/internal/scheduler"
)

// SystemHandlers serves host, database and job status.
type SystemHandlers struct {
	log      zerolog.Logger
	db       *database.DB
	registry *jobs.Registry
	cfg      *config.Config
	jobs     map[string]scheduler.Job
	started  time.Time
}

// NewSystemHandlers creates system handlers. db and registry may be nil.
func NewSystemHandlers(
	log zerolog.Logger,
	db *database.DB,
	registry *jobs.Registry,
	cfg *config.Config,
	maintenance []scheduler.Job,
) *SystemHandlers {
	byName := make(map[string]scheduler.Job, len(maintenance))
	for _, j := range maintenance {
		byName[j.Name()] = j
	}
	return &SystemHandlers{
		log:      log.With().Str("handler", "system").Logger(),
		db:       db,
		registry: registry,
		cfg:      cfg,
		jobs:     byName,
		started:  time.Now(),
	}
}

// SystemStatusResponse is the body of GET /api/system/status.
type SystemStatusResponse struct {
	Status        string         `json:"status"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	CPUPercent    float64        `json:"cpu_percent"`
	MemoryPercent float64        `json:"memory_percent"`
	MemoryTotalGB float64        `json:"memory_total_gb"`
	MemoryFreeGB  float64        `json:"memory_available_gb"`
	Goroutines    int            `json:"goroutines"`
	Jobs          map[string]int `json:"jobs"`
	Database      string         `json:"database"`
	MaxSimulated  int            `json:"max_simulated_residues"`
	MaxStateGB    float64        `json:"max_state_gb"`
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	resp := SystemStatusResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		Goroutines:    runtime.NumGoroutine(),
		Jobs:          map[string]int{},
		Database:      "not_configured",
	}

	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
	} else if len(cpuPercent) > 0 {
		resp.CPUPercent = cpuPercent[0]
	}

	if memStat, err := mem.VirtualMemory(); err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
	} else {
		const gb = 1 << 30
		resp.MemoryPercent = memStat.UsedPercent
		resp.MemoryTotalGB = float64(memStat.Total) / gb
		resp.MemoryFreeGB = float64(memStat.Available) / gb
	}

	if h.registry != nil {
		for _, j := range h.registry.List() {
			resp.Jobs[string(j.Status)]++
		}
	}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		resp.Database = "ok"
		if err := h.db.HealthCheck(ctx); err != nil {
			h.log.Warn().Err(err).Msg("Database health check failed")
			resp.Database = "degraded"
			resp.Status = "degraded"
		}
	}

	if h.cfg != nil {
		resp.MaxSimulated = h.cfg.Resources.MaxSimulatedResidues
		resp.MaxStateGB = sequence.StateMemoryGB(sequence.QubitCount(resp.MaxSimulated))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// HandleDatabaseStats handles GET /api/system/database
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		http.Error(w, "database is not configured", http.StatusServiceUnavailable)
		return
	}

	var reports int
	if err := h.db.Conn().QueryRowContext(r.Context(), "SELECT COUNT(*) FROM reports").Scan(&reports); err != nil {
		h.log.Error().Err(err).Msg("Failed to count reports")
		http.Error(w, "Failed to read database", http.StatusInternalServerError)
		return
	}

	var sizeBytes, walBytes int64
	if info, err := os.Stat(h.db.Path()); err == nil {
		sizeBytes = info.Size()
	}
	if info, err := os.Stat(h.db.Path() + "-wal"); err == nil {
		walBytes = info.Size()
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":      h.db.Name(),
		"reports":   reports,
		"size_mb":   float64(sizeBytes) / 1024 / 1024,
		"wal_mb":    float64(walBytes) / 1024 / 1024,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// HandleTriggerJob handles POST /api/system/jobs/{name}
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	job, ok := h.jobs[name]
	if !ok {
		http.Error(w, "unknown job: "+name, http.StatusNotFound)
		return
	}

	if err := job.Run(); err != nil {
		h.log.Error().Err(err).Str("job", name).Msg("Manual job run failed")
		h.writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"status": "error",
			"job":    name,
			"error":  err.Error(),
		})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"job":    name,
	})
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
