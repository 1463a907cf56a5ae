// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/aristath/latticefold/internal/domain"
	"github.com/aristath/latticefold/internal/modules/ansatz"
	"github.com/aristath/latticefold/internal/modules/optimization"
	"github.com/aristath/latticefold/internal/modules/prediction"
	"github.com/aristath/latticefold/internal/modules/quantum"
	"github.com/aristath/latticefold/internal/modules/sequence"
)

// Config holds application configuration
type Config struct {
	DataDir   string // Base directory for the reports database and artifacts, always absolute
	OutputDir string
	LogLevel  string
	LogPretty bool
	Port      int
	DevMode   bool

	// AllowedOrigins are the cross-origin host patterns (such as
	// "app.example" or "*.example") allowed to open trace streams.
	AllowedOrigins []string

	Prediction PredictionDefaults
	Resources  ResourceConfig
	Jobs       JobConfig
	Artifacts  ArtifactConfig
}

// PredictionDefaults are applied to requests that leave a field unset.
type PredictionDefaults struct {
	Ansatz            string
	Optimizer         string
	MaxIterations     int
	Repetitions       int
	Seed              int64
	MaxEvaluatedTerms int
	Timeout           time.Duration // 0 = no per-run timeout
}

// ResourceConfig bounds what the simulator will attempt.
type ResourceConfig struct {
	MaxSimulatedResidues int
	MaxQubits            int
	HighResourceGB       float64
}

// JobConfig controls the in-memory job registry.
type JobConfig struct {
	BatchWorkers   int
	Retention      time.Duration
	PruneSchedule  string // cron spec with seconds field
	VacuumSchedule string
	BackupSchedule string // used only when artifact upload is enabled

	// ReportRetention bounds how long persisted reports are kept; zero keeps
	// them forever.
	ReportRetention     time.Duration
	ReportPruneSchedule string
}

// ArtifactConfig configures optional S3-compatible artifact upload. Upload is
// disabled when Bucket is empty.
type ArtifactConfig struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// Enabled reports whether artifact upload is configured.
func (a ArtifactConfig) Enabled() bool { return a.Bucket != "" }

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("LATTICEFOLD_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:   absDataDir,
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(absDataDir, "results")),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: getEnvAsBool("LOG_PRETTY", false),
		Port:      getEnvAsInt("PORT", 8080),
		DevMode:   getEnvAsBool("DEV_MODE", false),

		AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS"),

		Prediction: PredictionDefaults{
			Ansatz:            getEnv("DEFAULT_ANSATZ", string(ansatz.Custom)),
			Optimizer:         getEnv("DEFAULT_OPTIMIZER", string(optimization.DirectSearch)),
			MaxIterations:     getEnvAsInt("MAX_ITERATIONS", 100),
			Repetitions:       getEnvAsInt("ANSATZ_REPS", 2),
			Seed:              int64(getEnvAsInt("SEED", 42)),
			MaxEvaluatedTerms: getEnvAsInt("MAX_EVALUATED_TERMS", 50),
			Timeout:           getEnvAsDuration("RUN_TIMEOUT", 0),
		},
		Resources: ResourceConfig{
			MaxSimulatedResidues: getEnvAsInt("MAX_SIMULATED_RESIDUES", sequence.DefaultMaxSimulated),
			MaxQubits:            getEnvAsInt("MAX_QUBITS", optimization.DefaultMaxQubits),
			HighResourceGB:       getEnvAsFloat("HIGH_RESOURCE_GB", optimization.DefaultHighResourceGB),
		},
		Jobs: JobConfig{
			BatchWorkers:   getEnvAsInt("BATCH_WORKERS", 2),
			Retention:      getEnvAsDuration("JOB_RETENTION", 6*time.Hour),
			PruneSchedule:  getEnv("JOB_PRUNE_SCHEDULE", "0 */10 * * * *"),
			VacuumSchedule: getEnv("VACUUM_SCHEDULE", "0 0 4 * * 0"),
			BackupSchedule: getEnv("BACKUP_SCHEDULE", "0 0 3 * * *"),

			ReportRetention:     getEnvAsDuration("REPORT_RETENTION", 30*24*time.Hour),
			ReportPruneSchedule: getEnv("REPORT_PRUNE_SCHEDULE", "0 30 2 * * *"),
		},
		Artifacts: ArtifactConfig{
			Bucket:          getEnv("S3_BUCKET", ""),
			Prefix:          getEnv("S3_PREFIX", "latticefold"),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DatabasePath is the location of the reports database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "reports.db")
}

// Validate rejects unusable values up front.
func (c *Config) Validate() error {
	const op = "config.Validate"

	if c.Port <= 0 || c.Port > 65535 {
		return domain.ConfigurationError(op, "PORT", "must be in 1..65535, got %d", c.Port)
	}
	if _, err := ansatz.ParseVariant(c.Prediction.Ansatz); err != nil {
		return err
	}
	if _, err := optimization.ParseKind(c.Prediction.Optimizer); err != nil {
		return err
	}

	positives := []struct {
		field string
		value int
	}{
		{"MAX_ITERATIONS", c.Prediction.MaxIterations},
		{"ANSATZ_REPS", c.Prediction.Repetitions},
		{"MAX_EVALUATED_TERMS", c.Prediction.MaxEvaluatedTerms},
		{"MAX_SIMULATED_RESIDUES", c.Resources.MaxSimulatedResidues},
		{"MAX_QUBITS", c.Resources.MaxQubits},
		{"BATCH_WORKERS", c.Jobs.BatchWorkers},
	}
	for _, p := range positives {
		if p.value <= 0 {
			return domain.ConfigurationError(op, p.field, "must be positive, got %d", p.value)
		}
	}

	limits := []struct {
		field string
		value int
		limit int
	}{
		{"MAX_ITERATIONS", c.Prediction.MaxIterations, prediction.IterationsLimit},
		{"ANSATZ_REPS", c.Prediction.Repetitions, prediction.RepetitionsLimit},
		{"MAX_EVALUATED_TERMS", c.Prediction.MaxEvaluatedTerms, prediction.EvaluatedTermsLimit},
	}
	for _, l := range limits {
		if l.value > l.limit {
			return domain.ConfigurationError(op, l.field, "must not exceed %d, got %d", l.limit, l.value)
		}
	}
	if c.Resources.MaxQubits > quantum.MaxQubits {
		return domain.ConfigurationError(op, "MAX_QUBITS", "must not exceed the simulator limit of %d, got %d", quantum.MaxQubits, c.Resources.MaxQubits)
	}
	if q := sequence.QubitCount(c.Resources.MaxSimulatedResidues); q > c.Resources.MaxQubits {
		return domain.ConfigurationError(op, "MAX_SIMULATED_RESIDUES",
			"%d residues need %d qubits, above MAX_QUBITS=%d", c.Resources.MaxSimulatedResidues, q, c.Resources.MaxQubits)
	}
	if c.Prediction.Timeout < 0 {
		return domain.ConfigurationError(op, "RUN_TIMEOUT", "must not be negative")
	}
	if c.Resources.HighResourceGB <= 0 {
		return domain.ConfigurationError(op, "HIGH_RESOURCE_GB", "must be positive, got %g", c.Resources.HighResourceGB)
	}
	if c.Jobs.Retention <= 0 {
		return domain.ConfigurationError(op, "JOB_RETENTION", "must be positive")
	}
	if c.Jobs.ReportRetention < 0 {
		return domain.ConfigurationError(op, "REPORT_RETENTION", "must not be negative")
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping empty items.
func getEnvAsList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
