package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/latticefold/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LATTICEFOLD_DATA_DIR", dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "custom", cfg.Prediction.Ansatz)
	assert.Equal(t, "cobyla", cfg.Prediction.Optimizer)
	assert.Equal(t, 100, cfg.Prediction.MaxIterations)
	assert.Equal(t, 50, cfg.Prediction.MaxEvaluatedTerms)
	assert.Equal(t, 10, cfg.Resources.MaxSimulatedResidues)
	assert.Equal(t, 8.0, cfg.Resources.HighResourceGB)
	assert.False(t, cfg.Artifacts.Enabled())
	assert.Contains(t, cfg.DatabasePath(), "reports.db")
	assert.Equal(t, "0 */10 * * * *", cfg.Jobs.PruneSchedule)
	assert.Equal(t, "0 0 3 * * *", cfg.Jobs.BackupSchedule)
	assert.Equal(t, 30*24*time.Hour, cfg.Jobs.ReportRetention)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("LATTICEFOLD_DATA_DIR", t.TempDir())
	t.Setenv("PORT", "9001")
	t.Setenv("DEFAULT_OPTIMIZER", "l_bfgs_b")
	t.Setenv("RUN_TIMEOUT", "90s")
	t.Setenv("HIGH_RESOURCE_GB", "2.5")
	t.Setenv("S3_BUCKET", "folds")
	t.Setenv("REPORT_RETENTION", "0")
	t.Setenv("ALLOWED_ORIGINS", " app.example, ,*.lab.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9001, cfg.Port)
	assert.Equal(t, "l_bfgs_b", cfg.Prediction.Optimizer)
	assert.Equal(t, 90*time.Second, cfg.Prediction.Timeout)
	assert.Equal(t, 2.5, cfg.Resources.HighResourceGB)
	assert.True(t, cfg.Artifacts.Enabled())
	assert.Zero(t, cfg.Jobs.ReportRetention)
	assert.Equal(t, []string{"app.example", "*.lab.example"}, cfg.AllowedOrigins)
}

func TestLoad_RejectsUnknownAnsatz(t *testing.T) {
	t.Setenv("LATTICEFOLD_DATA_DIR", t.TempDir())
	t.Setenv("DEFAULT_ANSATZ", "qaoa")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}

func TestValidate_NonPositive(t *testing.T) {
	t.Setenv("LATTICEFOLD_DATA_DIR", t.TempDir())
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Prediction.Repetitions = 0
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ANSATZ_REPS")
}

func TestValidate_UpperBounds(t *testing.T) {
	t.Setenv("LATTICEFOLD_DATA_DIR", t.TempDir())
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Prediction.Repetitions = 11
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ANSATZ_REPS")
}

func TestValidate_QubitCeiling(t *testing.T) {
	tests := []struct {
		name         string
		maxSimulated int
		maxQubits    int
		field        string
	}{
		{"residues beyond ceiling", 12, 20, "MAX_SIMULATED_RESIDUES"},
		{"residues beyond lowered ceiling", 10, 16, "MAX_SIMULATED_RESIDUES"},
		{"ceiling beyond simulator", 10, 24, "MAX_QUBITS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LATTICEFOLD_DATA_DIR", t.TempDir())
			cfg, err := Load()
			require.NoError(t, err)

			cfg.Resources.MaxSimulatedResidues = tt.maxSimulated
			cfg.Resources.MaxQubits = tt.maxQubits
			err = cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrConfiguration))
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestGetEnvHelpers_FallBackOnGarbage(t *testing.T) {
	t.Setenv("X_INT", "nope")
	t.Setenv("X_FLOAT", "nope")
	t.Setenv("X_DUR", "nope")
	t.Setenv("X_BOOL", "nope")

	assert.Equal(t, 3, getEnvAsInt("X_INT", 3))
	assert.Equal(t, 1.5, getEnvAsFloat("X_FLOAT", 1.5))
	assert.Equal(t, time.Second, getEnvAsDuration("X_DUR", time.Second))
	assert.True(t, getEnvAsBool("X_BOOL", true))
}
