// Package main is the entry point for the latticefold prediction server.
//
// The server exposes lattice folding predictions over HTTP, runs them as
// background jobs, streams optimizer progress over websockets and persists
// finished reports to SQLite.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/latticefold/internal/artifacts"
	"github.com/aristath/latticefold/internal/config"
	"github.com/aristath/latticefold/internal/database"
	"github.com/aristath/latticefold/internal/modules/jobs"
	"github.com/aristath/latticefold/internal/modules/optimization"
	"github.com/aristath/latticefold/internal/modules/prediction"
	predictionhandlers "github.com/aristath/latticefold/internal/modules/prediction/handlers"
	quantumhandlers "github.com/aristath/latticefold/internal/modules/quantum/handlers"
	"github.com/aristath/latticefold/internal/reliability"
	"github.com/aristath/latticefold/internal/scheduler"
	"github.com/aristath/latticefold/internal/server"
	"github.com/aristath/latticefold/pkg/logger"
)

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("data_dir", cfg.DataDir).
		Int("max_simulated", cfg.Resources.MaxSimulatedResidues).
		Msg("Starting latticefold")

	db, err := database.New(database.Config{
		Path:    cfg.DatabasePath(),
		Profile: database.ProfileStandard,
		Name:    "reports",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open reports database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate reports database")
	}

	repo := jobs.NewRepository(db.Conn(), log)
	registry := jobs.NewRegistry(log)

	opts := []prediction.Option{
		prediction.WithStore(repo),
		prediction.WithMaxSimulated(cfg.Resources.MaxSimulatedResidues),
		prediction.WithBatchWorkers(cfg.Jobs.BatchWorkers),
		prediction.WithLoopOptions(
			optimization.WithMaxQubits(cfg.Resources.MaxQubits),
			optimization.WithHighResourceGB(cfg.Resources.HighResourceGB),
		),
	}
	var uploader *artifacts.S3Uploader
	if cfg.Artifacts.Enabled() {
		uploader, err = artifacts.NewS3Uploader(context.Background(), cfg.Artifacts, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to configure artifact upload")
		}
		opts = append(opts, prediction.WithUploader(uploader))
		log.Info().Str("bucket", cfg.Artifacts.Bucket).Msg("Artifact upload enabled")
	}

	svc := prediction.NewService(log, opts...)
	defaults := predictionDefaults(cfg)

	predictions := predictionhandlers.NewHandler(svc, registry, repo, defaults, log,
		predictionhandlers.WithOriginPatterns(cfg.AllowedOrigins...))
	quantum := quantumhandlers.NewHandler(svc, defaults, log)

	schedules := []scheduledJob{
		{cfg.Jobs.PruneSchedule, scheduler.NewPruneJobsJob(registry, cfg.Jobs.Retention, log)},
		{"@hourly", scheduler.NewCheckWALCheckpointJob(db, log)},
		{cfg.Jobs.VacuumSchedule, reliability.NewVacuumJob(db, log)},
	}
	if cfg.Jobs.ReportRetention > 0 {
		schedules = append(schedules, scheduledJob{cfg.Jobs.ReportPruneSchedule, scheduler.NewPruneReportsJob(repo, cfg.Jobs.ReportRetention, log)})
	}
	if uploader != nil {
		backups := reliability.NewBackupService(db, uploader, cfg.DataDir, log)
		schedules = append(schedules, scheduledJob{cfg.Jobs.BackupSchedule, reliability.NewBackupJob(backups, log)})
	}

	sched := scheduler.New(log)
	maintenance := make([]scheduler.Job, 0, len(schedules))
	for _, s := range schedules {
		if err := sched.AddJob(s.spec, s.job); err != nil {
			log.Fatal().Err(err).Str("job", s.job.Name()).Msg("Failed to schedule job")
		}
		maintenance = append(maintenance, s.job)
	}
	sched.Start()

	srv := server.New(server.Config{
		Log:         log,
		DB:          db,
		Config:      cfg,
		Registry:    registry,
		Predictions: predictions,
		Quantum:     quantum,
		Jobs:        maintenance,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start HTTP server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	sched.Stop()

	// Running prediction jobs are cancelled and given the same window to
	// record their failure before the database closes.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

type scheduledJob struct {
	spec string
	job  scheduler.Job
}

func predictionDefaults(cfg *config.Config) prediction.Config {
	return prediction.Config{
		Ansatz:            cfg.Prediction.Ansatz,
		Optimizer:         cfg.Prediction.Optimizer,
		MaxIterations:     cfg.Prediction.MaxIterations,
		Repetitions:       cfg.Prediction.Repetitions,
		OutputDir:         cfg.OutputDir,
		Seed:              cfg.Prediction.Seed,
		MaxEvaluatedTerms: cfg.Prediction.MaxEvaluatedTerms,
		Timeout:           cfg.Prediction.Timeout,
	}
}
