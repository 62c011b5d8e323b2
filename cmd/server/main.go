// Package main implements the entry point for the VoltLab API server,
// which lets students upload circuit diagrams for AI analysis behind a
// bounded-concurrency admission gate.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/voltlab/voltlab-api/internal/config"
	"github.com/voltlab/voltlab-api/internal/platform/logger"
	"github.com/voltlab/voltlab-api/internal/platform/postgres"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if _, err := logger.Setup(cfg.Server); err != nil {
		log.Fatalf("Failed to set up logger: %v", err)
	}

	slog.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"max_sessions", cfg.Admission.MaxSessions,
		"worker_count", cfg.Admission.WorkerCount)

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("Server exited with error: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	db, err := setupAppDatabase(cfg, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}

	if err := postgres.RunMigrations(ctx, db, slog.Default()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	app, err := newApplication(ctx, cfg, slog.Default(), db)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return app.Run(ctx)
}
