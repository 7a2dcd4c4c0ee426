// Package main is the lifecycle scheduler binary. It periodically
// closes events whose end time has passed. Run a single instance per
// deployment.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/eventworks/registration-engine/internal/config"
	"github.com/eventworks/registration-engine/internal/database"
	"github.com/eventworks/registration-engine/internal/logger"
	"github.com/eventworks/registration-engine/internal/model"
	"github.com/eventworks/registration-engine/internal/repository"
	"github.com/eventworks/registration-engine/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.Setup(cfg.LogLevel)
	slog.SetDefault(log)

	pool, err := database.NewPool(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	eventRepo := repository.NewEventRepository(pool)
	job := scheduler.New(eventRepo, model.SystemClock(), log)

	log.Info("starting lifecycle scheduler", "interval", cfg.SchedulerInterval)
	job.Run(ctx, cfg.SchedulerInterval)
}
