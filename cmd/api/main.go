// Package main is the registration API entry point. It wires together
// all layers and starts the HTTP server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/rueidis"

	"github.com/eventworks/registration-engine/internal/cache"
	"github.com/eventworks/registration-engine/internal/config"
	"github.com/eventworks/registration-engine/internal/database"
	"github.com/eventworks/registration-engine/internal/handler"
	"github.com/eventworks/registration-engine/internal/logger"
	"github.com/eventworks/registration-engine/internal/model"
	"github.com/eventworks/registration-engine/internal/repository"
	"github.com/eventworks/registration-engine/internal/service"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.Setup(cfg.LogLevel)
	slog.SetDefault(log)

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	log.Info("connected to postgres")

	// The invalidation signal degrades to a no-op when Redis is not
	// reachable; registrations must not depend on the cache layer.
	var invalidator cache.Invalidator = cache.Noop{}
	redisClient, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress: []string{cfg.RedisAddr},
	})
	if err != nil {
		log.Warn("redis unavailable, cache invalidation disabled", "error", err)
	} else {
		defer redisClient.Close()
		invalidator = cache.NewRedisInvalidator(redisClient)
	}

	eventRepo := repository.NewEventRepository(pool)
	clock := model.SystemClock()
	regRepo := repository.NewRegistrationRepository(pool, clock)
	svc := service.NewRegistrationService(eventRepo, regRepo, invalidator, clock, log)
	eventHandler := handler.NewEventHandler(svc)

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(handler.AccessLog(log))

	r.Get("/health", handler.HealthCheck)

	r.Route("/events", func(r chi.Router) {
		r.Post("/", eventHandler.CreateEvent)
		r.Get("/", eventHandler.ListEvents)
		r.Get("/{id}", eventHandler.GetEvent)
		r.Get("/{id}/status", eventHandler.RegistrationStatus)
		r.Post("/{id}/register", eventHandler.Register)
		r.Get("/{id}/participants", eventHandler.ListParticipants)
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Run in background goroutine so we can listen for shutdown signal.
	go func() {
		log.Info("server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
