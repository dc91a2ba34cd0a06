// The tracker binary owns the tracking side of the pipeline: the HTTP
// API, the scan scheduler and the consumer that applies scrape results.
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
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/efsitax/alertify/internal/api"
	"github.com/efsitax/alertify/internal/config"
	"github.com/efsitax/alertify/internal/database"
	"github.com/efsitax/alertify/internal/events"
	"github.com/efsitax/alertify/internal/messaging"
	"github.com/efsitax/alertify/internal/tracking"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(),
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	repo := database.NewTrackingRepository(db)
	publisher := messaging.NewPublisher(redisClient, logger)
	service := tracking.NewService(repo, publisher, logger)

	scheduler := tracking.NewScheduler(
		repo, publisher,
		cfg.Tracking.ScanInterval, cfg.Tracking.SchedulerRate, cfg.Tracking.BatchSize,
		logger,
	)
	go func() {
		if err := scheduler.Run(ctx); err != nil && err != context.Canceled {
			logger.Error("scheduler stopped with error", "error", err)
		}
	}()

	resultHandler := tracking.NewResultHandler(service)
	consumer := messaging.NewConsumer(redisClient, messaging.ConsumerConfig{
		Stream:           events.StreamScrapeCompleted,
		Group:            events.GroupTrackingConsumers,
		Consumer:         hostname("tracker"),
		MaxAttempts:      cfg.Scraper.MaxAttempts,
		DeadLetterStream: events.StreamDeadLetter,
	}, resultHandler.Handle, logger)
	go func() {
		if err := consumer.Run(ctx); err != nil && err != context.Canceled {
			logger.Error("result consumer stopped with error", "error", err)
		}
	}()

	handlers := api.NewHandlers(service, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://localhost:*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-User-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	handlers.Routes(r)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("tracker starting", "port", cfg.Server.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("tracker stopped")
}

func logLevel() slog.Level {
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func hostname(fallback string) string {
	if name, err := os.Hostname(); err == nil {
		return name
	}
	return fallback
}
