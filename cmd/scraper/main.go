// The scraper binary consumes scrape requests, drives the browser and
// publishes extraction results.
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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/efsitax/alertify/internal/browser"
	"github.com/efsitax/alertify/internal/config"
	"github.com/efsitax/alertify/internal/events"
	"github.com/efsitax/alertify/internal/messaging"
	"github.com/efsitax/alertify/internal/ratelimit"
	"github.com/efsitax/alertify/internal/scraper"
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

	browserOpts := browser.DefaultOptions()
	browserOpts.Headless = cfg.Scraper.Headless
	b, err := browser.New(browserOpts, logger)
	if err != nil {
		logger.Error("failed to initialize browser", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	registry := scraper.DefaultRegistry(scraper.Timeouts{
		Selector: cfg.Scraper.SelectorTimeout,
	})
	dispatcher := scraper.NewDispatcher(registry, b, cfg.Scraper.NavTimeout, logger)

	publisher := messaging.NewPublisher(redisClient, logger)
	limiter := ratelimit.NewSimpleRateLimiter(cfg.Scraper.RateLimitMin, cfg.Scraper.RateLimitMax)
	worker := scraper.NewWorker(dispatcher, publisher, limiter, logger)

	consumer := messaging.NewConsumer(redisClient, messaging.ConsumerConfig{
		Stream:           events.StreamScrapeRequests,
		Group:            events.GroupScraperWorkers,
		Consumer:         hostname("scraper"),
		MaxAttempts:      cfg.Scraper.MaxAttempts,
		DeadLetterStream: events.StreamDeadLetter,
		// One page at a time per worker process keeps browser memory bounded.
		BatchSize: 1,
	}, worker.Handle, logger)
	go func() {
		if err := consumer.Run(ctx); err != nil && err != context.Canceled {
			logger.Error("request consumer stopped with error", "error", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
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

	logger.Info("scraper starting", "port", cfg.Server.Port, "headless", cfg.Scraper.Headless)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("scraper stopped")
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
