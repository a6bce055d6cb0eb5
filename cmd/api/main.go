package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/noisycontents/uzu-orders/internal/api"
	"github.com/noisycontents/uzu-orders/internal/config"
	"github.com/noisycontents/uzu-orders/internal/events"
	"github.com/noisycontents/uzu-orders/internal/logger"
	"github.com/noisycontents/uzu-orders/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	logger := logger.New(cfg.LogLevel)

	if err := cfg.ValidateSupabase(); err != nil {
		logger.Fatal("Configuration error: %v", err)
	}

	reporter := buildReporter(cfg, logger)
	runner := pipeline.New(cfg, reporter, logger)
	server := api.New(cfg, logger, runner)

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		logger.Error("Shutdown error: %v", err)
	}
}

func buildReporter(cfg *config.Config, logger *logger.Logger) events.Reporter {
	logReporter := events.NewLogReporter(logger)
	if cfg.KafkaBrokers == "" {
		return logReporter
	}
	return events.NewMultiReporter(logReporter, events.NewKafkaReporter(cfg.KafkaBrokers, cfg.KafkaTopic, logger))
}
