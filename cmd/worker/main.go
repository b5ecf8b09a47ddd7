/**
 * OCR Worker - Main Entry Point
 *
 * Architecture:
 * - Asynq consumer for the Redis-backed OCR job queue
 * - One shared OCR engine (detection + recognition model) for all jobs
 * - Redis status sets and events for live job tracking
 * - PostgreSQL persistence for recognized text and failures
 *
 * Recognition needs libtesseract and a binary built with the ocr tag:
 *
 *   go build -tags ocr ./cmd/worker
 *
 * A build without the tag refuses to start.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/adverant/nexus/ocr-engine/internal/config"
	"github.com/adverant/nexus/ocr-engine/internal/logging"
	"github.com/adverant/nexus/ocr-engine/internal/processor"
	"github.com/adverant/nexus/ocr-engine/internal/queue"
	"github.com/adverant/nexus/ocr-engine/internal/storage"
	"github.com/adverant/nexus/ocr-engine/pkg/ocr"
	"github.com/adverant/nexus/ocr-engine/pkg/ocr/inference/tesseract"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLoggerWithLevel("ocr-worker", cfg.LogLevel)
	defer logger.Sync()

	if envErr != nil {
		logger.Debug("No .env file loaded, using system environment variables")
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("Worker failed", "error", err.Error())
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("Shutdown complete")
}

func run(cfg *config.Config, logger *logging.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	logger.Info("OCR worker starting",
		"detectionModel", cfg.DetectionModelPath,
		"recognitionModel", cfg.RecognitionModelPath,
		"queue", cfg.QueueName,
		"workers", cfg.WorkerConcurrency,
		"env", cfg.NodeEnv,
	)

	engine, err := ocr.New(cfg.DetectionModelPath, cfg.RecognitionModelPath, ocr.WithLogger(logger.Zap()))
	if errors.Is(err, tesseract.ErrNotEnabled) {
		return fmt.Errorf("%w (rebuild with -tags ocr)", err)
	}
	if err != nil {
		return err
	}
	defer engine.Close()

	db, err := storage.NewPostgresClient(cfg.DatabaseURL, cfg.DatabaseSchema)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.EnsureSchema(ctx); err != nil {
		return err
	}

	tracker, err := queue.NewRedisStatusTracker(ctx, cfg.RedisURL, cfg.QueueName)
	if err != nil {
		return fmt.Errorf("failed to initialize status tracker: %w", err)
	}
	defer tracker.Close()

	proc, err := processor.NewImageProcessor(&processor.ProcessorConfig{
		Recognizer: engine,
		Store:      db,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize image processor: %w", err)
	}

	consumer, err := queue.NewConsumer(&queue.ConsumerConfig{
		RedisURL:          cfg.RedisURL,
		QueueName:         cfg.QueueName,
		Concurrency:       cfg.WorkerConcurrency,
		Processor:         proc,
		Tracker:           tracker,
		Logger:            logger,
		ProcessingTimeout: int64(cfg.ProcessingTimeout),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize queue consumer: %w", err)
	}

	if err := consumer.Start(context.Background()); err != nil {
		return err
	}
	logger.Info("OCR worker is ready, waiting for jobs", "stats", consumer.GetStatistics())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Received signal, initiating graceful shutdown", "signal", sig.String())

	if err := consumer.Stop(context.Background()); err != nil {
		logger.Warn("Error stopping queue consumer", "error", err.Error())
	}

	statsCtx, statsCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer statsCancel()
	if stats, err := tracker.GetStats(statsCtx); err == nil {
		logger.Info("Final job counts", "processing", stats[storage.StatusProcessing],
			"completed", stats[storage.StatusCompleted], "failed", stats[storage.StatusFailed])
	}

	return nil
}
