/**
 * Configuration for the OCR worker and CLI
 *
 * Loads configuration from environment variables. Hosts call
 * godotenv.Load first so a local .env file fills in anything unset.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds worker configuration
type Config struct {
	// Model artifacts
	DetectionModelPath   string
	RecognitionModelPath string

	// Redis configuration
	RedisURL  string
	QueueName string

	// PostgreSQL configuration
	DatabaseURL    string
	DatabaseSchema string

	// Worker configuration
	WorkerConcurrency int
	ProcessingTimeout int // milliseconds

	// Logging
	LogLevel string

	// Node environment
	NodeEnv string
}

// LoadConfig loads configuration from environment variables without
// validating it; hosts call the Validate method that matches what they run.
func LoadConfig() (*Config, error) {
	concurrency, err := getEnvAsIntOrDefault("WORKER_CONCURRENCY", 4)
	if err != nil {
		return nil, err
	}
	timeout, err := getEnvAsIntOrDefault("PROCESSING_TIMEOUT", 120000) // 2 minutes
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DetectionModelPath:   getEnvOrDefault("OCR_DETECTION_MODEL", "models/osd.traineddata"),
		RecognitionModelPath: getEnvOrDefault("OCR_RECOGNITION_MODEL", "models/eng.traineddata"),
		RedisURL:             getEnvOrDefault("REDIS_URL", "redis://localhost:6379"),
		QueueName:            getEnvOrDefault("OCR_QUEUE", "ocr"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		DatabaseSchema:       getEnvOrDefault("DATABASE_SCHEMA", "ocr"),
		WorkerConcurrency:    concurrency,
		ProcessingTimeout:    timeout,
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		NodeEnv:              getEnvOrDefault("NODE_ENV", "development"),
	}
	return cfg, nil
}

// ValidateModels checks the settings every OCR host needs
func (c *Config) ValidateModels() error {
	if c.DetectionModelPath == "" {
		return fmt.Errorf("OCR_DETECTION_MODEL is required")
	}
	if c.RecognitionModelPath == "" {
		return fmt.Errorf("OCR_RECOGNITION_MODEL is required")
	}
	return nil
}

// Validate checks if configuration is valid for running the worker
func (c *Config) Validate() error {
	if err := c.ValidateModels(); err != nil {
		return err
	}

	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.QueueName == "" {
		return fmt.Errorf("OCR_QUEUE must not be empty")
	}

	if c.WorkerConcurrency < 1 || c.WorkerConcurrency > 100 {
		return fmt.Errorf("WORKER_CONCURRENCY must be between 1 and 100, got %d", c.WorkerConcurrency)
	}

	if c.ProcessingTimeout < 1000 || c.ProcessingTimeout > 3600000 { // 1s to 1h
		return fmt.Errorf("PROCESSING_TIMEOUT must be between 1000 and 3600000 ms, got %d", c.ProcessingTimeout)
	}

	return nil
}

// Timeout returns ProcessingTimeout as a duration
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.ProcessingTimeout) * time.Millisecond
}

// getEnvOrDefault gets environment variable or returns default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault gets environment variable as int or returns default.
// A set but malformed value is an error rather than a silent default.
func getEnvAsIntOrDefault(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}

	return value, nil
}
