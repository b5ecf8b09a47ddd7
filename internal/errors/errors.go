package errors

import (
	"fmt"
	"time"
)

/**
 * Structured job errors for the OCR worker
 *
 * Every failure a job can end with is a ProcessingError whose Code is stored
 * alongside the job in Redis and PostgreSQL.
 */

// ErrorCode enum for structured error handling
type ErrorCode string

const (
	// Processing errors
	ErrorProcessingTimeout ErrorCode = "PROCESSING_TIMEOUT"
	ErrorOCRFailed         ErrorCode = "OCR_FAILED"
	ErrorInvalidPayload    ErrorCode = "INVALID_PAYLOAD"

	// Storage errors
	ErrorStorageFailed  ErrorCode = "STORAGE_FAILED"
	ErrorDatabaseFailed ErrorCode = "DATABASE_FAILED"
)

// ProcessingError represents a structured processing error
type ProcessingError struct {
	Code      ErrorCode
	Message   string
	JobID     string
	Timestamp time.Time
	Details   map[string]interface{}
	Cause     error
}

func (e *ProcessingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ProcessingError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether running the job again could succeed. OCR and
// payload failures are deterministic for a given input.
func (e *ProcessingError) Retryable() bool {
	switch e.Code {
	case ErrorOCRFailed, ErrorInvalidPayload:
		return false
	}
	return true
}

// Factory functions for common errors

func NewProcessingTimeoutError(jobID string, duration time.Duration, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorProcessingTimeout,
		Message:   fmt.Sprintf("Processing timed out after %v", duration),
		JobID:     jobID,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"timeout_duration": duration.String(),
		},
		Cause: cause,
	}
}

// NewOCRFailedError records a facade failure; kind is the failing OCR stage.
func NewOCRFailedError(jobID string, kind string, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorOCRFailed,
		Message:   fmt.Sprintf("OCR failed at stage: %s", kind),
		JobID:     jobID,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"ocr_kind": kind,
		},
		Cause: cause,
	}
}

func NewInvalidPayloadError(jobID string, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorInvalidPayload,
		Message:   "Invalid job payload",
		JobID:     jobID,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

func NewStorageFailedError(jobID string, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorStorageFailed,
		Message:   "Failed to store processing results",
		JobID:     jobID,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

func NewDatabaseFailedError(jobID string, operation string, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorDatabaseFailed,
		Message:   fmt.Sprintf("Database operation failed: %s", operation),
		JobID:     jobID,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"operation": operation,
		},
		Cause: cause,
	}
}

// ToMap converts error to map for database storage
func (e *ProcessingError) ToMap() map[string]interface{} {
	result := map[string]interface{}{
		"error_code": string(e.Code),
		"message":    e.Message,
		"timestamp":  e.Timestamp,
	}

	for k, v := range e.Details {
		result[k] = v
	}

	if e.Cause != nil {
		result["cause"] = e.Cause.Error()
	}

	return result
}
