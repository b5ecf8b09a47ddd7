/**
 * Image Processor for the OCR worker
 *
 * Runs one job through the OCR engine under a deadline and turns the outcome
 * into a ProcessResult or a structured ProcessingError.
 */

package processor

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/adverant/nexus/ocr-engine/internal/errors"
	"github.com/adverant/nexus/ocr-engine/internal/logging"
	"github.com/adverant/nexus/ocr-engine/internal/storage"
	"github.com/adverant/nexus/ocr-engine/pkg/ocr"
)

// ImageProcessorInterface defines the interface for image processing
type ImageProcessorInterface interface {
	ProcessImage(ctx context.Context, req *ProcessRequest) (*ProcessResult, error)
	UpdateJobStatus(ctx context.Context, jobID string, status string, metadata map[string]interface{}) error
}

// Recognizer turns an image file into text. *ocr.Engine implements it.
type Recognizer interface {
	ProcessImage(imagePath string) (string, error)
}

// JobStore persists job status. *storage.PostgresClient implements it.
type JobStore interface {
	UpdateJobStatus(ctx context.Context, update *storage.JobUpdate) error
}

// ProcessorConfig holds processor configuration
type ProcessorConfig struct {
	Recognizer Recognizer
	Store      JobStore
	Logger     *logging.Logger
}

// ProcessRequest represents an image processing request
type ProcessRequest struct {
	JobID     string
	UserID    string
	ImagePath string
	Metadata  map[string]interface{}
}

// ProcessResult represents the processing result
type ProcessResult struct {
	Text             string `json:"text"`
	WordCount        int    `json:"wordCount"`
	CharCount        int    `json:"charCount"`
	ProcessingTimeMs int64  `json:"processingTimeMs"`
}

// ImageProcessor handles image processing
type ImageProcessor struct {
	recognizer Recognizer
	store      JobStore
	log        *logging.Logger
}

// NewImageProcessor creates a new image processor
func NewImageProcessor(cfg *ProcessorConfig) (*ImageProcessor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	if cfg.Recognizer == nil {
		return nil, fmt.Errorf("recognizer is required")
	}

	if cfg.Store == nil {
		return nil, fmt.Errorf("job store is required")
	}

	log := cfg.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}

	return &ImageProcessor{
		recognizer: cfg.Recognizer,
		store:      cfg.Store,
		log:        log,
	}, nil
}

type recognition struct {
	text string
	err  error
}

// ProcessImage recognizes the text of one image. The OCR call itself cannot
// be interrupted; when ctx ends first the job fails with PROCESSING_TIMEOUT
// and the late result is discarded.
func (p *ImageProcessor) ProcessImage(ctx context.Context, req *ProcessRequest) (*ProcessResult, error) {
	if req == nil || req.ImagePath == "" {
		jobID := ""
		if req != nil {
			jobID = req.JobID
		}
		return nil, errors.NewInvalidPayloadError(jobID, fmt.Errorf("image path is required"))
	}

	startTime := time.Now()
	p.log.Info("Processing image", "jobId", req.JobID, "path", req.ImagePath)

	done := make(chan recognition, 1)
	go func() {
		text, err := p.recognizer.ProcessImage(req.ImagePath)
		done <- recognition{text: text, err: err}
	}()

	var res recognition
	select {
	case res = <-done:
	case <-ctx.Done():
		timeout := time.Since(startTime)
		if deadline, ok := ctx.Deadline(); ok {
			timeout = deadline.Sub(startTime)
		}
		p.log.Warn("Processing timed out", "jobId", req.JobID, "timeout", timeout.String())
		return nil, errors.NewProcessingTimeoutError(req.JobID, timeout, ctx.Err())
	}

	duration := time.Since(startTime)

	if res.err != nil {
		kind, ok := ocr.KindOf(res.err)
		if !ok {
			kind = ocr.KindTextExtraction
		}
		p.log.Error("OCR failed", "jobId", req.JobID, "kind", string(kind), "error", res.err.Error())
		return nil, errors.NewOCRFailedError(req.JobID, string(kind), res.err)
	}

	result := &ProcessResult{
		Text:             res.text,
		WordCount:        len(strings.Fields(res.text)),
		CharCount:        utf8.RuneCountInString(res.text),
		ProcessingTimeMs: duration.Milliseconds(),
	}

	p.log.Info("Processing complete",
		"jobId", req.JobID,
		"words", result.WordCount,
		"chars", result.CharCount,
		"processingTimeMs", result.ProcessingTimeMs,
	)

	return result, nil
}

// UpdateJobStatus updates job status in database
func (p *ImageProcessor) UpdateJobStatus(ctx context.Context, jobID string, status string, metadata map[string]interface{}) error {
	update := &storage.JobUpdate{
		JobID:    jobID,
		Status:   status,
		Metadata: map[string]interface{}{},
	}

	// Extract specific fields from metadata if present
	for k, v := range metadata {
		switch k {
		case "userId":
			update.UserID, _ = v.(string)
		case "imagePath":
			update.ImagePath, _ = v.(string)
		case "text":
			update.Text, _ = v.(string)
		case "wordCount":
			update.WordCount, _ = v.(int)
		case "charCount":
			update.CharCount, _ = v.(int)
		case "processingTimeMs":
			update.ProcessingTimeMs, _ = v.(int64)
		case "error_code":
			update.ErrorCode, _ = v.(string)
		case "cause":
			update.ErrorMessage, _ = v.(string)
		case "ocr_kind":
			update.OCRKind, _ = v.(string)
		case "message":
			if update.ErrorMessage == "" {
				update.ErrorMessage, _ = v.(string)
			}
		case "timestamp":
		default:
			update.Metadata[k] = v
		}
	}

	if err := p.store.UpdateJobStatus(ctx, update); err != nil {
		return errors.NewDatabaseFailedError(jobID, "update job status", err)
	}
	return nil
}

// ResultMetadata flattens a result into the metadata UpdateJobStatus accepts
func (r *ProcessResult) ResultMetadata() map[string]interface{} {
	return map[string]interface{}{
		"text":             r.Text,
		"wordCount":        r.WordCount,
		"charCount":        r.CharCount,
		"processingTimeMs": r.ProcessingTimeMs,
	}
}
