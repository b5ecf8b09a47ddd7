//go:build !ocr

package main

import (
	"errors"
	"strings"
	"testing"

	"github.com/adverant/nexus/ocr-engine/internal/config"
	"github.com/adverant/nexus/ocr-engine/internal/logging"
	"github.com/adverant/nexus/ocr-engine/pkg/ocr"
	"github.com/adverant/nexus/ocr-engine/pkg/ocr/inference/inferencetest"
	"github.com/adverant/nexus/ocr-engine/pkg/ocr/inference/tesseract"
)

func TestRunRequiresOCRBuildTag(t *testing.T) {
	det, rec := inferencetest.WriteModels(t, t.TempDir())
	cfg := &config.Config{
		DetectionModelPath:   det,
		RecognitionModelPath: rec,
		RedisURL:             "redis://localhost:6379",
		QueueName:            "ocr",
		DatabaseURL:          "postgres://localhost/ocr",
		WorkerConcurrency:    1,
		ProcessingTimeout:    1000,
	}

	err := run(cfg, logging.NewNopLogger())
	if !errors.Is(err, tesseract.ErrNotEnabled) || !errors.Is(err, ocr.ErrEngineConstruction) {
		t.Fatalf("run() error = %v, want engine construction error from the stub backend", err)
	}
	if !strings.Contains(err.Error(), "-tags ocr") {
		t.Errorf("error %q does not name the build tag", err.Error())
	}
}
