package processor

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/adverant/nexus/ocr-engine/internal/errors"
	"github.com/adverant/nexus/ocr-engine/internal/storage"
	"github.com/adverant/nexus/ocr-engine/pkg/ocr"
)

type fakeRecognizer struct {
	text  string
	err   error
	delay time.Duration
}

func (f *fakeRecognizer) ProcessImage(string) (string, error) {
	time.Sleep(f.delay)
	return f.text, f.err
}

type fakeStore struct {
	mu      sync.Mutex
	updates []*storage.JobUpdate
	err     error
}

func (f *fakeStore) UpdateJobStatus(_ context.Context, u *storage.JobUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, u)
	return f.err
}

func newProcessor(t *testing.T, r Recognizer, s JobStore) *ImageProcessor {
	t.Helper()
	p, err := NewImageProcessor(&ProcessorConfig{Recognizer: r, Store: s})
	if err != nil {
		t.Fatalf("NewImageProcessor() error = %v", err)
	}
	return p
}

func TestNewImageProcessorValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  *ProcessorConfig
	}{
		{"nil config", nil},
		{"no recognizer", &ProcessorConfig{Store: &fakeStore{}}},
		{"no store", &ProcessorConfig{Recognizer: &fakeRecognizer{}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewImageProcessor(tc.cfg); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestProcessImageCountsWordsAndChars(t *testing.T) {
	p := newProcessor(t, &fakeRecognizer{text: "Grüße aus\nder Welt"}, &fakeStore{})

	result, err := p.ProcessImage(context.Background(), &ProcessRequest{JobID: "j1", ImagePath: "scan.png"})
	if err != nil {
		t.Fatalf("ProcessImage() error = %v", err)
	}
	if result.Text != "Grüße aus\nder Welt" {
		t.Errorf("Text = %q", result.Text)
	}
	if result.WordCount != 4 {
		t.Errorf("WordCount = %d, want 4", result.WordCount)
	}
	if result.CharCount != 18 {
		t.Errorf("CharCount = %d, want 18", result.CharCount)
	}
}

func TestProcessImageOCRFailure(t *testing.T) {
	ocrErr := &ocr.Error{Kind: ocr.KindImageDecode, Message: "failed to open image scan.png: no such file"}
	p := newProcessor(t, &fakeRecognizer{err: ocrErr}, &fakeStore{})

	_, err := p.ProcessImage(context.Background(), &ProcessRequest{JobID: "j1", ImagePath: "scan.png"})
	var pe *errors.ProcessingError
	if !stderrors.As(err, &pe) {
		t.Fatalf("error = %T %v, want *ProcessingError", err, err)
	}
	if pe.Code != errors.ErrorOCRFailed || pe.Details["ocr_kind"] != "IMAGE_DECODE" {
		t.Errorf("unexpected error %+v", pe)
	}
	if pe.Retryable() {
		t.Error("OCR failures must not be retryable")
	}
	if !stderrors.Is(err, ocr.ErrImageDecode) {
		t.Error("facade error not reachable")
	}
}

func TestProcessImageTimeout(t *testing.T) {
	p := newProcessor(t, &fakeRecognizer{text: "late", delay: 200 * time.Millisecond}, &fakeStore{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.ProcessImage(ctx, &ProcessRequest{JobID: "j1", ImagePath: "scan.png"})
	var pe *errors.ProcessingError
	if !stderrors.As(err, &pe) || pe.Code != errors.ErrorProcessingTimeout {
		t.Fatalf("error = %v, want PROCESSING_TIMEOUT", err)
	}
	if !stderrors.Is(err, context.DeadlineExceeded) {
		t.Error("deadline not reachable through the chain")
	}
}

func TestProcessImageRequiresPath(t *testing.T) {
	p := newProcessor(t, &fakeRecognizer{}, &fakeStore{})
	_, err := p.ProcessImage(context.Background(), &ProcessRequest{JobID: "j1"})
	var pe *errors.ProcessingError
	if !stderrors.As(err, &pe) || pe.Code != errors.ErrorInvalidPayload {
		t.Fatalf("error = %v, want INVALID_PAYLOAD", err)
	}
}

func TestUpdateJobStatusMapsFields(t *testing.T) {
	store := &fakeStore{}
	p := newProcessor(t, &fakeRecognizer{}, store)
	ctx := context.Background()

	result := &ProcessResult{Text: "hi there", WordCount: 2, CharCount: 8, ProcessingTimeMs: 15}
	meta := result.ResultMetadata()
	meta["source"] = "scanner"
	if err := p.UpdateJobStatus(ctx, "j1", storage.StatusCompleted, meta); err != nil {
		t.Fatalf("UpdateJobStatus() error = %v", err)
	}

	failure := errors.NewOCRFailedError("j1", "TEXT_EXTRACTION", stderrors.New("failed to recognize text: crash"))
	if err := p.UpdateJobStatus(ctx, "j1", storage.StatusFailed, failure.ToMap()); err != nil {
		t.Fatalf("UpdateJobStatus() error = %v", err)
	}

	done, failed := store.updates[0], store.updates[1]
	if done.Text != "hi there" || done.WordCount != 2 || done.CharCount != 8 || done.ProcessingTimeMs != 15 {
		t.Errorf("unexpected completed update %+v", done)
	}
	if done.Metadata["source"] != "scanner" {
		t.Errorf("extra metadata lost: %v", done.Metadata)
	}
	if failed.ErrorCode != "OCR_FAILED" || failed.OCRKind != "TEXT_EXTRACTION" || failed.ErrorMessage != "failed to recognize text: crash" {
		t.Errorf("unexpected failed update %+v", failed)
	}
	if _, ok := failed.Metadata["timestamp"]; ok {
		t.Error("timestamp should not be stored as metadata")
	}
}

func TestUpdateJobStatusStoreError(t *testing.T) {
	p := newProcessor(t, &fakeRecognizer{}, &fakeStore{err: stderrors.New("connection refused")})
	err := p.UpdateJobStatus(context.Background(), "j1", storage.StatusProcessing, nil)
	var pe *errors.ProcessingError
	if !stderrors.As(err, &pe) || pe.Code != errors.ErrorDatabaseFailed {
		t.Fatalf("error = %v, want DATABASE_FAILED", err)
	}
}
