package ocr

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKinds(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		err     *Error
		kind    Kind
		message string
	}{
		{newDetectionModelLoadError("det.bin", cause), KindDetectionModelLoad, "failed to load detection model from det.bin: boom"},
		{newRecognitionModelLoadError("rec.bin", cause), KindRecognitionModelLoad, "failed to load recognition model from rec.bin: boom"},
		{newEngineConstructionError(cause), KindEngineConstruction, "OCR engine construction error: boom"},
		{newImageDecodeError("a.png", cause), KindImageDecode, "failed to open image a.png: boom"},
		{newImageAdaptError("a.png", cause), KindInputPreparation, "failed to process image a.png: boom"},
		{newInputPreparationError(cause), KindInputPreparation, "failed to prepare input: boom"},
		{newTextExtractionError(cause), KindTextExtraction, "failed to recognize text: boom"},
	}
	sentinels := []*Error{
		ErrDetectionModelLoad, ErrRecognitionModelLoad, ErrEngineConstruction,
		ErrImageDecode, ErrInputPreparation, ErrTextExtraction,
	}

	for _, tc := range tests {
		t.Run(string(tc.kind), func(t *testing.T) {
			if tc.err.Kind != tc.kind {
				t.Fatalf("Kind = %s, want %s", tc.err.Kind, tc.kind)
			}
			if tc.err.Error() != tc.message {
				t.Fatalf("Error() = %q, want %q", tc.err.Error(), tc.message)
			}
			if !errors.Is(tc.err, cause) {
				t.Fatal("cause not reachable through Unwrap")
			}
			matched := 0
			for _, s := range sentinels {
				if errors.Is(tc.err, s) {
					matched++
					if s.Kind != tc.kind {
						t.Fatalf("matched sentinel of kind %s", s.Kind)
					}
				}
			}
			if matched != 1 {
				t.Fatalf("matched %d sentinels, want exactly 1", matched)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("host: %w", newTextExtractionError(errors.New("x")))
	if k, ok := KindOf(wrapped); !ok || k != KindTextExtraction {
		t.Fatalf("KindOf(wrapped) = %s, %v", k, ok)
	}
	if _, ok := KindOf(errors.New("plain")); ok {
		t.Fatal("KindOf(plain) reported a kind")
	}
	if _, ok := KindOf(nil); ok {
		t.Fatal("KindOf(nil) reported a kind")
	}
}
