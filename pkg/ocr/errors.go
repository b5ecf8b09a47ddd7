package ocr

import (
	"errors"
	"fmt"
)

// Kind identifies the pipeline stage a failure belongs to.
type Kind string

// The six failure kinds. Every error returned by New or ProcessImage is an
// *Error carrying exactly one of them.
const (
	KindDetectionModelLoad   Kind = "DETECTION_MODEL_LOAD"
	KindRecognitionModelLoad Kind = "RECOGNITION_MODEL_LOAD"
	KindEngineConstruction   Kind = "ENGINE_CONSTRUCTION"
	KindImageDecode          Kind = "IMAGE_DECODE"
	KindInputPreparation     Kind = "INPUT_PREPARATION"
	KindTextExtraction       Kind = "TEXT_EXTRACTION"
)

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrDetectionModelLoad   = &Error{Kind: KindDetectionModelLoad}
	ErrRecognitionModelLoad = &Error{Kind: KindRecognitionModelLoad}
	ErrEngineConstruction   = &Error{Kind: KindEngineConstruction}
	ErrImageDecode          = &Error{Kind: KindImageDecode}
	ErrInputPreparation     = &Error{Kind: KindInputPreparation}
	ErrTextExtraction       = &Error{Kind: KindTextExtraction}
)

// Error is the single failure type of the facade. Message is complete on its
// own and already includes the collaborator's message; the collaborator error
// itself stays reachable through Unwrap.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

func newError(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

func newDetectionModelLoadError(path string, cause error) *Error {
	return newError(KindDetectionModelLoad, cause, "failed to load detection model from %s: %v", path, cause)
}

func newRecognitionModelLoadError(path string, cause error) *Error {
	return newError(KindRecognitionModelLoad, cause, "failed to load recognition model from %s: %v", path, cause)
}

func newEngineConstructionError(cause error) *Error {
	return newError(KindEngineConstruction, cause, "OCR engine construction error: %v", cause)
}

func newImageDecodeError(path string, cause error) *Error {
	return newError(KindImageDecode, cause, "failed to open image %s: %v", path, cause)
}

func newImageAdaptError(path string, cause error) *Error {
	return newError(KindInputPreparation, cause, "failed to process image %s: %v", path, cause)
}

func newInputPreparationError(cause error) *Error {
	return newError(KindInputPreparation, cause, "failed to prepare input: %v", cause)
}

func newTextExtractionError(cause error) *Error {
	return newError(KindTextExtraction, cause, "failed to recognize text: %v", cause)
}
