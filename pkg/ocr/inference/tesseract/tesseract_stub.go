//go:build !ocr

// Package tesseract implements inference.Engine on top of the Tesseract OCR
// engine via gosseract.
//
// This is the stub implementation used when the "ocr" build tag is not set.
// New always returns ErrNotEnabled. To enable Tesseract, rebuild with:
//
//	go build -tags ocr
package tesseract

import "github.com/adverant/nexus/ocr-engine/pkg/ocr/inference"

// New returns ErrNotEnabled. To enable Tesseract, rebuild with: go build -tags ocr
func New(p inference.Params) (inference.Engine, error) {
	return nil, ErrNotEnabled
}
