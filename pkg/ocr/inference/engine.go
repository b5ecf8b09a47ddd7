// Package inference defines the contract between the OCR facade and the
// engine that performs text detection and recognition. Engines are built once
// from a Params value and must be safe for concurrent PrepareInput and GetText
// calls; implementations achieve that by never mutating state after
// construction.
package inference

import "fmt"

// BytesPerPixel is the channel count of an ImageSource (R, G, B).
const BytesPerPixel = 3

// ImageSource is a row-major RGB pixel buffer.
type ImageSource struct {
	data   []byte
	width  int
	height int
}

// NewImageSource wraps raw RGB bytes. It does not copy data; callers must not
// modify it afterwards.
func NewImageSource(data []byte, width, height int) (ImageSource, error) {
	if width <= 0 || height <= 0 {
		return ImageSource{}, fmt.Errorf("image has zero size (%dx%d)", width, height)
	}
	if want := width * height * BytesPerPixel; len(data) != want {
		return ImageSource{}, fmt.Errorf("pixel data length %d does not match %dx%d RGB image (%d bytes)",
			len(data), width, height, want)
	}
	return ImageSource{data: data, width: width, height: height}, nil
}

// Pix returns the pixel bytes.
func (s ImageSource) Pix() []byte { return s.data }

// Width returns the image width in pixels.
func (s ImageSource) Width() int { return s.width }

// Height returns the image height in pixels.
func (s ImageSource) Height() int { return s.height }

// Input is an engine-prepared image. Its Data encoding is chosen by the
// engine that produced it and is only meaningful to that engine.
type Input struct {
	Data   []byte
	Width  int
	Height int
}

// Engine runs the two-stage recognition pipeline.
type Engine interface {
	// PrepareInput resizes and normalizes an image into the engine's input form.
	PrepareInput(src ImageSource) (*Input, error)
	// GetText detects and recognizes all text in a prepared input.
	GetText(in *Input) (string, error)
	// Close releases resources held by the engine.
	Close() error
}

// Constructor builds an Engine from a fully populated Params.
type Constructor func(Params) (Engine, error)
