package inferencetest

import (
	"image"
	"image/color"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/adverant/nexus/ocr-engine/pkg/ocr/inference"
)

// Backend builds fake engines. The text an engine "recognizes" is read back
// from the first pixel row of the image: the red channel of each pixel is one
// byte, terminated by the first zero. TextImage produces matching images.
type Backend struct {
	ConstructErr error
	PrepareErr   error
	ExtractErr   error

	constructed atomic.Int32
	closed      atomic.Int32

	mu     sync.Mutex
	params inference.Params
}

// New satisfies inference.Constructor.
func (b *Backend) New(p inference.Params) (inference.Engine, error) {
	b.constructed.Add(1)
	if b.ConstructErr != nil {
		return nil, b.ConstructErr
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.params = p
	b.mu.Unlock()
	return &Engine{backend: b}, nil
}

// Constructed returns how many times New was called.
func (b *Backend) Constructed() int { return int(b.constructed.Load()) }

// Closed returns how many engines were closed.
func (b *Backend) Closed() int { return int(b.closed.Load()) }

// Params returns the configuration of the last engine built.
func (b *Backend) Params() inference.Params {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.params
}

// Engine is a read-only fake inference.Engine.
type Engine struct {
	backend *Backend
}

func (e *Engine) PrepareInput(src inference.ImageSource) (*inference.Input, error) {
	if e.backend.PrepareErr != nil {
		return nil, e.backend.PrepareErr
	}
	data := make([]byte, len(src.Pix()))
	copy(data, src.Pix())
	return &inference.Input{Data: data, Width: src.Width(), Height: src.Height()}, nil
}

func (e *Engine) GetText(in *inference.Input) (string, error) {
	if e.backend.ExtractErr != nil {
		return "", e.backend.ExtractErr
	}
	var text []byte
	for x := 0; x < in.Width; x++ {
		r := in.Data[x*inference.BytesPerPixel]
		if r == 0 {
			break
		}
		text = append(text, r)
	}
	return string(text), nil
}

func (e *Engine) Close() error {
	e.backend.closed.Add(1)
	return nil
}

// TextImage returns an image the fake engine reads as text.
func TextImage(text string) *image.NRGBA {
	w := len(text) + 1
	if w < 8 {
		w = 8
	}
	img := imaging.New(w, 4, color.NRGBA{A: 255})
	for x := 0; x < len(text); x++ {
		img.SetNRGBA(x, 0, color.NRGBA{R: text[x], G: 128, B: 64, A: 255})
	}
	for y := 1; y < 4; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}
	return img
}

// WriteTextImage saves TextImage(text) to dir/name; the extension selects the
// format and must be lossless (png, bmp, tif).
func WriteTextImage(t testing.TB, dir, name, text string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := imaging.Save(TextImage(text), path); err != nil {
		t.Fatalf("save %s: %v", path, err)
	}
	return path
}
