package tesseract

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/adverant/nexus/ocr-engine/pkg/ocr/inference"
)

func rgbSource(t *testing.T, w, h int, c color.NRGBA) inference.ImageSource {
	t.Helper()
	pix := make([]byte, 0, w*h*inference.BytesPerPixel)
	for i := 0; i < w*h; i++ {
		pix = append(pix, c.R, c.G, c.B)
	}
	src, err := inference.NewImageSource(pix, w, h)
	if err != nil {
		t.Fatal(err)
	}
	return src
}

func TestPrepareInputKeepsSmallImages(t *testing.T) {
	src := rgbSource(t, 40, 20, color.NRGBA{R: 200, G: 10, B: 10})

	in, err := prepareInput(src, inference.DefaultMaxInputDimension)
	if err != nil {
		t.Fatalf("prepareInput() error = %v", err)
	}
	if in.Width != 40 || in.Height != 20 {
		t.Fatalf("unexpected size %dx%d", in.Width, in.Height)
	}

	img, err := imaging.Decode(bytes.NewReader(in.Data))
	if err != nil {
		t.Fatalf("prepared input is not a decodable image: %v", err)
	}
	r, g, b, _ := img.At(5, 5).RGBA()
	if r != g || g != b {
		t.Fatalf("expected grayscale pixel, got %d %d %d", r, g, b)
	}
}

func TestPrepareInputDownscales(t *testing.T) {
	src := rgbSource(t, 300, 100, color.NRGBA{R: 255, G: 255, B: 255})

	in, err := prepareInput(src, 150)
	if err != nil {
		t.Fatalf("prepareInput() error = %v", err)
	}
	if in.Width != 150 || in.Height != 50 {
		t.Fatalf("expected 150x50 after fit, got %dx%d", in.Width, in.Height)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(in.Data))
	if err != nil {
		t.Fatal(err)
	}
	if format != "png" || cfg.Width != 150 || cfg.Height != 50 {
		t.Fatalf("unexpected encoded image %s %dx%d", format, cfg.Width, cfg.Height)
	}
}

func TestPrepareInputRejectsZeroSource(t *testing.T) {
	if _, err := prepareInput(inference.ImageSource{}, 100); err == nil {
		t.Fatal("expected error for zero-value source")
	}
	src := rgbSource(t, 2, 2, color.NRGBA{})
	if _, err := prepareInput(src, 0); err == nil {
		t.Fatal("expected error for zero max dimension")
	}
}
