package ocr

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
)

func TestDecodeImageFlattensToRGB(t *testing.T) {
	dir := t.TempDir()

	rgba := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	rgba.SetNRGBA(0, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 0})
	rgba.SetNRGBA(2, 1, color.NRGBA{R: 200, G: 100, B: 50, A: 128})
	rgbaPath := filepath.Join(dir, "alpha.png")
	if err := imaging.Save(rgba, rgbaPath); err != nil {
		t.Fatal(err)
	}

	gray := image.NewGray(image.Rect(0, 0, 2, 2))
	gray.SetGray(1, 0, color.Gray{Y: 77})
	grayPath := filepath.Join(dir, "gray.png")
	if err := imaging.Save(gray, grayPath); err != nil {
		t.Fatal(err)
	}

	raw, err := decodeImage(rgbaPath)
	if err != nil {
		t.Fatalf("decodeImage(alpha) error = %v", err)
	}
	if raw.Width != 3 || raw.Height != 2 || len(raw.Pix) != 3*2*3 {
		t.Fatalf("unexpected raw image %dx%d len=%d", raw.Width, raw.Height, len(raw.Pix))
	}
	last := raw.Pix[len(raw.Pix)-3:]
	if last[0] != 200 || last[1] != 100 || last[2] != 50 {
		t.Fatalf("alpha pixel not kept as straight RGB: %v", last)
	}

	raw, err = decodeImage(grayPath)
	if err != nil {
		t.Fatalf("decodeImage(gray) error = %v", err)
	}
	if len(raw.Pix) != 2*2*3 {
		t.Fatalf("gray image not expanded to 3 channels: len=%d", len(raw.Pix))
	}
	px := raw.Pix[3:6]
	if px[0] != 77 || px[1] != 77 || px[2] != 77 {
		t.Fatalf("gray pixel = %v, want 77 on every channel", px)
	}
}

func TestAdaptImageRejectsStructuralMismatch(t *testing.T) {
	tests := []struct {
		name string
		raw  *RawImage
	}{
		{"zero sized", &RawImage{}},
		{"short buffer", &RawImage{Width: 2, Height: 2, Pix: make([]byte, 5)}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := adaptImage("x.png", tc.raw)
			oe := assertKind(t, err, KindInputPreparation)
			if oe.Message == "" {
				t.Fatal("empty message")
			}
		})
	}

	src, err := adaptImage("ok.png", &RawImage{Width: 1, Height: 1, Pix: []byte{1, 2, 3}})
	if err != nil {
		t.Fatalf("adaptImage() error = %v", err)
	}
	if src.Width() != 1 || src.Height() != 1 {
		t.Fatalf("unexpected source size %dx%d", src.Width(), src.Height())
	}
}
