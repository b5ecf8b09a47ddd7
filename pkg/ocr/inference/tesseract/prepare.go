package tesseract

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/adverant/nexus/ocr-engine/pkg/ocr/inference"
)

// prepareInput rebuilds the RGB source, shrinks it so neither side exceeds
// maxDim, converts it to grayscale and encodes it as PNG for Tesseract.
func prepareInput(src inference.ImageSource, maxDim int) (*inference.Input, error) {
	w, h := src.Width(), src.Height()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("image has zero size (%dx%d)", w, h)
	}
	if maxDim <= 0 {
		return nil, fmt.Errorf("max input dimension must be positive, got %d", maxDim)
	}

	rgba := image.NewNRGBA(image.Rect(0, 0, w, h))
	pix := src.Pix()
	for i, j := 0, 0; i < len(pix); i, j = i+inference.BytesPerPixel, j+4 {
		rgba.Pix[j] = pix[i]
		rgba.Pix[j+1] = pix[i+1]
		rgba.Pix[j+2] = pix[i+2]
		rgba.Pix[j+3] = 0xff
	}

	var img image.Image = rgba
	if w > maxDim || h > maxDim {
		img = imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
	}
	gray := imaging.Grayscale(img)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, gray, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode input: %w", err)
	}
	b := gray.Bounds()
	return &inference.Input{Data: buf.Bytes(), Width: b.Dx(), Height: b.Dy()}, nil
}
