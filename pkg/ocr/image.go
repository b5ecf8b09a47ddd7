package ocr

import (
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/adverant/nexus/ocr-engine/pkg/ocr/inference"
)

// RawImage is a decoded image as row-major RGB bytes, three per pixel.
type RawImage struct {
	Width  int
	Height int
	Pix    []byte
}

// decodeImage opens path with the general image codec and flattens the result
// to RGB. Alpha is dropped without compositing and gray is expanded.
func decodeImage(path string) (*RawImage, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, newImageDecodeError(path, err)
	}

	nrgba := imaging.Clone(img)
	w, h := nrgba.Bounds().Dx(), nrgba.Bounds().Dy()
	pix := make([]byte, 0, w*h*inference.BytesPerPixel)
	for i := 0; i < len(nrgba.Pix); i += 4 {
		pix = append(pix, nrgba.Pix[i], nrgba.Pix[i+1], nrgba.Pix[i+2])
	}
	return &RawImage{Width: w, Height: h, Pix: pix}, nil
}

// adaptImage wraps a RawImage as the engine's image source without resampling.
func adaptImage(path string, raw *RawImage) (inference.ImageSource, error) {
	src, err := inference.NewImageSource(raw.Pix, raw.Width, raw.Height)
	if err != nil {
		return inference.ImageSource{}, newImageAdaptError(path, err)
	}
	return src, nil
}
