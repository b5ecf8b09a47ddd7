//go:build ocr

// Package tesseract implements inference.Engine on top of the Tesseract OCR
// engine via gosseract. It requires libtesseract and the "ocr" build tag.
// On macOS, install via:
//
//	brew install tesseract
//
// On Ubuntu/Debian:
//
//	apt-get install libtesseract-dev
package tesseract

import (
	"bytes"
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	"github.com/adverant/nexus/ocr-engine/pkg/ocr/inference"
)

const probeSize = 32

// Engine is a Tesseract-backed inference.Engine. Its fields are set once by
// New; each GetText call uses its own gosseract client.
type Engine struct {
	params   inference.Params
	dataDir  string
	language string
}

// New builds an engine from p. The detection model is installed as Tesseract's
// orientation and script model, the recognition model as the recognition
// language. A probe recognition verifies that Tesseract accepts both.
func New(p inference.Params) (inference.Engine, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := validatePair(p.DetectionModel, p.RecognitionModel); err != nil {
		return nil, err
	}

	language := recognitionLanguage(p.RecognitionModel)
	dir, err := materialize(p.DetectionModel, p.RecognitionModel, language)
	if err != nil {
		return nil, err
	}

	e := &Engine{params: p, dataDir: dir, language: language}
	if err := e.probe(); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("tesseract rejected models: %w", err)
	}
	return e, nil
}

// PrepareInput converts src into a grayscale PNG no larger than
// Params.MaxInputDimension on either side.
func (e *Engine) PrepareInput(src inference.ImageSource) (*inference.Input, error) {
	return prepareInput(src, e.params.MaxInputDimension)
}

// GetText runs detection and recognition on a prepared input.
func (e *Engine) GetText(in *inference.Input) (string, error) {
	if in == nil || len(in.Data) == 0 {
		return "", fmt.Errorf("empty input")
	}
	c, err := e.newClient()
	if err != nil {
		return "", err
	}
	defer c.Close()

	if err := c.SetImageFromBytes(in.Data); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// Close removes the engine's tessdata directory.
func (e *Engine) Close() error {
	return os.RemoveAll(e.dataDir)
}

func (e *Engine) newClient() (*gosseract.Client, error) {
	c := gosseract.NewClient()
	if err := e.configure(c); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (e *Engine) configure(c *gosseract.Client) error {
	if err := c.SetTessdataPrefix(e.dataDir); err != nil {
		return fmt.Errorf("set tessdata prefix: %w", err)
	}
	if err := c.SetLanguage(e.language); err != nil {
		return fmt.Errorf("set language: %w", err)
	}
	if err := c.SetPageSegMode(gosseract.PageSegMode(e.params.PageSegMode)); err != nil {
		return fmt.Errorf("set page segmentation mode: %w", err)
	}
	if e.params.DPI > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), strconv.Itoa(e.params.DPI)); err != nil {
			return fmt.Errorf("set dpi: %w", err)
		}
	}
	if e.params.AllowedChars != "" {
		if err := c.SetWhitelist(e.params.AllowedChars); err != nil {
			return fmt.Errorf("set whitelist: %w", err)
		}
	}
	if !e.params.Debug {
		if err := c.SetVariable(gosseract.SettableVariable("debug_file"), os.DevNull); err != nil {
			return fmt.Errorf("set debug file: %w", err)
		}
	}
	return nil
}

// probe forces Tesseract to load both models by recognizing a blank image.
func (e *Engine) probe() error {
	blank := imaging.New(probeSize, probeSize, color.White)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, blank, imaging.PNG); err != nil {
		return fmt.Errorf("encode probe image: %w", err)
	}
	_, err := e.GetText(&inference.Input{Data: buf.Bytes(), Width: probeSize, Height: probeSize})
	return err
}
