// Package ocr turns images into text using a text-detection model and a
// text-recognition model.
//
// An Engine is built once from the two model files and can then process any
// number of images, concurrently if the caller wishes:
//
//	engine, err := ocr.New("models/osd.traineddata", "models/eng.traineddata")
//	if err != nil {
//		return err
//	}
//	defer engine.Close()
//
//	text, err := engine.ProcessImage("scan.png")
//
// Every error returned by New and ProcessImage is an *Error whose Kind names
// the failing stage; use errors.Is with the Err* sentinels or KindOf to tell
// them apart.
package ocr

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/adverant/nexus/ocr-engine/pkg/ocr/inference"
	"github.com/adverant/nexus/ocr-engine/pkg/ocr/inference/tesseract"
)

var (
	errNilEngine = errors.New("backend returned no engine")
	errNilInput  = errors.New("backend returned no input")
)

// Engine is the OCR facade. It owns both loaded models and the inference
// engine built from them. None of its state changes after New returns, so
// ProcessImage may be called from multiple goroutines.
type Engine struct {
	engine inference.Engine
	params inference.Params
	log    *zap.Logger
}

// Option configures New.
type Option func(*options)

type options struct {
	backend inference.Constructor
	load    modelLoader
	log     *zap.Logger
}

// WithBackend selects the inference engine implementation. The default is
// the Tesseract backend.
func WithBackend(c inference.Constructor) Option {
	return func(o *options) {
		if c != nil {
			o.backend = c
		}
	}
}

// WithLogger attaches a logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

func withModelLoader(l modelLoader) Option {
	return func(o *options) { o.load = l }
}

// New loads the detection model, then the recognition model, and builds the
// inference engine from them with the default parameters.
func New(detectionModelPath, recognitionModelPath string, opts ...Option) (*Engine, error) {
	o := options{
		backend: tesseract.New,
		load:    inference.LoadModelFile,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	det, rec, err := loadModels(o.load, detectionModelPath, recognitionModelPath)
	if err != nil {
		o.log.Warn("model loading failed", zap.Error(err))
		return nil, err
	}

	params := inference.DefaultParams()
	params.DetectionModel = det
	params.RecognitionModel = rec

	var engine inference.Engine
	err = recovered(func() (err error) {
		engine, err = o.backend(params)
		return err
	})
	if err == nil && engine == nil {
		err = errNilEngine
	}
	if err != nil {
		cerr := newEngineConstructionError(err)
		o.log.Warn("engine construction failed", zap.Error(cerr))
		return nil, cerr
	}

	o.log.Info("ocr engine ready",
		zap.String("detection_model", detectionModelPath),
		zap.String("recognition_model", recognitionModelPath),
		zap.String("recognition_version", rec.Version()),
	)
	return &Engine{engine: engine, params: params, log: o.log}, nil
}

// ProcessImage decodes the image at imagePath, hands it to the inference
// engine and returns the recognized text. Lines are separated by '\n'.
func (e *Engine) ProcessImage(imagePath string) (string, error) {
	start := time.Now()

	raw, err := decodeImage(imagePath)
	if err != nil {
		return "", e.fail(imagePath, err)
	}
	src, err := adaptImage(imagePath, raw)
	if err != nil {
		return "", e.fail(imagePath, err)
	}
	var input *inference.Input
	err = recovered(func() (err error) {
		input, err = e.engine.PrepareInput(src)
		return err
	})
	if err == nil && input == nil {
		err = errNilInput
	}
	if err != nil {
		return "", e.fail(imagePath, newInputPreparationError(err))
	}
	var text string
	err = recovered(func() (err error) {
		text, err = e.engine.GetText(input)
		return err
	})
	if err != nil {
		return "", e.fail(imagePath, newTextExtractionError(err))
	}

	e.log.Debug("image processed",
		zap.String("path", imagePath),
		zap.Int("width", raw.Width),
		zap.Int("height", raw.Height),
		zap.Int("chars", len(text)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return text, nil
}

// Params returns the configuration the inference engine was built with.
func (e *Engine) Params() inference.Params {
	return e.params
}

// Close releases the inference engine. The Engine must not be used afterwards.
func (e *Engine) Close() error {
	return e.engine.Close()
}

func (e *Engine) fail(path string, err error) error {
	kind, _ := KindOf(err)
	e.log.Debug("image processing failed", zap.String("path", path), zap.String("kind", string(kind)), zap.Error(err))
	return err
}

// recovered runs fn and turns a panic inside it into an error.
func recovered(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
