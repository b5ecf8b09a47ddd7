package inference

import "fmt"

// Default tunables used by DefaultParams.
const (
	DefaultPageSegMode       = 1
	DefaultMaxInputDimension = 4096
	DefaultDPI               = 300
)

// Params configures an Engine. Build one with DefaultParams and set the two
// model fields; an Engine never modifies its Params.
type Params struct {
	// DetectionModel locates text regions and their orientation.
	DetectionModel *Model
	// RecognitionModel turns located text into characters.
	RecognitionModel *Model

	// PageSegMode selects how the page is split into text regions.
	// 1 means automatic segmentation with orientation and script detection.
	PageSegMode int
	// MaxInputDimension caps the longest side of a prepared input in pixels.
	MaxInputDimension int
	// DPI is the resolution hint passed to the recognizer. Zero leaves it unset.
	DPI int
	// AllowedChars restricts recognized characters. Empty allows everything.
	AllowedChars string
	// Debug enables engine diagnostics.
	Debug bool
}

// DefaultParams returns the baseline configuration with no models set.
func DefaultParams() Params {
	return Params{
		PageSegMode:       DefaultPageSegMode,
		MaxInputDimension: DefaultMaxInputDimension,
		DPI:               DefaultDPI,
	}
}

// Validate reports the first problem that would prevent building an engine.
func (p Params) Validate() error {
	if p.DetectionModel == nil {
		return fmt.Errorf("detection model is required")
	}
	if p.RecognitionModel == nil {
		return fmt.Errorf("recognition model is required")
	}
	if p.PageSegMode < 0 || p.PageSegMode > 13 {
		return fmt.Errorf("page segmentation mode must be between 0 and 13, got %d", p.PageSegMode)
	}
	if p.MaxInputDimension <= 0 {
		return fmt.Errorf("max input dimension must be positive, got %d", p.MaxInputDimension)
	}
	if p.DPI < 0 {
		return fmt.Errorf("dpi must not be negative, got %d", p.DPI)
	}
	return nil
}
