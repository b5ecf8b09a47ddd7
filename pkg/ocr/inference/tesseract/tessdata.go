package tesseract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/adverant/nexus/ocr-engine/pkg/ocr/inference"
)

// ErrNotEnabled is returned by New when Tesseract support was not compiled in.
// Rebuild with -tags ocr to enable it.
var ErrNotEnabled = errors.New("tesseract support not enabled; rebuild with -tags ocr")

const (
	detectionLanguage  = "osd"
	fallbackLanguage   = "recognition"
	traineddataExt     = ".traineddata"
	tessdataDirPattern = "ocr-tessdata-*"
	tessdataFileMode   = 0o600
)

var languagePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// validatePair checks that the two models can serve their pipeline stages
// together.
func validatePair(det, rec *inference.Model) error {
	if !det.Has(inference.ComponentUnicharset) || !det.Has(inference.ComponentIntTemp) {
		return fmt.Errorf("detection model %s lacks the orientation classifier (unicharset, inttemp)", label(det))
	}
	hasLegacy := rec.Has(inference.ComponentUnicharset) && rec.Has(inference.ComponentIntTemp)
	if !rec.Has(inference.ComponentLSTM) && !hasLegacy {
		return fmt.Errorf("recognition model %s has no recognizer (lstm or legacy classifier)", label(rec))
	}
	if det.Checksum() == rec.Checksum() {
		return fmt.Errorf("detection and recognition models are the same artifact (%s)", label(rec))
	}
	return nil
}

// recognitionLanguage picks the language name the recognition model is
// installed under.
func recognitionLanguage(rec *inference.Model) string {
	name := rec.Name()
	if name == detectionLanguage || !languagePattern.MatchString(name) {
		return fallbackLanguage
	}
	return name
}

// materialize writes both models into a new private tessdata directory.
// The caller owns the directory and must remove it.
func materialize(det, rec *inference.Model, language string) (string, error) {
	dir, err := os.MkdirTemp("", tessdataDirPattern)
	if err != nil {
		return "", fmt.Errorf("create tessdata directory: %w", err)
	}
	files := []struct {
		lang  string
		model *inference.Model
	}{
		{detectionLanguage, det},
		{language, rec},
	}
	for _, f := range files {
		if err := writeModel(filepath.Join(dir, f.lang+traineddataExt), f.model); err != nil {
			os.RemoveAll(dir)
			return "", err
		}
	}
	return dir, nil
}

func writeModel(path string, m *inference.Model) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, tessdataFileMode)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	if _, err := m.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	return nil
}

func label(m *inference.Model) string {
	switch {
	case m.Path() != "":
		return m.Path()
	case m.Name() != "":
		return m.Name()
	default:
		return "(in-memory)"
	}
}
