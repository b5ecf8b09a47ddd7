package ocr

import "github.com/adverant/nexus/ocr-engine/pkg/ocr/inference"

// modelLoader reads one model artifact from disk.
type modelLoader func(path string) (*inference.Model, error)

// loadModels loads the detection model and then the recognition model. The
// recognition path is not touched when the detection load fails, and no
// handle survives a failed call.
func loadModels(load modelLoader, detectionPath, recognitionPath string) (det, rec *inference.Model, err error) {
	det, err = load(detectionPath)
	if err != nil {
		return nil, nil, newDetectionModelLoadError(detectionPath, err)
	}
	rec, err = load(recognitionPath)
	if err != nil {
		return nil, nil, newRecognitionModelLoadError(recognitionPath, err)
	}
	return det, rec, nil
}
