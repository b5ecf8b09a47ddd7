// Package inferencetest provides model artifacts, images and a deterministic
// engine for testing code built on the inference contract.
package inferencetest

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/adverant/nexus/ocr-engine/pkg/ocr/inference"
)

// BuildModel assembles a little-endian traineddata container holding the
// given components. Absent slots get offset -1.
func BuildModel(components map[inference.Component][]byte) []byte {
	n := inference.NumComponents
	header := 4 + 8*n
	size := header
	for _, b := range components {
		size += len(b)
	}

	buf := make([]byte, header, size)
	binary.LittleEndian.PutUint32(buf[:4], uint32(n))
	for i := 0; i < n; i++ {
		slot := buf[4+8*i : 12+8*i]
		body, ok := components[inference.Component(i)]
		if !ok {
			binary.LittleEndian.PutUint64(slot, ^uint64(0))
			continue
		}
		binary.LittleEndian.PutUint64(slot, uint64(len(buf)))
		buf = append(buf, body...)
	}
	return buf
}

// DetectionModelData returns a container shaped like osd.traineddata.
func DetectionModelData() []byte {
	return BuildModel(map[inference.Component][]byte{
		inference.ComponentUnicharset: []byte("3\nNULL 0 Common 0\nLatin 5 Latin 1\nCyrillic 5 Cyrillic 2\n"),
		inference.ComponentIntTemp:    []byte("inttemp-osd"),
		inference.ComponentPffmTable:  []byte("pffm-osd"),
		inference.ComponentNormProto:  []byte("normproto-osd"),
	})
}

// RecognitionModelData returns a container shaped like an LSTM language model.
func RecognitionModelData() []byte {
	return BuildModel(map[inference.Component][]byte{
		inference.ComponentLangConfig:     []byte("lstm_use_matrix 1\n"),
		inference.ComponentLSTM:           []byte("lstm-network"),
		inference.ComponentLSTMUnicharset: []byte("2\nNULL 0 Common 0\na 3 Latin 1\n"),
		inference.ComponentLSTMRecoder:    []byte("recoder"),
		inference.ComponentVersion:        []byte("4.1.0-test"),
	})
}

// WriteFile writes data to dir/name and returns the path.
func WriteFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// WriteModels writes a detection and a recognition model into dir and
// returns their paths.
func WriteModels(t testing.TB, dir string) (detection, recognition string) {
	t.Helper()
	detection = WriteFile(t, dir, "osd.traineddata", DetectionModelData())
	recognition = WriteFile(t, dir, "eng.traineddata", RecognitionModelData())
	return detection, recognition
}
