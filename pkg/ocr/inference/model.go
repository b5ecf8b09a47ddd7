package inference

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Component identifies one entry of a traineddata container.
type Component int

// Component slots in the order the container's offset table lists them.
const (
	ComponentLangConfig Component = iota
	ComponentUnicharset
	ComponentAmbigs
	ComponentIntTemp
	ComponentPffmTable
	ComponentNormProto
	ComponentPuncDawg
	ComponentSystemDawg
	ComponentNumberDawg
	ComponentFreqDawg
	ComponentFixedLengthDawgs
	ComponentCubeUnicharset
	ComponentCubeSystemDawg
	ComponentShapeTable
	ComponentBigramDawg
	ComponentUnambigDawg
	ComponentParamsModel
	ComponentLSTM
	ComponentLSTMPuncDawg
	ComponentLSTMSystemDawg
	ComponentLSTMNumberDawg
	ComponentLSTMUnicharset
	ComponentLSTMRecoder
	ComponentVersion

	// NumComponents is the number of slots a current traineddata file carries.
	NumComponents int = iota
)

const (
	// maxEntries bounds the offset table size accepted by the parser.
	maxEntries     = 1000
	entryCountSize = 4
	offsetSize     = 8
)

// Model is an immutable in-memory model artifact. It is safe to share between
// goroutines; nothing mutates it after LoadModelFile returns.
type Model struct {
	name     string
	path     string
	checksum string
	version  string
	data     []byte
	offsets  []int64
}

// LoadModelFile reads and parses the model artifact at path.
func LoadModelFile(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := ParseModel(data)
	if err != nil {
		return nil, err
	}
	m.path = path
	m.name = modelName(path)
	return m, nil
}

// ParseModel parses an in-memory traineddata container. The returned model
// keeps a private copy of data.
func ParseModel(data []byte) (*Model, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("model file is empty")
	}
	if len(data) < entryCountSize {
		return nil, fmt.Errorf("model file too short: %d bytes", len(data))
	}

	order := binary.ByteOrder(binary.LittleEndian)
	count := int64(int32(order.Uint32(data[:entryCountSize])))
	if count <= 0 || count > maxEntries {
		order = binary.BigEndian
		count = int64(int32(order.Uint32(data[:entryCountSize])))
	}
	if count <= 0 || count > maxEntries {
		return nil, fmt.Errorf("invalid component count in model header")
	}

	headerSize := int64(entryCountSize) + count*offsetSize
	if int64(len(data)) < headerSize {
		return nil, fmt.Errorf("truncated offset table: need %d bytes, have %d", headerSize, len(data))
	}

	offsets := make([]int64, count)
	last := int64(-1)
	present := 0
	for i := range offsets {
		start := entryCountSize + i*offsetSize
		off := int64(order.Uint64(data[start : start+offsetSize]))
		offsets[i] = off
		if off == -1 {
			continue
		}
		if off < headerSize || off > int64(len(data)) {
			return nil, fmt.Errorf("component %d offset %d outside file of %d bytes", i, off, len(data))
		}
		if off < last {
			return nil, fmt.Errorf("component %d offset %d precedes previous component", i, off)
		}
		last = off
		present++
	}
	if present == 0 {
		return nil, fmt.Errorf("model contains no components")
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	sum := sha256.Sum256(buf)

	m := &Model{
		checksum: hex.EncodeToString(sum[:]),
		data:     buf,
		offsets:  offsets,
	}
	if v := m.Component(ComponentVersion); len(v) > 0 {
		m.version = strings.TrimRight(string(v), "\x00")
	}
	return m, nil
}

// Name is the file base name without extension ("eng" for eng.traineddata).
func (m *Model) Name() string { return m.name }

// Path is the file the model was loaded from, empty for ParseModel.
func (m *Model) Path() string { return m.path }

// Checksum is the hex SHA-256 of the artifact bytes.
func (m *Model) Checksum() string { return m.checksum }

// Version is the embedded version string, if the artifact carries one.
func (m *Model) Version() string { return m.version }

// Size is the artifact size in bytes.
func (m *Model) Size() int { return len(m.data) }

// Has reports whether component c is present.
func (m *Model) Has(c Component) bool {
	return int(c) >= 0 && int(c) < len(m.offsets) && m.offsets[c] != -1
}

// Component returns a copy of the bytes of component c, or nil when absent.
func (m *Model) Component(c Component) []byte {
	if !m.Has(c) {
		return nil
	}
	start := m.offsets[c]
	end := int64(len(m.data))
	for _, off := range m.offsets[c+1:] {
		if off != -1 {
			end = off
			break
		}
	}
	out := make([]byte, end-start)
	copy(out, m.data[start:end])
	return out
}

// WriteTo writes the artifact bytes to w.
func (m *Model) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(m.data)
	return int64(n), err
}

func modelName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
