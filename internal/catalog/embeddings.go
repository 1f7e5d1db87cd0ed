package catalog

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	apperrors "github.com/modulescout/modulescout/internal/errors"
)

// EmbeddingMeta is the JSON sidecar written next to the raw vector file.
// Rows and Dimensions let a loader validate the binary payload before
// trusting it.
type EmbeddingMeta struct {
	Model      string    `json:"model"`
	Dimensions int       `json:"dimensions"`
	Rows       int       `json:"rows"`
	BuiltAt    time.Time `json:"built_at"`
}

// ReadEmbeddings reads a raw little-endian float32 matrix and its meta
// sidecar. The returned slice is row-major with meta.Rows rows of
// meta.Dimensions values each.
func ReadEmbeddings(path, metaPath string) ([]float32, EmbeddingMeta, error) {
	var meta EmbeddingMeta

	raw, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, meta, fmt.Errorf("read embedding meta: %w", err)
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, meta, apperrors.NewCatalogIntegrityError(metaPath, "invalid embedding meta: %v", err)
	}
	if meta.Dimensions <= 0 || meta.Rows < 0 {
		return nil, meta, apperrors.NewCatalogIntegrityError(metaPath,
			"embedding meta declares rows=%d dimensions=%d", meta.Rows, meta.Dimensions)
	}

	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, meta, fmt.Errorf("read embeddings: %w", err)
	}
	want := meta.Rows * meta.Dimensions * 4
	if len(blob) != want {
		return nil, meta, apperrors.NewCatalogIntegrityError(path,
			"embedding file is %d bytes, meta declares %d", len(blob), want)
	}

	data := make([]float32, meta.Rows*meta.Dimensions)
	for i := range data {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		data[i] = math.Float32frombits(bits)
	}
	return data, meta, nil
}

// WriteEmbeddings writes the row-major matrix and its meta sidecar. The
// meta's Rows field is derived from the data so the two cannot drift.
func WriteEmbeddings(path, metaPath string, data []float32, meta EmbeddingMeta) error {
	if meta.Dimensions <= 0 {
		return fmt.Errorf("write embeddings: dimensions must be positive, got %d", meta.Dimensions)
	}
	if len(data)%meta.Dimensions != 0 {
		return fmt.Errorf("write embeddings: data length %d is not a multiple of %d", len(data), meta.Dimensions)
	}
	meta.Rows = len(data) / meta.Dimensions

	blob := make([]byte, len(data)*4)
	for i, v := range data {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	if err := os.WriteFile(path, blob, 0o644); err != nil {
		return fmt.Errorf("write embeddings: %w", err)
	}

	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal embedding meta: %w", err)
	}
	if err := os.WriteFile(metaPath, raw, 0o644); err != nil {
		return fmt.Errorf("write embedding meta: %w", err)
	}
	return nil
}
