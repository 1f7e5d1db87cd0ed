package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/modulescout/modulescout/internal/errors"
)

func TestEmbeddings_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "embeddings.f32")
	metaPath := filepath.Join(dir, "embeddings.f32.json")

	data := []float32{0.25, -1.5, 3.75, 0, 1e-7, 42}
	in := EmbeddingMeta{Model: "text-embedding-004", Dimensions: 3, BuiltAt: time.Now().UTC()}
	if err := WriteEmbeddings(path, metaPath, data, in); err != nil {
		t.Fatalf("WriteEmbeddings() error = %v", err)
	}

	got, meta, err := ReadEmbeddings(path, metaPath)
	if err != nil {
		t.Fatalf("ReadEmbeddings() error = %v", err)
	}
	if meta.Rows != 2 || meta.Dimensions != 3 {
		t.Errorf("meta = %+v, want 2 rows of 3", meta)
	}
	if meta.Model != in.Model {
		t.Errorf("Model = %q, want %q", meta.Model, in.Model)
	}
	if len(got) != len(data) {
		t.Fatalf("len = %d, want %d", len(got), len(data))
	}
	for i := range data {
		if got[i] != data[i] {
			t.Errorf("data[%d] = %v, want %v", i, got[i], data[i])
		}
	}
}

func TestWriteEmbeddings_RejectsRaggedData(t *testing.T) {
	dir := t.TempDir()
	err := WriteEmbeddings(filepath.Join(dir, "e.f32"), filepath.Join(dir, "e.json"),
		[]float32{1, 2, 3}, EmbeddingMeta{Dimensions: 2})
	if err == nil {
		t.Error("WriteEmbeddings() with ragged data should fail")
	}
}

func TestReadEmbeddings_TruncatedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "embeddings.f32")
	metaPath := filepath.Join(dir, "embeddings.f32.json")

	if err := WriteEmbeddings(path, metaPath, []float32{1, 2, 3, 4}, EmbeddingMeta{Dimensions: 2}); err != nil {
		t.Fatalf("WriteEmbeddings() error = %v", err)
	}
	// Chop the binary payload so it no longer matches the meta.
	if err := os.WriteFile(path, []byte{0, 0}, 0o644); err != nil {
		t.Fatal(err)
	}

	_, _, err := ReadEmbeddings(path, metaPath)
	var integrity *apperrors.CatalogIntegrityError
	if !errors.As(err, &integrity) {
		t.Errorf("ReadEmbeddings() error = %v, want CatalogIntegrityError", err)
	}
}

func TestReadEmbeddings_BadMeta(t *testing.T) {
	dir := t.TempDir()
	metaPath := filepath.Join(dir, "embeddings.f32.json")
	if err := os.WriteFile(metaPath, []byte(`{"dimensions": -1}`), 0o644); err != nil {
		t.Fatal(err)
	}

	_, _, err := ReadEmbeddings(filepath.Join(dir, "embeddings.f32"), metaPath)
	var integrity *apperrors.CatalogIntegrityError
	if !errors.As(err, &integrity) {
		t.Errorf("ReadEmbeddings() error = %v, want CatalogIntegrityError", err)
	}
}
