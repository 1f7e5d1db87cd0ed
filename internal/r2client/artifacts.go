package r2client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/modulescout/modulescout/internal/catalog"
)

// DefaultArtifactPrefix is where the indexer publishes and the server
// fetches the current artifact set.
const DefaultArtifactPrefix = "artifacts/latest"

// Object keys within an artifact prefix. The embedding blob is compressed;
// the small JSON sidecars are stored as-is.
const (
	catalogObject    = "catalog.json.zst"
	statsObject      = "stats.json.zst"
	embeddingsObject = "embeddings.f32.zst"
	metaObject       = "embeddings.json"
	manifestObject   = "manifest.json"
)

// Manifest describes one published artifact set.
type Manifest struct {
	Modules     int       `json:"modules"`
	Model       string    `json:"model"`
	Dimensions  int       `json:"dimensions"`
	PublishedAt time.Time `json:"published_at"`
}

// PublishArtifacts uploads the catalogue files under the given prefix,
// compressing the large ones, and writes the manifest last so readers
// never see a manifest pointing at half-uploaded artifacts.
func PublishArtifacts(ctx context.Context, client *Client, prefix string, paths catalog.Paths, manifest Manifest) error {
	uploads := []struct {
		src      string
		key      string
		optional bool
	}{
		{paths.Catalog, catalogObject, false},
		{paths.Stats, statsObject, true},
		{paths.Embeddings, embeddingsObject, false},
	}

	for _, u := range uploads {
		if err := uploadCompressed(ctx, client, u.src, path.Join(prefix, u.key)); err != nil {
			if u.optional && errors.Is(err, os.ErrNotExist) {
				continue
			}
			return err
		}
	}

	meta, err := os.ReadFile(paths.EmbeddingsMeta)
	if err != nil {
		return fmt.Errorf("read embeddings meta: %w", err)
	}
	if _, err := client.Upload(ctx, path.Join(prefix, metaObject), bytes.NewReader(meta), "application/json"); err != nil {
		return err
	}

	manifestData, err := json.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if _, err := client.Upload(ctx, path.Join(prefix, manifestObject), bytes.NewReader(manifestData), "application/json"); err != nil {
		return err
	}
	return nil
}

// FetchArtifacts downloads a published artifact set into local files,
// decompressing on the way. Returns the manifest that was published with it.
func FetchArtifacts(ctx context.Context, client *Client, prefix string, paths catalog.Paths) (*Manifest, error) {
	manifest, err := fetchManifest(ctx, client, path.Join(prefix, manifestObject))
	if err != nil {
		return nil, err
	}

	downloads := []struct {
		key      string
		dst      string
		optional bool
	}{
		{catalogObject, paths.Catalog, false},
		{statsObject, paths.Stats, true},
		{embeddingsObject, paths.Embeddings, false},
	}

	for _, d := range downloads {
		if err := downloadCompressed(ctx, client, path.Join(prefix, d.key), d.dst); err != nil {
			if d.optional && errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
	}

	body, _, err := client.Download(ctx, path.Join(prefix, metaObject))
	if err != nil {
		return nil, err
	}
	defer func() { _ = body.Close() }()

	meta, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read embeddings meta: %w", err)
	}
	if err := os.WriteFile(paths.EmbeddingsMeta, meta, 0o644); err != nil {
		return nil, fmt.Errorf("write embeddings meta: %w", err)
	}
	return manifest, nil
}

func fetchManifest(ctx context.Context, client *Client, key string) (*Manifest, error) {
	body, _, err := client.Download(ctx, key)
	if err != nil {
		return nil, err
	}
	defer func() { _ = body.Close() }()

	var manifest Manifest
	if err := json.NewDecoder(body).Decode(&manifest); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &manifest, nil
}

// uploadCompressed zstd-compresses a local file into a temp file next to it
// and uploads the result.
func uploadCompressed(ctx context.Context, client *Client, srcPath, key string) error {
	tmpPath := srcPath + ".zst.tmp"
	if err := CompressFile(srcPath, tmpPath); err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmpPath) }()

	f, err := os.Open(tmpPath)
	if err != nil {
		return fmt.Errorf("open compressed %q: %w", tmpPath, err)
	}
	defer func() { _ = f.Close() }()

	_, err = client.Upload(ctx, key, f, "application/zstd")
	return err
}

func downloadCompressed(ctx context.Context, client *Client, key, dstPath string) error {
	body, _, err := client.Download(ctx, key)
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }()

	return DecompressStream(body, dstPath)
}

// CompressFile compresses a file with zstd into dstPath.
func CompressFile(srcPath, dstPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("compress: open source: %w", err)
	}
	defer func() { _ = src.Close() }()

	dst, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("compress: create dest: %w", err)
	}
	defer func() { _ = dst.Close() }()

	encoder, err := zstd.NewWriter(dst, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return fmt.Errorf("compress: create encoder: %w", err)
	}

	if _, err := io.Copy(encoder, src); err != nil {
		_ = encoder.Close()
		return fmt.Errorf("compress: copy: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("compress: close encoder: %w", err)
	}
	return nil
}

// DecompressStream streams zstd-compressed data into dstPath.
func DecompressStream(r io.Reader, dstPath string) error {
	decoder, err := zstd.NewReader(r)
	if err != nil {
		return fmt.Errorf("decompress: create decoder: %w", err)
	}
	defer decoder.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("decompress: create dest: %w", err)
	}
	defer func() { _ = dst.Close() }()

	if _, err := io.Copy(dst, decoder); err != nil {
		return fmt.Errorf("decompress: copy: %w", err)
	}
	return nil
}
