package doccache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"

	"cloud.google.com/go/storage"
)

// GCSBackend stores documents as objects in a Cloud Storage bucket, so
// multiple replicas share one fetched corpus. Object names are derived
// from the URL hash; the exact URL lives inside the payload.
type GCSBackend struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSBackend creates a backend over an existing bucket.
func NewGCSBackend(ctx context.Context, bucket, prefix string) (*GCSBackend, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs cache bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	if prefix == "" {
		prefix = "doccache"
	}
	return &GCSBackend{client: client, bucket: bucket, prefix: prefix}, nil
}

func (g *GCSBackend) object(url string) string {
	sum := sha256.Sum256([]byte(url))
	return path.Join(g.prefix, hex.EncodeToString(sum[:])+".json")
}

func (g *GCSBackend) Get(ctx context.Context, url string) (*Document, bool, error) {
	r, err := g.client.Bucket(g.bucket).Object(g.object(url)).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("gcs read %s: %w", url, err)
	}
	defer r.Close()

	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, false, fmt.Errorf("gcs read %s: %w", url, err)
	}

	var doc Document
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, false, fmt.Errorf("decode cached document %s: %w", url, err)
	}
	return &doc, true, nil
}

func (g *GCSBackend) Put(ctx context.Context, doc *Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	w := g.client.Bucket(g.bucket).Object(g.object(doc.URL)).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(payload); err != nil {
		w.Close()
		return fmt.Errorf("gcs write %s: %w", doc.URL, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs write %s: %w", doc.URL, err)
	}
	return nil
}

func (g *GCSBackend) Delete(ctx context.Context, url string) error {
	err := g.client.Bucket(g.bucket).Object(g.object(url)).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return err
}

func (g *GCSBackend) Close() error {
	return g.client.Close()
}
