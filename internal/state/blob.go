package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"

	"cloud.google.com/go/storage"

	"github.com/cloudtutor/cloudtutor/internal/model"
)

// BlobStore persists state as JSON objects in a Cloud Storage bucket,
// so every replica of the service shares one record per user.
type BlobStore struct {
	client *storage.Client
	bucket string
	prefix string
	logger *slog.Logger
}

// NewBlobStore opens a store over an existing bucket.
func NewBlobStore(ctx context.Context, bucket, prefix string, logger *slog.Logger) (*BlobStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("state blob bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, &StoreUnavailable{Backend: "blob", Err: err}
	}
	if prefix == "" {
		prefix = "state"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BlobStore{client: client, bucket: bucket, prefix: prefix, logger: logger}, nil
}

func (b *BlobStore) object(key string) string {
	return path.Join(b.prefix, key+".json")
}

func (b *BlobStore) Load(ctx context.Context, userID string) (*model.StudentState, error) {
	r, err := b.client.Bucket(b.bucket).Object(b.object(SanitizeUserID(userID))).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return model.NewStudentState(), nil
	}
	if err != nil {
		return nil, &StoreUnavailable{Backend: "blob", Err: err}
	}
	defer r.Close()

	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, &StoreUnavailable{Backend: "blob", Err: err}
	}

	var st model.StudentState
	if err := json.Unmarshal(payload, &st); err != nil {
		b.logger.Warn("state blob unreadable, starting fresh", "user_id", userID, "error", err)
		return model.NewStudentState(), nil
	}
	if st.DomainStats == nil {
		st.DomainStats = make(map[string]model.DomainStat)
	}
	return &st, nil
}

func (b *BlobStore) Save(ctx context.Context, userID string, st *model.StudentState) error {
	payload, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	w := b.client.Bucket(b.bucket).Object(b.object(SanitizeUserID(userID))).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(payload); err != nil {
		w.Close()
		return &StoreUnavailable{Backend: "blob", Err: err}
	}
	if err := w.Close(); err != nil {
		return &StoreUnavailable{Backend: "blob", Err: err}
	}
	return nil
}

func (b *BlobStore) Close() error {
	return b.client.Close()
}
