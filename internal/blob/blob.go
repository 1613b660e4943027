// Package blob stores the original uploaded bytes.
package blob

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/contracts-extractor/internal/common"
)

// Store keeps immutable objects under caller-chosen keys.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) error
	// Open returns common.ErrNotFound when the key does not exist.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete is a no-op for missing keys.
	Delete(ctx context.Context, key string) error
}

// Key is the object key for a document's original bytes.
func Key(id uuid.UUID) string {
	return path.Join("contracts", id.String()+".pdf")
}

// New builds the configured backend.
func New(ctx context.Context, cfg common.StorageConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Backend {
	case "", "fs":
		s, err := NewFSStore(cfg.Dir, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "gcs":
		s, err := NewGCSStore(ctx, cfg.GCSBucket, cfg.GCSPrefix, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func validKey(key string) error {
	clean := path.Clean(key)
	if key == "" || clean != key || path.IsAbs(key) || strings.HasPrefix(clean, "..") {
		return common.InvalidInputf("invalid object key %q", key)
	}
	return nil
}
