// Package blob persists uploaded bytes. The medium is chosen once from
// configuration: S3-compatible object storage when a blob token is set,
// local disk otherwise.
package blob

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/geocoder89/sitecms/internal/config"
)

var ErrInvalidKey = errors.New("invalid blob key")

type Store interface {
	// Put stores r under key and returns the public URL.
	Put(ctx context.Context, key, contentType string, r io.Reader, size int64) (string, error)
	Name() string
}

func New(ctx context.Context, cfg config.Config) (Store, error) {
	if cfg.UsesObjectStorage() {
		return NewS3(ctx, S3Config{
			Bucket:    cfg.BlobBucket,
			Region:    cfg.BlobRegion,
			Endpoint:  cfg.BlobEndpoint,
			AccessKey: cfg.BlobAccessKey,
			Secret:    cfg.BlobToken,
			PublicURL: cfg.BlobPublicURL,
		})
	}
	return NewLocal(cfg.UploadDir, cfg.MediaBaseURL)
}

// cleanKey rejects keys that would escape the store root.
func cleanKey(key string) (string, error) {
	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	if key == "" {
		return "", ErrInvalidKey
	}

	cleaned := path.Clean(key)
	if cleaned != key || cleaned == "." || strings.HasPrefix(cleaned, "../") || cleaned == ".." {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
