package storage

import (
	"context"

	"github.com/angelmondragon/ims-backend/pkg/storage/gcs"
)

// GCSStore adapts the GCS client to Store.
type GCSStore struct {
	client *gcs.Client
}

func NewGCSStore(client *gcs.Client) *GCSStore {
	return &GCSStore{client: client}
}

func (s *GCSStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if err := s.client.Upload(ctx, key, contentType, data); err != nil {
		return "", err
	}
	return s.client.PublicURL(key), nil
}

func (s *GCSStore) Delete(ctx context.Context, key string) error {
	return s.client.Delete(ctx, key)
}

func (s *GCSStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}
