// Package storage persists uploaded evidence images on local disk or GCS.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/angelmondragon/ims-backend/pkg/config"
	"github.com/angelmondragon/ims-backend/pkg/logger"
	"github.com/angelmondragon/ims-backend/pkg/storage/gcs"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// ErrNotImage is returned when uploaded bytes do not sniff as an image.
var ErrNotImage = errors.New("file must be an image")

// Store writes objects and returns the URL they are served from.
type Store interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// Image is a sniffed upload ready to be stored.
type Image struct {
	Data        []byte
	ContentType string
	Extension   string
}

// DetectImage sniffs data and rejects anything that is not image/*.
func DetectImage(data []byte) (Image, error) {
	if len(data) == 0 {
		return Image{}, ErrNotImage
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return Image{}, fmt.Errorf("%w: detected %s", ErrNotImage, mt.String())
	}
	return Image{Data: data, ContentType: mt.String(), Extension: mt.Extension()}, nil
}

// EvidenceKey names an evidence object, e.g. assignments/<id>/approval/<uuid>.png.
func EvidenceKey(assignmentID uuid.UUID, kind, ext string) string {
	return path.Join("assignments", assignmentID.String(), kind, uuid.NewString()+ext)
}

// DeviceImageKey names a catalog photo for a device.
func DeviceImageKey(deviceID uuid.UUID, ext string) string {
	return path.Join("devices", deviceID.String(), uuid.NewString()+ext)
}

// New builds the configured store.
func New(ctx context.Context, cfg *config.Config, logg *logger.Logger) (Store, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverGCS:
		client, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
		if err != nil {
			return nil, err
		}
		return NewGCSStore(client), nil
	case config.StorageDriverLocal, "":
		return NewLocalStore(cfg.Storage.LocalDir, cfg.Storage.PublicBaseURL)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
}
