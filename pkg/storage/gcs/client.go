// Package gcs stores evidence and device images in a Cloud Storage bucket
// through the JSON API.
package gcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/ims-backend/pkg/config"
	"github.com/angelmondragon/ims-backend/pkg/logger"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	storagev1 "google.golang.org/api/storage/v1"
)

const (
	publicHost   = "https://storage.googleapis.com"
	pingTimeout  = 5 * time.Second
	cacheControl = "public, max-age=31536000, immutable"
)

// Client writes to a single bucket. Object names are generated per upload and
// never overwritten, so objects are served with a long immutable cache.
type Client struct {
	objects    *storagev1.ObjectsService
	bucket     string
	publicBase string
}

// NewClient authenticates with inline service account JSON, a credentials
// file, or Application Default Credentials, in that order, and checks that
// the bucket is listable before returning.
func NewClient(ctx context.Context, cfg config.GCSConfig, gcp config.GCPConfig, logg *logger.Logger) (*Client, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("gcs bucket name is required")
	}

	opts := []option.ClientOption{option.WithScopes(storagev1.DevstorageReadWriteScope)}
	switch {
	case gcp.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(gcp.CredentialsJSON)))
	case gcp.ApplicationCredentials != "":
		opts = append(opts, option.WithCredentialsFile(gcp.ApplicationCredentials))
	}

	client, err := newClient(ctx, cfg.BucketName, publicHost, opts...)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("gcs health check failed: %w", err)
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "bucket", cfg.BucketName), "gcs client initialized")
	}
	return client, nil
}

func newClient(ctx context.Context, bucket, publicBase string, opts ...option.ClientOption) (*Client, error) {
	svc, err := storagev1.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage service: %w", err)
	}
	return &Client{
		objects:    svc.Objects,
		bucket:     bucket,
		publicBase: strings.TrimRight(publicBase, "/"),
	}, nil
}

func (c *Client) Bucket() string {
	if c == nil {
		return ""
	}
	return c.bucket
}

// PublicURL is the https address an object is served from.
func (c *Client) PublicURL(object string) string {
	parts := strings.Split(object, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return c.publicBase + "/" + c.bucket + "/" + strings.Join(parts, "/")
}

// Ping lists at most one object, which needs storage.objects.list.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.objects == nil {
		return errors.New("gcs client not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if _, err := c.objects.List(c.bucket).MaxResults(1).Fields("items(name)").Context(ctx).Do(); err != nil {
		return fmt.Errorf("gcs list %s: %w", c.bucket, err)
	}
	return nil
}

func (c *Client) Upload(ctx context.Context, object, contentType string, data []byte) error {
	if c == nil || c.objects == nil {
		return errors.New("gcs client not initialized")
	}
	if object == "" {
		return errors.New("object name is required")
	}

	meta := &storagev1.Object{Name: object, ContentType: contentType, CacheControl: cacheControl}
	_, err := c.objects.Insert(c.bucket, meta).
		Media(bytes.NewReader(data), googleapi.ContentType(contentType)).
		Fields("name").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("gcs upload %q: %w", object, err)
	}
	return nil
}

// Delete removes an object. A missing object counts as deleted.
func (c *Client) Delete(ctx context.Context, object string) error {
	if c == nil || c.objects == nil {
		return errors.New("gcs client not initialized")
	}
	err := c.objects.Delete(c.bucket, object).Context(ctx).Do()
	if err == nil || isNotFound(err) {
		return nil
	}
	return fmt.Errorf("gcs delete %q: %w", object, err)
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
