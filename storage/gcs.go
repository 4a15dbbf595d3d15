package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

type GCSConfig struct {
	Bucket      string
	ProjectID   string
	KeyFilename string
	URLExpiry   time.Duration
}

type GCS struct {
	client *gcs.Client
	cfg    GCSConfig
	logger *logrus.Logger
}

func NewGCS(ctx context.Context, cfg GCSConfig, log *logrus.Logger) (*GCS, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("STORAGE_BUCKET is required for gcs")
	}

	var opts []option.ClientOption
	if cfg.KeyFilename != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.KeyFilename))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &GCS{client: client, cfg: cfg, logger: log}, nil
}

func (g *GCS) Provider() string { return "gcs" }

func (g *GCS) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	w := g.client.Bucket(g.cfg.Bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		g.logger.WithError(err).WithFields(logrus.Fields{
			"bucket": g.cfg.Bucket,
			"key":    key,
		}).Error("Failed to upload to GCS")
		return fmt.Errorf("failed to upload to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize GCS upload: %w", err)
	}
	return nil
}

func (g *GCS) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, err := g.client.Bucket(g.cfg.Bucket).Object(key).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to download from GCS: %w", err)
	}
	return rc, nil
}

func (g *GCS) Delete(ctx context.Context, key string) error {
	err := g.client.Bucket(g.cfg.Bucket).Object(key).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete from GCS: %w", err)
	}
	return nil
}

func (g *GCS) URL(ctx context.Context, key string) (string, error) {
	url, err := g.client.Bucket(g.cfg.Bucket).SignedURL(key, &gcs.SignedURLOptions{
		Method:  "GET",
		Expires: time.Now().Add(g.cfg.URLExpiry),
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate GCS signed URL: %w", err)
	}
	return url, nil
}

func (g *GCS) Close() error {
	return g.client.Close()
}
