// Package storage keeps uploaded blobs out of the relational store. Records
// reference blobs by key; a Store turns keys into bytes and resolvable URLs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"govdocs/config"

	"github.com/sirupsen/logrus"
)

var ErrNotFound = errors.New("object not found")

type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	// URL returns a link the caller can fetch the object from.
	URL(ctx context.Context, key string) (string, error)
	Provider() string
}

// New builds the Store named by STORAGE_PROVIDER.
func New(ctx context.Context, cfg *config.Config, log *logrus.Logger) (Store, error) {
	sc := cfg.Storage
	expiry := time.Duration(sc.URLExpiry) * time.Second

	switch sc.Provider {
	case "", "local":
		return NewLocal(sc.LocalPath, cfg.PublicBaseURL+"/files", log)
	case "memory":
		return NewMemory(cfg.PublicBaseURL + "/files"), nil
	case "s3":
		return NewS3(ctx, S3Config{
			Bucket:          sc.Bucket,
			Region:          sc.AWSRegion,
			AccessKeyID:     sc.AWSAccessKey,
			SecretAccessKey: sc.AWSSecretKey,
			Endpoint:        sc.AWSEndpoint,
			ForcePathStyle:  sc.AWSPathStyle,
			URLExpiry:       expiry,
		}, log)
	case "gcs":
		return NewGCS(ctx, GCSConfig{
			Bucket:      sc.Bucket,
			ProjectID:   sc.GCPProjectID,
			KeyFilename: sc.GCPKeyFile,
			URLExpiry:   expiry,
		}, log)
	case "azure":
		return NewAzure(AzureConfig{
			Container:   sc.Bucket,
			AccountName: sc.AzureAccount,
			AccountKey:  sc.AzureKey,
			Endpoint:    sc.AzureEndpoint,
			URLExpiry:   expiry,
		}, log)
	}
	return nil, fmt.Errorf("unsupported STORAGE_PROVIDER %q", sc.Provider)
}

// DeleteAll removes every key, logging failures. Used to roll back blobs
// written for an operation whose database work did not commit.
func DeleteAll(ctx context.Context, s Store, log logrus.FieldLogger, keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
			log.WithError(err).WithField("key", key).Warn("Failed to remove orphaned blob")
		}
	}
}
