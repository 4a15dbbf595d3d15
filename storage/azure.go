package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/Azure/azure-storage-blob-go/azblob"
	"github.com/sirupsen/logrus"
)

type AzureConfig struct {
	Container   string
	AccountName string
	AccountKey  string
	Endpoint    string
	URLExpiry   time.Duration
}

type Azure struct {
	container azblob.ContainerURL
	cred      *azblob.SharedKeyCredential
	cfg       AzureConfig
	logger    *logrus.Logger
}

func NewAzure(cfg AzureConfig, log *logrus.Logger) (*Azure, error) {
	if cfg.Container == "" || cfg.AccountName == "" || cfg.AccountKey == "" {
		return nil, errors.New("azure storage needs STORAGE_BUCKET, AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY")
	}

	cred, err := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.AccountName)
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint URL: %w", err)
	}

	service := azblob.NewServiceURL(*u, azblob.NewPipeline(cred, azblob.PipelineOptions{}))
	return &Azure{
		container: service.NewContainerURL(cfg.Container),
		cred:      cred,
		cfg:       cfg,
		logger:    log,
	}, nil
}

func (a *Azure) Provider() string { return "azure" }

func (a *Azure) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	blob := a.container.NewBlockBlobURL(key)
	_, err := azblob.UploadStreamToBlockBlob(ctx, r, blob, azblob.UploadStreamToBlockBlobOptions{
		BufferSize:      1024 * 1024,
		MaxBuffers:      2,
		BlobHTTPHeaders: azblob.BlobHTTPHeaders{ContentType: contentType},
	})
	if err != nil {
		a.logger.WithError(err).WithFields(logrus.Fields{
			"container": a.cfg.Container,
			"blob":      key,
		}).Error("Failed to upload to Azure Blob Storage")
		return fmt.Errorf("failed to upload to Azure Blob Storage: %w", err)
	}
	return nil
}

func (a *Azure) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	blob := a.container.NewBlockBlobURL(key)
	resp, err := blob.Download(ctx, 0, azblob.CountToEnd, azblob.BlobAccessConditions{}, false, azblob.ClientProvidedKeyOptions{})
	if err != nil {
		var serr azblob.StorageError
		if errors.As(err, &serr) && serr.ServiceCode() == azblob.ServiceCodeBlobNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to download from Azure Blob Storage: %w", err)
	}
	return resp.Body(azblob.RetryReaderOptions{}), nil
}

func (a *Azure) Delete(ctx context.Context, key string) error {
	blob := a.container.NewBlockBlobURL(key)
	if _, err := blob.Delete(ctx, azblob.DeleteSnapshotsOptionInclude, azblob.BlobAccessConditions{}); err != nil {
		return fmt.Errorf("failed to delete from Azure Blob Storage: %w", err)
	}
	return nil
}

func (a *Azure) URL(ctx context.Context, key string) (string, error) {
	blob := a.container.NewBlockBlobURL(key)
	sas, err := azblob.BlobSASSignatureValues{
		Protocol:      azblob.SASProtocolHTTPS,
		ExpiryTime:    time.Now().Add(a.cfg.URLExpiry),
		ContainerName: a.cfg.Container,
		BlobName:      key,
		Permissions:   azblob.BlobSASPermissions{Read: true}.String(),
	}.NewSASQueryParameters(a.cred)
	if err != nil {
		return "", fmt.Errorf("failed to generate Azure SAS token: %w", err)
	}
	u := blob.URL()
	return fmt.Sprintf("%s?%s", u.String(), sas.Encode()), nil
}
