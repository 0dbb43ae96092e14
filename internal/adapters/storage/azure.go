package storage

import (
	"context"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"

	"github.com/jobrunner/gdbee/internal/domain"
	"github.com/jobrunner/gdbee/internal/ports/output"
)

// AzureStorage serves geodatabase files from an Azure Blob container.
type AzureStorage struct {
	client    *azblob.Client
	container string
	prefix    string
}

// AzureConfig holds Azure Blob Storage configuration.
type AzureConfig struct {
	Container        string
	AccountName      string
	AccountKey       string
	ConnectionString string
	Prefix           string
}

// NewAzureStorage creates an Azure Blob Storage adapter from a connection string or a shared key.
func NewAzureStorage(cfg AzureConfig) (*AzureStorage, error) {
	client, err := newAzureClient(cfg)
	if err != nil {
		return nil, &domain.StorageError{Operation: "configure", Key: cfg.Container, Err: err}
	}
	return &AzureStorage{client: client, container: cfg.Container, prefix: cfg.Prefix}, nil
}

func newAzureClient(cfg AzureConfig) (*azblob.Client, error) {
	if cfg.ConnectionString != "" {
		return azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	}
	cred, err := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
	if err != nil {
		return nil, err
	}
	url := "https://" + cfg.AccountName + ".blob.core.windows.net/"
	return azblob.NewClientWithSharedKeyCredential(url, cred, nil)
}

// List returns the geodatabase blobs below the configured prefix.
func (s *AzureStorage) List(ctx context.Context) ([]output.StorageObject, error) {
	var objects []output.StorageObject

	pager := s.client.NewListBlobsFlatPager(s.container, &azblob.ListBlobsFlatOptions{
		Prefix: &s.prefix,
	})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, &domain.StorageError{Operation: "list", Key: s.container, Err: err}
		}
		for _, blob := range page.Segment.BlobItems {
			if obj, ok := s.toStorageObject(blob); ok {
				objects = append(objects, obj)
			}
		}
	}

	return objects, nil
}

// toStorageObject converts a blob item. It returns false for blobs that are not geodatabases.
func (s *AzureStorage) toStorageObject(blob *container.BlobItem) (output.StorageObject, bool) {
	if blob.Name == nil || !IsGeodatabaseFile(*blob.Name) {
		return output.StorageObject{}, false
	}

	obj := output.StorageObject{Key: withoutPrefix(s.prefix, *blob.Name)}
	if p := blob.Properties; p != nil {
		if p.ContentLength != nil {
			obj.Size = *p.ContentLength
		}
		if p.LastModified != nil {
			obj.LastModified = p.LastModified.Unix()
		}
		if p.ETag != nil {
			obj.ETag = string(*p.ETag)
		}
	}
	return obj, true
}

// Download copies a blob to dest.
func (s *AzureStorage) Download(ctx context.Context, key string, dest string) error {
	return download(ctx, s.GetReader, key, dest)
}

// GetReader returns the blob body.
func (s *AzureStorage) GetReader(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := s.client.DownloadStream(ctx, s.container, withPrefix(s.prefix, key), nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Exists checks if a blob exists by reading its first byte.
func (s *AzureStorage) Exists(ctx context.Context, key string) (bool, error) {
	resp, err := s.client.DownloadStream(ctx, s.container, withPrefix(s.prefix, key), &azblob.DownloadStreamOptions{
		Range: azblob.HTTPRange{Offset: 0, Count: 1},
	})
	if err != nil {
		return false, nil //nolint:nilerr // a failed read means the blob is not there
	}
	_ = resp.Body.Close()
	return true, nil
}
