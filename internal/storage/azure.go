package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/agentstation/layersync/pkg/errors"
)

// AzureConfig configures an Azure Blob Storage store.
type AzureConfig struct {
	AccountName string
	AccountKey  string
	// ServiceURL overrides https://<account>.blob.core.windows.net, e.g. for Azurite.
	ServiceURL string
}

// Configured reports whether enough is set to build a client.
func (c AzureConfig) Configured() bool {
	return c.AccountName != "" && c.AccountKey != ""
}

// AzureStore reads and writes blobs with shared-key authentication.
type AzureStore struct {
	client *azblob.Client
}

// NewAzureStore creates an AzureStore.
func NewAzureStore(cfg AzureConfig) (*AzureStore, error) {
	if !cfg.Configured() {
		return nil, errors.NewConfigError("storage.azure", "account name and key are required", errors.ErrCredentialsRequired)
	}
	cred, err := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
	if err != nil {
		return nil, errors.NewConfigError("storage.azure", "create shared key credential", err)
	}
	serviceURL := cfg.ServiceURL
	if serviceURL == "" {
		serviceURL = fmt.Sprintf("https://%s.blob.core.windows.net", cfg.AccountName)
	}
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	if err != nil {
		return nil, errors.NewConfigError("storage.azure", "create blob client", err)
	}
	return &AzureStore{client: client}, nil
}

// Scheme returns "az".
func (*AzureStore) Scheme() string { return SchemeAzure }

// Open downloads the blob.
func (s *AzureStore) Open(ctx context.Context, uri URI) (io.ReadCloser, error) {
	resp, err := s.client.DownloadStream(ctx, uri.Bucket, uri.Key, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return nil, errors.NewNotFoundError("blob", uri.String())
		}
		return nil, errors.WrapIO("open", uri.String(), err)
	}
	return resp.Body, nil
}

// Create returns a writer that uploads the blob on Close.
func (s *AzureStore) Create(ctx context.Context, uri URI) (io.WriteCloser, error) {
	return &bufferedWriter{upload: func(data []byte) error {
		_, err := s.client.UploadBuffer(ctx, uri.Bucket, uri.Key, data, nil)
		return errors.WrapIO("upload", uri.String(), err)
	}}, nil
}
