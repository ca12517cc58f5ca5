package storage

import (
	"context"
	stderrors "errors"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/agentstation/layersync/pkg/errors"
)

// GCSConfig configures a Google Cloud Storage store.
type GCSConfig struct {
	// CredentialsFile is a service account key file. When empty,
	// application default credentials are used.
	CredentialsFile string
}

// GCSStore reads and writes objects in Google Cloud Storage.
type GCSStore struct {
	client *storage.Client
}

// NewGCSStore creates a GCSStore.
func NewGCSStore(ctx context.Context, cfg GCSConfig) (*GCSStore, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithAuthCredentialsFile(option.ServiceAccount, cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.NewConfigError("storage.gcs", "create client", err)
	}
	return &GCSStore{client: client}, nil
}

// Scheme returns "gs".
func (*GCSStore) Scheme() string { return SchemeGCS }

// Open reads the object.
func (s *GCSStore) Open(ctx context.Context, uri URI) (io.ReadCloser, error) {
	r, err := s.client.Bucket(uri.Bucket).Object(uri.Key).NewReader(ctx)
	if err != nil {
		if stderrors.Is(err, storage.ErrObjectNotExist) {
			return nil, errors.NewNotFoundError("object", uri.String())
		}
		return nil, errors.WrapIO("open", uri.String(), err)
	}
	return r, nil
}

// Create returns a writer for the object. The object is committed on Close.
func (s *GCSStore) Create(ctx context.Context, uri URI) (io.WriteCloser, error) {
	w := s.client.Bucket(uri.Bucket).Object(uri.Key).NewWriter(ctx)
	w.ContentType = "text/csv"
	return w, nil
}

// Close releases the client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}
