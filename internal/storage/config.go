package storage

import "context"

// Config holds credentials for the object stores. Stores whose
// credentials are not set are not registered.
type Config struct {
	S3    S3Config
	GCS   GCSConfig
	Azure AzureConfig

	// EnableGCS registers the GCS store even without a credentials file,
	// using application default credentials.
	EnableGCS bool
}

// NewRegistryFromConfig creates a registry with the file store plus every
// configured object store.
func NewRegistryFromConfig(ctx context.Context, cfg Config) (*Registry, error) {
	reg := NewRegistry()
	if cfg.S3.Configured() {
		s, err := NewS3Store(cfg.S3)
		if err != nil {
			return nil, err
		}
		reg.Register(s)
	}
	if cfg.EnableGCS || cfg.GCS.CredentialsFile != "" {
		s, err := NewGCSStore(ctx, cfg.GCS)
		if err != nil {
			return nil, err
		}
		reg.Register(s)
	}
	if cfg.Azure.Configured() {
		s, err := NewAzureStore(cfg.Azure)
		if err != nil {
			return nil, err
		}
		reg.Register(s)
	}
	return reg, nil
}
