package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/agentstation/layersync/pkg/constants"
	"github.com/agentstation/layersync/pkg/errors"
)

// FileStore reads and writes local files.
type FileStore struct{}

// NewFileStore creates a FileStore.
func NewFileStore() *FileStore {
	return &FileStore{}
}

// Scheme returns "file".
func (*FileStore) Scheme() string { return SchemeFile }

// Open opens the file at uri.Key.
func (*FileStore) Open(_ context.Context, uri URI) (io.ReadCloser, error) {
	f, err := os.Open(uri.Key) //nolint:gosec // paths come from the user
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("file", uri.Key)
		}
		return nil, errors.WrapIO("open", uri.Key, err)
	}
	return f, nil
}

// Create creates or truncates the file at uri.Key, making parent directories.
func (*FileStore) Create(_ context.Context, uri URI) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(uri.Key), constants.DirPermissions); err != nil {
		return nil, errors.WrapIO("create", uri.Key, err)
	}
	f, err := os.OpenFile(uri.Key, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, constants.FilePermissions) //nolint:gosec // paths come from the user
	if err != nil {
		return nil, errors.WrapIO("create", uri.Key, err)
	}
	return f, nil
}
