// Package storage opens and creates batch files on local disk or in object
// storage (S3-compatible, Google Cloud Storage, Azure Blob Storage).
package storage

import (
	"context"
	"io"
	"slices"
	"sync"

	"github.com/agentstation/layersync/pkg/errors"
)

// Store reads and writes objects for one URI scheme.
type Store interface {
	// Open returns a reader for the object. The caller closes it.
	Open(ctx context.Context, uri URI) (io.ReadCloser, error)

	// Create returns a writer for the object. The object is complete
	// once Close returns nil.
	Create(ctx context.Context, uri URI) (io.WriteCloser, error)

	// Scheme returns the URI scheme served by the store.
	Scheme() string
}

// Registry maps URI schemes to stores.
type Registry struct {
	mu     sync.RWMutex
	stores map[string]Store
}

// NewRegistry creates a registry with the local file store and any extra
// stores given.
func NewRegistry(stores ...Store) *Registry {
	r := &Registry{stores: make(map[string]Store)}
	r.Register(NewFileStore())
	for _, s := range stores {
		r.Register(s)
	}
	return r
}

// Register adds or replaces the store for its scheme.
func (r *Registry) Register(s Store) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores[s.Scheme()] = s
}

// Lookup returns the store for scheme.
func (r *Registry) Lookup(scheme string) (Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stores[scheme]
	if !ok {
		return nil, &errors.ConfigError{
			Component: "storage",
			Message:   "no store configured for scheme " + scheme,
			Err:       errors.ErrUnsupportedScheme,
		}
	}
	return s, nil
}

// Schemes returns registered schemes in sorted order.
func (r *Registry) Schemes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.stores))
	for k := range r.stores {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Open parses raw and opens it with the matching store.
func (r *Registry) Open(ctx context.Context, raw string) (io.ReadCloser, error) {
	u, s, err := r.resolve(raw)
	if err != nil {
		return nil, err
	}
	return s.Open(ctx, u)
}

// Create parses raw and creates it with the matching store.
func (r *Registry) Create(ctx context.Context, raw string) (io.WriteCloser, error) {
	u, s, err := r.resolve(raw)
	if err != nil {
		return nil, err
	}
	return s.Create(ctx, u)
}

// CopyFile streams the local file at path to the location dst.
func (r *Registry) CopyFile(ctx context.Context, path, dst string) error {
	src, err := r.Open(ctx, path)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	w, err := r.Create(ctx, dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, src); err != nil {
		_ = w.Close()
		return errors.WrapIO("write", dst, err)
	}
	return errors.WrapIO("write", dst, w.Close())
}

func (r *Registry) resolve(raw string) (URI, Store, error) {
	u, err := ParseURI(raw)
	if err != nil {
		return URI{}, nil, err
	}
	s, err := r.Lookup(u.Scheme)
	if err != nil {
		return URI{}, nil, err
	}
	return u, s, nil
}

// bufferedWriter collects an object in memory and uploads it on Close.
// Batch files are small enough that a single PUT is simpler than
// multipart uploads.
type bufferedWriter struct {
	buf    []byte
	upload func(data []byte) error
	closed bool
}

func (w *bufferedWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, io.ErrClosedPipe
	}
	w.buf = append(w.buf, p...)
	return len(p), nil
}

func (w *bufferedWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.upload(w.buf)
}
