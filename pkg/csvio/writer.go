package csvio

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"

	"github.com/agentstation/layersync/pkg/constants"
	"github.com/agentstation/layersync/pkg/errors"
	"github.com/agentstation/layersync/pkg/table"
)

// Writer writes batches as delimited text.
type Writer struct {
	opts *options
}

// NewWriter creates a Writer.
func NewWriter(opts ...Option) *Writer {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Writer{opts: o}
}

// Write writes the schema header followed by every record.
func (w *Writer) Write(out io.Writer, b *table.Batch) error {
	if b == nil || b.Schema == nil {
		return errors.NewValidationError("batch", nil, "batch has no schema")
	}
	cw := csv.NewWriter(out)
	cw.Comma = w.opts.delimiter
	cw.UseCRLF = w.opts.crlf

	if err := cw.Write(b.Schema.Names()); err != nil {
		return err
	}
	for _, rec := range b.Records {
		if err := cw.Write(rec.Strings()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes b to path. The file is written to a temporary name in
// the same directory and renamed into place.
func (w *Writer) WriteFile(path string, b *table.Batch) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
		return errors.WrapIO("create", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.WrapIO("create", path, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := w.Write(tmp, b); err != nil {
		_ = tmp.Close()
		return errors.WrapIO("write", path, err)
	}
	if err := tmp.Close(); err != nil {
		return errors.WrapIO("write", path, err)
	}
	if err := os.Chmod(tmp.Name(), constants.FilePermissions); err != nil {
		return errors.WrapIO("write", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}
