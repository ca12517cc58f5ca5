// Package csvio reads delimited batch files into typed batches and writes
// merged batches back out under the name the hosted layer expects.
package csvio

import (
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/agentstation/layersync/pkg/errors"
	"github.com/agentstation/layersync/pkg/table"
)

// Reader parses delimited text with a header row.
type Reader struct {
	opts *options
}

// NewReader creates a Reader.
func NewReader(opts ...Option) *Reader {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Reader{opts: o}
}

// Read parses one batch using the configured name.
func (r *Reader) Read(rd io.Reader) (*table.Batch, error) {
	return r.Decode(r.opts.name, rd)
}

// ReadFile parses the file at path, naming the batch after the file.
func (r *Reader) ReadFile(path string) (*table.Batch, error) {
	f, err := os.Open(path) //nolint:gosec // batch paths come from the user
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	defer func() { _ = f.Close() }()

	name := r.opts.name
	if name == "" {
		name = filepath.Base(path)
	}
	return r.Decode(name, f)
}

// Decode parses one batch named name. A leading byte order mark is
// removed. The header must match the configured schema exactly; without a
// schema one is inferred from every row. Rows are parsed with
// table.ParseRecord, and malformed rows are reported with their line.
func (r *Reader) Decode(name string, rd io.Reader) (*table.Batch, error) {
	cr := csv.NewReader(transform.NewReader(rd, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	cr.Comma = r.opts.delimiter
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.NewParseError("csv", name, "missing header row", nil)
	}
	if err != nil {
		return nil, csvError(name, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows [][]string
	var lines []int
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, csvError(name, err)
		}
		line, _ := cr.FieldPos(0)
		rows = append(rows, row)
		lines = append(lines, line)
	}

	schema, err := r.schemaFor(name, header, rows)
	if err != nil {
		return nil, err
	}

	batch := table.NewBatch(name, schema)
	batch.Records = make([]table.Record, 0, len(rows))
	for i, row := range rows {
		parse := table.ParseRecord
		if r.opts.deferKeys {
			parse = table.ParseFields
		}
		rec, err := parse(schema, row)
		if err != nil {
			var mre *errors.MalformedRecordError
			if stderrors.As(err, &mre) {
				mre.Batch = name
				mre.Line = lines[i]
			}
			return nil, err
		}
		batch.Append(rec)
	}
	return batch, nil
}

func (r *Reader) schemaFor(name string, header []string, rows [][]string) (*table.Schema, error) {
	if s := r.opts.schema; s != nil {
		if !s.SameColumns(header) {
			return nil, errors.NewSchemaMismatchError(name, s.Names(), header)
		}
		return s, nil
	}
	if r.opts.key == "" {
		return nil, errors.NewValidationError("key", nil, "key column is required when no schema is given")
	}
	s, err := table.InferSchema(r.opts.key, header, rows)
	if err != nil {
		return nil, fmt.Errorf("batch %s: %w", name, err)
	}
	return s, nil
}

func csvError(name string, err error) error {
	var pe *csv.ParseError
	if stderrors.As(err, &pe) {
		return &errors.ParseError{
			Format:  "csv",
			File:    name,
			Line:    pe.Line,
			Column:  pe.Column,
			Message: pe.Err.Error(),
			Err:     err,
		}
	}
	return errors.WrapIO("read", name, err)
}
