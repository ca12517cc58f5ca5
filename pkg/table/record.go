package table

import (
	"fmt"

	"github.com/agentstation/layersync/pkg/errors"
)

// Record is one row, with values aligned to its schema's columns.
type Record struct {
	Schema *Schema
	Values []Value
}

// ParseRecord converts the text fields of one row into a Record. The
// returned *errors.MalformedRecordError names the offending column but not
// the batch or line; the caller fills those in.
func ParseRecord(schema *Schema, fields []string) (Record, error) {
	rec, err := ParseFields(schema, fields)
	if err != nil {
		return Record{}, err
	}
	if err := rec.CheckKey(); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// ParseFields is ParseRecord without the key check, for callers that
// handle missing keys themselves.
func ParseFields(schema *Schema, fields []string) (Record, error) {
	if len(fields) != len(schema.Columns) {
		return Record{}, &errors.MalformedRecordError{
			Message: fmt.Sprintf("expected %d fields, got %d", len(schema.Columns), len(fields)),
		}
	}
	values := make([]Value, len(fields))
	for i, col := range schema.Columns {
		v, err := ParseValue(col.Type, fields[i])
		if err != nil {
			return Record{}, &errors.MalformedRecordError{
				Column:  col.Name,
				Message: fmt.Sprintf("%q is not a valid %s", fields[i], col.Type),
				Err:     err,
			}
		}
		values[i] = v
	}
	return Record{Schema: schema, Values: values}, nil
}

// Retype reparses the record's cell text under schema, which must list the
// same columns. It is used after schemas of several batches were widened to
// a common one; the text of every cell is kept.
func (r Record) Retype(schema *Schema) (Record, error) {
	fields := make([]string, len(r.Values))
	for i, v := range r.Values {
		fields[i] = v.String()
	}
	return ParseFields(schema, fields)
}

// CheckKey returns a *errors.MalformedRecordError when the record does not
// line up with its schema or has no key value.
func (r Record) CheckKey() error {
	if r.Schema == nil || len(r.Values) != len(r.Schema.Columns) {
		return &errors.MalformedRecordError{Message: "record does not match schema"}
	}
	if r.KeyValue().IsEmpty() {
		return &errors.MalformedRecordError{Column: r.Schema.Key, Message: "missing key value"}
	}
	return nil
}

// KeyValue returns the value in the key column.
func (r Record) KeyValue() Value {
	return r.Values[r.Schema.KeyIndex()]
}

// Key returns the key cell exactly as it was read.
func (r Record) Key() string {
	return r.KeyValue().String()
}

// Get returns the value of the named column.
func (r Record) Get(name string) (Value, bool) {
	i := r.Schema.Index(name)
	if i < 0 || i >= len(r.Values) {
		return Value{}, false
	}
	return r.Values[i], true
}

// Strings returns the cell text of each value in column order.
func (r Record) Strings() []string {
	out := make([]string, len(r.Values))
	for i, v := range r.Values {
		out[i] = v.String()
	}
	return out
}

// Equal reports whether two records hold equal values in the same order.
func (r Record) Equal(o Record) bool {
	if len(r.Values) != len(o.Values) {
		return false
	}
	for i := range r.Values {
		if !r.Values[i].Equal(o.Values[i]) {
			return false
		}
	}
	return true
}
