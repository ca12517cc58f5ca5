package csvio

import (
	"github.com/agentstation/layersync/pkg/constants"
	"github.com/agentstation/layersync/pkg/table"
)

type options struct {
	delimiter rune
	schema    *table.Schema
	key       string
	name      string
	crlf      bool
	deferKeys bool
}

func defaultOptions() *options {
	return &options{delimiter: constants.DefaultDelimiter}
}

// Option configures a Reader or Writer.
type Option func(*options)

// WithDelimiter sets the field separator.
func WithDelimiter(d rune) Option {
	return func(o *options) {
		if d != 0 {
			o.delimiter = d
		}
	}
}

// WithSchema makes the Reader check the header against schema instead of
// inferring one.
func WithSchema(s *table.Schema) Option {
	return func(o *options) {
		o.schema = s
	}
}

// WithKey names the key column used when the schema is inferred.
func WithKey(key string) Option {
	return func(o *options) {
		o.key = key
	}
}

// WithName sets the batch name reported in errors and provenance.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithCRLF makes the Writer end lines with \r\n.
func WithCRLF(enabled bool) Option {
	return func(o *options) {
		o.crlf = enabled
	}
}

// WithDeferredKeyCheck makes the Reader keep rows with an empty key value
// so the merge's malformed-record policy decides what happens to them.
func WithDeferredKeyCheck(enabled bool) Option {
	return func(o *options) {
		o.deferKeys = enabled
	}
}
