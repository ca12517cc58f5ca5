// Package reconcile merges ordered batches that share a schema into one
// batch holding exactly one record per key.
//
// Batches are applied in the order given. With the default LastWriteWins
// strategy a key present in several batches ends up with the whole record
// from the latest batch containing it; fields are never blended. A key
// present in a single batch keeps its record unchanged, down to the text of
// each cell. Column order of the output equals the input schema; a column
// whose type differs between batches takes the widest of them.
//
// Merging is pure: it performs no I/O, shares no state and may be called
// concurrently on independent inputs.
//
//	merged, err := reconcile.Merge(current, updates)
//
//	r, _ := reconcile.New(reconcile.WithOrdering(reconcile.OrderByKey))
//	result, err := r.Merge(current, updates, corrections)
//	fmt.Println(result.Summary())
package reconcile

import (
	"errors"
	"fmt"
	"slices"
	"time"

	pkgerrors "github.com/agentstation/layersync/pkg/errors"
	"github.com/agentstation/layersync/pkg/table"
)

// Reconciler merges batches. It is immutable once created and safe for
// concurrent use.
type Reconciler struct {
	opts *options
}

// New creates a Reconciler with options.
func New(opts ...Option) (*Reconciler, error) {
	o, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}
	return &Reconciler{opts: o}, nil
}

// Merge reconciles batches with the default options and returns the
// merged batch.
func Merge(batches ...*table.Batch) (*table.Batch, error) {
	r, err := New()
	if err != nil {
		return nil, err
	}
	res, err := r.Merge(batches...)
	if err != nil {
		return nil, err
	}
	return res.Batch, nil
}

// Strategy returns the configured strategy.
func (r *Reconciler) Strategy() Strategy {
	return r.opts.strategy
}

// Merge reconciles batches in order. Nil batches are ignored. An empty
// input yields an empty batch rather than an error.
//
// Every batch must have the same columns and key as the first non-nil
// batch, otherwise a *errors.SchemaMismatchError is returned before any
// record is examined. Differing column types are widened and records of
// narrower batches are reparsed from their cell text. Records without a
// key value are handled per the configured Policy.
func (r *Reconciler) Merge(batches ...*table.Batch) (*Result, error) {
	start := time.Now()
	res := newResult(r.opts)

	schema, err := commonSchema(batches)
	if err != nil {
		return nil, err
	}
	out := table.NewBatch(r.opts.name, schema)
	res.Batch = out

	entries := make([]Entry, 0, totalRecords(batches))
	index := make(map[string]int, cap(entries))

	for bi, b := range batches {
		if b == nil {
			continue
		}
		source := batchName(b, bi)
		res.Stats.Batches++
		seen := make(map[string]struct{}, len(b.Records))

		retype := !b.Schema.Equal(schema)

		for ri, rec := range b.Records {
			res.Stats.RecordsIn++
			err := rec.CheckKey()
			if err == nil && retype {
				rec, err = rec.Retype(schema)
			}
			if err != nil {
				mre := malformed(err, source, ri)
				if r.opts.policy == RejectBatch {
					return nil, mre
				}
				res.Stats.Skipped++
				res.Warnings = append(res.Warnings, mre.Error())
				continue
			}

			key := rec.Key()
			if _, dup := seen[key]; dup {
				res.Warnings = append(res.Warnings,
					fmt.Sprintf("duplicate key %s within batch %s; resolved by %s", key, source, r.opts.strategy.Name()))
			}
			seen[key] = struct{}{}

			incoming := Entry{Record: rec, Source: source, Batch: bi, Index: ri}
			pos, exists := index[key]
			if !exists {
				index[key] = len(entries)
				entries = append(entries, incoming)
				continue
			}

			res.Stats.Conflicts++
			winner := r.opts.strategy.Resolve(entries[pos], incoming)
			if winner.Batch == incoming.Batch && winner.Index == incoming.Index {
				res.Stats.Replaced++
			}
			entries[pos] = winner
		}
	}

	if r.opts.ordering == OrderByKey {
		slices.SortStableFunc(entries, func(a, b Entry) int {
			return a.Record.KeyValue().Compare(b.Record.KeyValue())
		})
	}

	out.Records = make([]table.Record, len(entries))
	for i, e := range entries {
		out.Records[i] = e.Record
		res.Stats.PerSource[e.Source]++
		if res.Provenance != nil {
			res.Provenance[e.Record.Key()] = e.Source
		}
	}
	res.Stats.RecordsOut = len(entries)
	res.Stats.Duration = time.Since(start)
	return res, nil
}

// commonSchema checks every batch against the first non-nil one and
// returns the schema the merged batch uses. Batches must agree on column
// names, order and key; column types inferred per batch are widened so
// that a header-only batch, or one where a column holds 250.5 while
// another holds only integers, merges cleanly. Batches without records
// do not take part in widening.
func commonSchema(batches []*table.Batch) (*table.Schema, error) {
	var ref, merged *table.Schema
	for i, b := range batches {
		if b == nil {
			continue
		}
		if b.Schema == nil {
			return nil, &pkgerrors.SchemaMismatchError{
				Batch:   batchName(b, i),
				Message: "batch has no schema",
			}
		}
		if ref == nil {
			ref = b.Schema
		}
		if !ref.Compatible(b.Schema) {
			e := pkgerrors.NewSchemaMismatchError(batchName(b, i), ref.Names(), b.Schema.Names())
			if ref.SameColumns(b.Schema.Names()) {
				e.Message = fmt.Sprintf("key column differs (expected %s, got %s)", ref.Key, b.Schema.Key)
			}
			return nil, e
		}
		if b.Len() == 0 {
			continue
		}
		if merged == nil {
			merged = b.Schema
			continue
		}
		merged, _ = merged.Widen(b.Schema)
	}
	if merged == nil {
		return ref, nil
	}
	return merged, nil
}

func totalRecords(batches []*table.Batch) int {
	n := 0
	for _, b := range batches {
		n += b.Len()
	}
	return n
}

func batchName(b *table.Batch, i int) string {
	if b.Name != "" {
		return b.Name
	}
	return fmt.Sprintf("batch-%d", i+1)
}

// malformed attaches the batch name to a record error. Line is unknown at
// this stage, so the record position is reported in the message.
func malformed(err error, source string, index int) *pkgerrors.MalformedRecordError {
	var mre *pkgerrors.MalformedRecordError
	if !errors.As(err, &mre) {
		mre = &pkgerrors.MalformedRecordError{Message: err.Error(), Err: err}
	}
	out := *mre
	out.Batch = source
	out.Message = fmt.Sprintf("record %d: %s", index+1, mre.Message)
	return &out
}
