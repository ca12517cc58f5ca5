package reconcile

import (
	"github.com/agentstation/layersync/pkg/errors"
)

// options configures a Reconciler.
type options struct {
	strategy   Strategy
	ordering   Ordering
	policy     Policy
	provenance bool
	name       string
}

func defaultOptions() *options {
	return &options{
		strategy: LastWriteWins{},
		ordering: OrderFirstSeen,
		policy:   RejectBatch,
		name:     "reconciled",
	}
}

// Option is a function that configures a Reconciler.
type Option func(*options) error

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// newOptions returns reconciler options with default values.
func newOptions(opts ...Option) (*options, error) {
	return defaultOptions().apply(opts...)
}

// WithStrategy sets how a key present in several batches is resolved.
func WithStrategy(strategy Strategy) Option {
	return func(o *options) error {
		if strategy == nil {
			return &errors.ValidationError{
				Field:   "strategy",
				Message: "cannot be nil",
			}
		}
		o.strategy = strategy
		return nil
	}
}

// WithOrdering sets the row order of the merged batch.
func WithOrdering(ordering Ordering) Option {
	return func(o *options) error {
		if ordering != OrderFirstSeen && ordering != OrderByKey {
			return &errors.ValidationError{
				Field:   "ordering",
				Value:   ordering,
				Message: "unknown ordering",
			}
		}
		o.ordering = ordering
		return nil
	}
}

// WithMalformedPolicy sets what happens to records without a key value.
func WithMalformedPolicy(policy Policy) Option {
	return func(o *options) error {
		if policy != RejectBatch && policy != SkipRecord {
			return &errors.ValidationError{
				Field:   "policy",
				Value:   policy,
				Message: "unknown malformed record policy",
			}
		}
		o.policy = policy
		return nil
	}
}

// WithProvenance records which batch each output record came from.
func WithProvenance(enabled bool) Option {
	return func(o *options) error {
		o.provenance = enabled
		return nil
	}
}

// WithName sets the name of the merged batch.
func WithName(name string) Option {
	return func(o *options) error {
		if name == "" {
			return &errors.ValidationError{
				Field:   "name",
				Message: "cannot be empty",
			}
		}
		o.name = name
		return nil
	}
}
