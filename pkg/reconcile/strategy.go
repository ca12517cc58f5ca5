package reconcile

import (
	"fmt"
	"strings"

	"github.com/agentstation/layersync/pkg/errors"
	"github.com/agentstation/layersync/pkg/table"
)

// Entry is a record together with where it came from.
type Entry struct {
	Record table.Record
	Source string // batch name
	Batch  int    // batch position in the merge
	Index  int    // record position within its batch
}

// Strategy decides which record survives when a key appears more than once.
type Strategy interface {
	// Name returns the strategy name
	Name() string

	// Description returns a human-readable description
	Description() string

	// Resolve returns the entry to keep. existing always precedes incoming
	// in batch-then-record order.
	Resolve(existing, incoming Entry) Entry
}

// LastWriteWins keeps the record from the latest batch. Records are never
// blended field by field.
type LastWriteWins struct{}

// Name returns the strategy name
func (LastWriteWins) Name() string { return "last-write-wins" }

// Description returns a human-readable description
func (LastWriteWins) Description() string {
	return "Later batches replace earlier records with the same key"
}

// Resolve returns incoming.
func (LastWriteWins) Resolve(_, incoming Entry) Entry { return incoming }

// FirstWriteWins keeps the earliest record for each key. Useful for
// auditing what a refresh would discard.
type FirstWriteWins struct{}

// Name returns the strategy name
func (FirstWriteWins) Name() string { return "first-write-wins" }

// Description returns a human-readable description
func (FirstWriteWins) Description() string {
	return "The first record seen for a key is kept"
}

// Resolve returns existing.
func (FirstWriteWins) Resolve(existing, _ Entry) Entry { return existing }

// Strategies lists the built-in strategies.
func Strategies() []Strategy {
	return []Strategy{LastWriteWins{}, FirstWriteWins{}}
}

// StrategyByName returns a built-in strategy.
func StrategyByName(name string) (Strategy, error) {
	for _, s := range Strategies() {
		if strings.EqualFold(s.Name(), name) {
			return s, nil
		}
	}
	return nil, errors.NewValidationError("strategy", name, "unknown strategy")
}

// Ordering is the row order of a merged batch.
type Ordering int

const (
	// OrderFirstSeen keeps each key where it first appeared.
	OrderFirstSeen Ordering = iota
	// OrderByKey sorts by key value: numerically for numeric keys,
	// lexically for strings.
	OrderByKey
)

// String returns the ordering name.
func (o Ordering) String() string {
	switch o {
	case OrderFirstSeen:
		return "first-seen"
	case OrderByKey:
		return "key"
	}
	return fmt.Sprintf("ordering(%d)", int(o))
}

// ParseOrdering parses an ordering name.
func ParseOrdering(s string) (Ordering, error) {
	switch strings.ToLower(s) {
	case "", "first-seen", "input":
		return OrderFirstSeen, nil
	case "key", "sorted":
		return OrderByKey, nil
	}
	return 0, errors.NewValidationError("order", s, "must be first-seen or key")
}

// Policy decides what happens to a record without a key value.
type Policy int

const (
	// RejectBatch fails the merge on the first malformed record.
	RejectBatch Policy = iota
	// SkipRecord drops malformed records and reports each as a warning.
	SkipRecord
)

// String returns the policy name.
func (p Policy) String() string {
	switch p {
	case RejectBatch:
		return "reject"
	case SkipRecord:
		return "skip"
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

// ParsePolicy parses a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "", "reject", "reject-batch":
		return RejectBatch, nil
	case "skip", "skip-record":
		return SkipRecord, nil
	}
	return 0, errors.NewValidationError("on-malformed", s, "must be reject or skip")
}
