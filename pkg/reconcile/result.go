package reconcile

import (
	"fmt"
	"time"

	"github.com/agentstation/layersync/pkg/table"
)

// Result represents the outcome of a merge.
type Result struct {
	// Batch is the merged batch
	Batch *table.Batch

	// Stats about the merge
	Stats Stats

	// Provenance maps each output key to the batch its record came from.
	// Nil unless provenance was enabled.
	Provenance map[string]string

	// Warnings holds one entry per skipped record or in-batch duplicate key
	Warnings []string

	// Settings the merge ran with
	Strategy string
	Ordering Ordering
	Policy   Policy
}

// Stats contains counts gathered during a merge.
type Stats struct {
	Batches    int
	RecordsIn  int
	RecordsOut int
	Conflicts  int // keys seen more than once
	Replaced   int // conflicts where the later record won
	Skipped    int
	PerSource  map[string]int // output records contributed by each batch
	Duration   time.Duration
}

// Summary returns a human-readable summary of the result.
func (r *Result) Summary() string {
	s := fmt.Sprintf("Merged %d batches: %d records in, %d out (%d replaced",
		r.Stats.Batches, r.Stats.RecordsIn, r.Stats.RecordsOut, r.Stats.Replaced)
	if r.Stats.Skipped > 0 {
		s += fmt.Sprintf(", %d skipped", r.Stats.Skipped)
	}
	return s + ")"
}

// HasWarnings reports whether any record was skipped or duplicated.
func (r *Result) HasWarnings() bool {
	return len(r.Warnings) > 0
}

func newResult(o *options) *Result {
	r := &Result{
		Warnings: []string{},
		Strategy: o.strategy.Name(),
		Ordering: o.ordering,
		Policy:   o.policy,
		Stats: Stats{
			PerSource: make(map[string]int),
		},
	}
	if o.provenance {
		r.Provenance = make(map[string]string)
	}
	return r
}
