package reconcile_test

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/layersync/pkg/errors"
	"github.com/agentstation/layersync/pkg/reconcile"
	"github.com/agentstation/layersync/pkg/table"
)

func TestMergeEmptySecondBatch(t *testing.T) {
	s := cityNamePopSchema(t)
	b1 := batchOf(t, "b1", s, []string{"1", "Honolulu", "371657"})
	b2 := table.NewBatch("b2", s)

	merged, err := reconcile.Merge(b1, b2)
	require.NoError(t, err)
	require.Equal(t, 1, merged.Len())
	assert.True(t, b1.Records[0].Equal(merged.Records[0]))
	assert.Equal(t, []string{"1", "Honolulu", "371657"}, merged.Records[0].Strings())
}

func TestMergeLaterBatchWins(t *testing.T) {
	s := idPopSchema(t)
	b1 := batchOf(t, "b1", s, []string{"1", "100"}, []string{"2", "200"})
	b2 := batchOf(t, "b2", s, []string{"2", "250"}, []string{"3", "300"})

	merged, err := reconcile.Merge(b1, b2)
	require.NoError(t, err)
	require.Equal(t, 3, merged.Len())
	assert.Equal(t, []string{"1", "2", "3"}, merged.Keys())
	assert.Equal(t, int64(100), popOf(t, merged, "1"))
	assert.Equal(t, int64(250), popOf(t, merged, "2"))
	assert.Equal(t, int64(300), popOf(t, merged, "3"))
}

func TestMergeOverlapCounts(t *testing.T) {
	b1 := popBatch(t, "current", 10, intRange(1, 19)...)
	b2 := popBatch(t, "updates", 1000, append(intRange(1, 4), intRange(20, 51)...)...)
	require.Equal(t, 19, b1.Len())
	require.Equal(t, 36, b2.Len())

	r, err := reconcile.New(reconcile.WithProvenance(true))
	require.NoError(t, err)
	res, err := r.Merge(b1, b2)
	require.NoError(t, err)

	assert.Equal(t, 51, res.Batch.Len())
	assert.Equal(t, 2, res.Stats.Batches)
	assert.Equal(t, 55, res.Stats.RecordsIn)
	assert.Equal(t, 51, res.Stats.RecordsOut)
	assert.Equal(t, 4, res.Stats.Conflicts)
	assert.Equal(t, 4, res.Stats.Replaced)
	assert.Equal(t, map[string]int{"current": 15, "updates": 36}, res.Stats.PerSource)

	for _, id := range intRange(1, 4) {
		key := strconv.Itoa(id)
		assert.Equal(t, int64(id*1000), popOf(t, res.Batch, key))
		assert.Equal(t, "updates", res.Provenance[key])
	}
	assert.Equal(t, "current", res.Provenance["5"])
	assert.Equal(t, "Merged 2 batches: 55 records in, 51 out (4 replaced)", res.Summary())
}

func TestMergeSchemaMismatch(t *testing.T) {
	s1 := schemaOf(t, "id",
		table.Column{Name: "id", Type: table.TypeInteger},
		table.Column{Name: "name", Type: table.TypeString},
	)
	s2 := schemaOf(t, "id",
		table.Column{Name: "id", Type: table.TypeInteger},
		table.Column{Name: "name", Type: table.TypeString},
		table.Column{Name: "extra", Type: table.TypeString},
	)
	b1 := batchOf(t, "b1", s1, []string{"1", "a"})
	b2 := batchOf(t, "b2", s2, []string{"2", "b", "x"})

	_, err := reconcile.Merge(b1, b2)
	require.Error(t, err)
	assert.True(t, errors.IsSchemaMismatch(err))

	var sme *errors.SchemaMismatchError
	require.ErrorAs(t, err, &sme)
	assert.Equal(t, "b2", sme.Batch)
	assert.Equal(t, []string{"id", "name"}, sme.Expected)
	assert.Equal(t, []string{"id", "name", "extra"}, sme.Got)
}

func TestSchemaMismatchOnKey(t *testing.T) {
	b1 := popBatch(t, "b1", 1, 1)
	byPop := schemaOf(t, "pop",
		table.Column{Name: "id", Type: table.TypeInteger},
		table.Column{Name: "pop", Type: table.TypeInteger},
	)
	b2 := batchOf(t, "b2", byPop, []string{"2", "5"})

	_, err := reconcile.Merge(b1, b2)
	var sme *errors.SchemaMismatchError
	require.ErrorAs(t, err, &sme)
	assert.Equal(t, "b2", sme.Batch)
	assert.Contains(t, sme.Message, "key column differs")
}

func TestMergeWidensColumnTypes(t *testing.T) {
	b1 := popBatch(t, "b1", 100, 1)
	floats := schemaOf(t, "id",
		table.Column{Name: "id", Type: table.TypeInteger},
		table.Column{Name: "pop", Type: table.TypeFloat},
	)
	b2 := batchOf(t, "b2", floats, []string{"2", "250.5"})

	t.Run("integer and float", func(t *testing.T) {
		merged, err := reconcile.Merge(b1, b2)
		require.NoError(t, err)
		assert.True(t, floats.Equal(merged.Schema))
		require.Equal(t, 2, merged.Len())
		assert.Equal(t, []string{"1", "100"}, merged.Records[0].Strings())
		assert.Equal(t, []string{"2", "250.5"}, merged.Records[1].Strings())
		for _, rec := range merged.Records {
			pop, _ := rec.Get("pop")
			assert.Equal(t, table.TypeFloat, pop.Kind)
		}
	})

	t.Run("empty batch does not widen", func(t *testing.T) {
		strs := schemaOf(t, "id",
			table.Column{Name: "id", Type: table.TypeString},
			table.Column{Name: "pop", Type: table.TypeString},
		)
		merged, err := reconcile.Merge(b1, table.NewBatch("header-only", strs))
		require.NoError(t, err)
		assert.True(t, idPopSchema(t).Equal(merged.Schema))
		assert.True(t, b1.Records[0].Equal(merged.Records[0]))
	})

	t.Run("string wins over numbers", func(t *testing.T) {
		codes := schemaOf(t, "id",
			table.Column{Name: "id", Type: table.TypeString},
			table.Column{Name: "pop", Type: table.TypeInteger},
		)
		b3 := batchOf(t, "b3", codes, []string{"A7", "3"})

		r, err := reconcile.New(reconcile.WithOrdering(reconcile.OrderByKey))
		require.NoError(t, err)
		res, err := r.Merge(b1, b2, b3)
		require.NoError(t, err)
		assert.Equal(t, table.TypeString, res.Batch.Schema.KeyType())
		assert.Equal(t, table.TypeFloat, res.Batch.Schema.Columns[1].Type)
		assert.Equal(t, []string{"1", "2", "A7"}, res.Batch.Keys())
	})
}

func TestMergeKeepsKeyText(t *testing.T) {
	s := schemaOf(t, "zip",
		table.Column{Name: "zip", Type: table.TypeInteger},
		table.Column{Name: "rate", Type: table.TypeFloat},
	)
	floatKeys := schemaOf(t, "zip",
		table.Column{Name: "zip", Type: table.TypeFloat},
		table.Column{Name: "rate", Type: table.TypeFloat},
	)
	b1 := batchOf(t, "b1", s, []string{"02134", "1.50"}, []string{"2134", "2.0"})
	b2 := batchOf(t, "b2", floatKeys, []string{"1e3", "3"}, []string{"1000", "4"})

	r, err := reconcile.New()
	require.NoError(t, err)
	out, err := r.Merge(b1, b2)
	require.NoError(t, err)
	assert.Equal(t, 4, out.Stats.RecordsOut)
	assert.Zero(t, out.Stats.Conflicts)
	assert.Equal(t, []string{"02134", "2134", "1e3", "1000"}, out.Batch.Keys())
	assert.Equal(t, []string{"02134", "1.50"}, out.Batch.Records[0].Strings())
	assert.Equal(t, []string{"2134", "2.0"}, out.Batch.Records[1].Strings())
	assert.Equal(t, table.TypeFloat, out.Batch.Schema.KeyType())
}

func TestDisjointBatchesUnchanged(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for trial := range 20 {
		t.Run(fmt.Sprintf("trial-%d", trial), func(t *testing.T) {
			perm := rng.Perm(200)
			n1 := rng.IntN(50)
			n2 := rng.IntN(50)
			b1 := popBatch(t, "b1", 3, perm[:n1]...)
			b2 := popBatch(t, "b2", 7, perm[n1:n1+n2]...)

			merged, err := reconcile.Merge(b1, b2)
			require.NoError(t, err)
			require.Equal(t, n1+n2, merged.Len())

			for _, b := range []*table.Batch{b1, b2} {
				for _, want := range b.Records {
					got, ok := merged.Find(want.Key())
					require.True(t, ok)
					assert.True(t, want.Equal(got))
				}
			}
		})
	}
}

func TestLastWriteWinsWholeRecord(t *testing.T) {
	s := cityNamePopSchema(t)
	b1 := batchOf(t, "b1", s, []string{"7", "Old Name", "1"})
	b2 := batchOf(t, "b2", s, []string{"7", "", "2"})
	b3 := batchOf(t, "b3", s, []string{"7", "Newest", ""})

	merged, err := reconcile.Merge(b1, b2, b3)
	require.NoError(t, err)
	require.Equal(t, 1, merged.Len())
	assert.True(t, b3.Records[0].Equal(merged.Records[0]), "record must come whole from the last batch")

	pop, _ := merged.Records[0].Get("pop")
	assert.True(t, pop.Null, "null in the winning record is not filled from older batches")
}

func TestKeysUnique(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	batches := make([]*table.Batch, 5)
	for i := range batches {
		ids := make([]int, 40)
		for j := range ids {
			ids[j] = rng.IntN(60)
		}
		batches[i] = popBatch(t, fmt.Sprintf("b%d", i), i+1, ids...)
	}

	merged, err := reconcile.Merge(batches...)
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, k := range merged.Keys() {
		assert.False(t, seen[k], "duplicate key %s", k)
		seen[k] = true
	}

	distinct := map[string]bool{}
	for _, b := range batches {
		for _, k := range b.Keys() {
			distinct[k] = true
		}
	}
	assert.Len(t, seen, len(distinct))
}

func TestSchemaPreserved(t *testing.T) {
	s := schemaOf(t, "code",
		table.Column{Name: "name", Type: table.TypeString},
		table.Column{Name: "code", Type: table.TypeString},
		table.Column{Name: "lat", Type: table.TypeFloat},
	)
	b1 := batchOf(t, "b1", s, []string{"Hilo", "ITO", "19.72"})
	b2 := batchOf(t, "b2", s, []string{"Kona", "KOA", "19.74"})

	merged, err := reconcile.Merge(b1, b2)
	require.NoError(t, err)
	assert.True(t, s.Equal(merged.Schema))
	assert.Equal(t, []string{"name", "code", "lat"}, merged.Schema.Names())
	for _, rec := range merged.Records {
		require.Len(t, rec.Values, 3)
		assert.Equal(t, table.TypeFloat, rec.Values[2].Kind)
	}
}

func TestEmptyInputs(t *testing.T) {
	t.Run("no batches", func(t *testing.T) {
		r, err := reconcile.New()
		require.NoError(t, err)
		res, err := r.Merge()
		require.NoError(t, err)
		assert.Equal(t, 0, res.Batch.Len())
		assert.Nil(t, res.Batch.Schema)
		assert.Equal(t, 0, res.Stats.Batches)
	})

	t.Run("all empty batches", func(t *testing.T) {
		s := idPopSchema(t)
		merged, err := reconcile.Merge(table.NewBatch("a", s), table.NewBatch("b", s))
		require.NoError(t, err)
		assert.Equal(t, 0, merged.Len())
		assert.True(t, s.Equal(merged.Schema))
	})

	t.Run("nil batches are ignored", func(t *testing.T) {
		b := popBatch(t, "b", 1, 1, 2)
		merged, err := reconcile.Merge(nil, b, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, merged.Len())
	})
}

func TestMalformedPolicy(t *testing.T) {
	s := idPopSchema(t)
	bad := table.Record{Schema: s, Values: []table.Value{table.NullValue(table.TypeInteger), table.IntValue(5)}}
	b1 := popBatch(t, "b1", 1, 1)
	b2 := popBatch(t, "b2", 1, 2)
	b2.Records = append([]table.Record{bad}, b2.Records...)

	t.Run("reject batch by default", func(t *testing.T) {
		_, err := reconcile.Merge(b1, b2)
		require.Error(t, err)
		assert.True(t, errors.IsMalformedRecord(err))

		var mre *errors.MalformedRecordError
		require.ErrorAs(t, err, &mre)
		assert.Equal(t, "b2", mre.Batch)
		assert.Equal(t, "id", mre.Column)
		assert.Contains(t, mre.Message, "record 1")
	})

	t.Run("skip record", func(t *testing.T) {
		r, err := reconcile.New(reconcile.WithMalformedPolicy(reconcile.SkipRecord))
		require.NoError(t, err)
		res, err := r.Merge(b1, b2)
		require.NoError(t, err)
		assert.Equal(t, reconcile.SkipRecord, res.Policy)
		assert.Equal(t, 2, res.Batch.Len())
		assert.Equal(t, 1, res.Stats.Skipped)
		assert.Equal(t, 3, res.Stats.RecordsIn)
		require.Len(t, res.Warnings, 1)
		assert.Contains(t, res.Warnings[0], "missing key value")
		assert.Contains(t, res.Summary(), "1 skipped")
	})

	t.Run("wrong arity", func(t *testing.T) {
		short := table.Record{Schema: s, Values: []table.Value{table.IntValue(9)}}
		b := table.NewBatch("short", s)
		b.Append(short)
		_, err := reconcile.Merge(b)
		assert.True(t, errors.IsMalformedRecord(err))
	})
}

func TestOrdering(t *testing.T) {
	b1 := popBatch(t, "b1", 1, 10, 2, 33)
	b2 := popBatch(t, "b2", 2, 9, 2, 100)

	t.Run("first seen", func(t *testing.T) {
		merged, err := reconcile.Merge(b1, b2)
		require.NoError(t, err)
		assert.Equal(t, []string{"10", "2", "33", "9", "100"}, merged.Keys())
		assert.Equal(t, int64(4), popOf(t, merged, "2"))
	})

	t.Run("by numeric key", func(t *testing.T) {
		r, err := reconcile.New(reconcile.WithOrdering(reconcile.OrderByKey))
		require.NoError(t, err)
		res, err := r.Merge(b1, b2)
		require.NoError(t, err)
		assert.Equal(t, []string{"2", "9", "10", "33", "100"}, res.Batch.Keys())
	})

	t.Run("by string key", func(t *testing.T) {
		s := schemaOf(t, "code", table.Column{Name: "code", Type: table.TypeString})
		b := batchOf(t, "codes", s, []string{"b"}, []string{"10"}, []string{"a"}, []string{"9"})
		r, err := reconcile.New(reconcile.WithOrdering(reconcile.OrderByKey))
		require.NoError(t, err)
		res, err := r.Merge(b)
		require.NoError(t, err)
		assert.Equal(t, []string{"10", "9", "a", "b"}, res.Batch.Keys())
	})
}

func TestFirstWriteWins(t *testing.T) {
	b1 := popBatch(t, "b1", 1, 1, 2)
	b2 := popBatch(t, "b2", 100, 2, 3)

	r, err := reconcile.New(reconcile.WithStrategy(reconcile.FirstWriteWins{}))
	require.NoError(t, err)
	res, err := r.Merge(b1, b2)
	require.NoError(t, err)

	assert.Equal(t, "first-write-wins", res.Strategy)
	assert.Equal(t, int64(2), popOf(t, res.Batch, "2"))
	assert.Equal(t, 1, res.Stats.Conflicts)
	assert.Equal(t, 0, res.Stats.Replaced)
}

func TestDuplicateKeyWithinBatch(t *testing.T) {
	b := popBatch(t, "dups", 1, 1, 1)
	b.Records[1].Values[1] = table.IntValue(99)

	r, err := reconcile.New()
	require.NoError(t, err)
	res, err := r.Merge(b)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Batch.Len())
	assert.Equal(t, int64(99), popOf(t, res.Batch, "1"))
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "duplicate key 1 within batch dups")
}

func TestUnnamedBatches(t *testing.T) {
	b1 := popBatch(t, "", 1, 1)
	b2 := popBatch(t, "", 2, 1)

	r, err := reconcile.New(reconcile.WithProvenance(true), reconcile.WithName("out.csv"))
	require.NoError(t, err)
	res, err := r.Merge(b1, b2)
	require.NoError(t, err)
	assert.Equal(t, "out.csv", res.Batch.Name)
	assert.Equal(t, "batch-2", res.Provenance["1"])
}

func TestConcurrentMerges(t *testing.T) {
	r, err := reconcile.New()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b1 := popBatch(t, "b1", 1, intRange(0, 100)...)
			b2 := popBatch(t, "b2", i+2, intRange(50, 150)...)
			res, err := r.Merge(b1, b2)
			assert.NoError(t, err)
			assert.Equal(t, 151, res.Batch.Len())
		}(i)
	}
	wg.Wait()
}

func TestOptionValidation(t *testing.T) {
	_, err := reconcile.New(reconcile.WithStrategy(nil))
	assert.True(t, errors.IsValidationError(err))

	_, err = reconcile.New(reconcile.WithOrdering(reconcile.Ordering(7)))
	assert.True(t, errors.IsValidationError(err))

	_, err = reconcile.New(reconcile.WithMalformedPolicy(reconcile.Policy(7)))
	assert.True(t, errors.IsValidationError(err))

	_, err = reconcile.New(reconcile.WithName(""))
	assert.True(t, errors.IsValidationError(err))
}
