package reconcile_test

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentstation/layersync/pkg/table"
)

func schemaOf(t testing.TB, key string, columns ...table.Column) *table.Schema {
	t.Helper()
	s, err := table.NewSchema(key, columns...)
	require.NoError(t, err)
	return s
}

func idPopSchema(t testing.TB) *table.Schema {
	return schemaOf(t, "id",
		table.Column{Name: "id", Type: table.TypeInteger},
		table.Column{Name: "pop", Type: table.TypeInteger},
	)
}

func cityNamePopSchema(t testing.TB) *table.Schema {
	return schemaOf(t, "id",
		table.Column{Name: "id", Type: table.TypeInteger},
		table.Column{Name: "name", Type: table.TypeString},
		table.Column{Name: "pop", Type: table.TypeInteger},
	)
}

// batchOf parses rows of text into a batch.
func batchOf(t testing.TB, name string, schema *table.Schema, rows ...[]string) *table.Batch {
	t.Helper()
	b := table.NewBatch(name, schema)
	for _, row := range rows {
		rec, err := table.ParseRecord(schema, row)
		require.NoError(t, err)
		b.Append(rec)
	}
	return b
}

// popBatch builds an id/pop batch where pop = id*scale.
func popBatch(t testing.TB, name string, scale int, ids ...int) *table.Batch {
	t.Helper()
	rows := make([][]string, len(ids))
	for i, id := range ids {
		rows[i] = []string{strconv.Itoa(id), strconv.Itoa(id * scale)}
	}
	return batchOf(t, name, idPopSchema(t), rows...)
}

func intRange(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

func popOf(t testing.TB, b *table.Batch, key string) int64 {
	t.Helper()
	rec, ok := b.Find(key)
	require.True(t, ok, "key %s not found", key)
	v, ok := rec.Get("pop")
	require.True(t, ok)
	return v.Int
}
