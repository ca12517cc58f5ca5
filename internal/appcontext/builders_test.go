package appcontext_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/layersync/internal/appcontext"
	"github.com/agentstation/layersync/internal/config"
	"github.com/agentstation/layersync/pkg/errors"
	"github.com/agentstation/layersync/pkg/reconcile"
)

func TestNewReader(t *testing.T) {
	t.Run("requires key or schema", func(t *testing.T) {
		_, err := appcontext.NewReader(&config.Config{Delimiter: ","})
		assert.True(t, errors.IsValidationError(err))
	})

	t.Run("key with delimiter", func(t *testing.T) {
		r, err := appcontext.NewReader(&config.Config{Delimiter: "semicolon", KeyColumn: "id"})
		require.NoError(t, err)
		b, err := r.Read(strings.NewReader("id;name\n1;a\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"1"}, b.Keys())
	})

	t.Run("schema file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "schema.yaml")
		require.NoError(t, os.WriteFile(path, []byte("key: id\ncolumns:\n  - name: id\n    type: integer\n  - name: name\n    type: string\n"), 0o644))

		_, err := appcontext.NewReader(&config.Config{Delimiter: ",", SchemaFile: path, KeyColumn: "name"})
		assert.True(t, errors.IsValidationError(err))

		r, err := appcontext.NewReader(&config.Config{Delimiter: ",", SchemaFile: path})
		require.NoError(t, err)
		_, err = r.Read(strings.NewReader("name,id\na,1\n"))
		assert.True(t, errors.IsSchemaMismatch(err))
	})

	t.Run("skip policy keeps keyless rows for the merge", func(t *testing.T) {
		r, err := appcontext.NewReader(&config.Config{Delimiter: ",", KeyColumn: "id", Policy: "skip"})
		require.NoError(t, err)
		b, err := r.Read(strings.NewReader("id,name\n1,a\n,b\n"))
		require.NoError(t, err)
		assert.Equal(t, 2, b.Len())

		rec, err := appcontext.NewReconciler(&config.Config{Policy: "skip"})
		require.NoError(t, err)
		res, err := rec.Merge(b)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Stats.Skipped)
		assert.Equal(t, 1, res.Stats.RecordsOut)
	})
}

func TestNewReconciler(t *testing.T) {
	rec, err := appcontext.NewReconciler(&config.Config{})
	require.NoError(t, err)
	assert.Equal(t, "last-write-wins", rec.Strategy().Name())

	rec, err = appcontext.NewReconciler(&config.Config{Strategy: "first-write-wins", Ordering: "key"},
		reconcile.WithName("merged"))
	require.NoError(t, err)
	assert.Equal(t, "first-write-wins", rec.Strategy().Name())

	_, err = appcontext.NewReconciler(&config.Config{Strategy: "newest"})
	assert.True(t, errors.IsValidationError(err))
	_, err = appcontext.NewReconciler(&config.Config{Ordering: "random"})
	assert.True(t, errors.IsValidationError(err))
}
