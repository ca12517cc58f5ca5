package appcontext

import (
	"github.com/agentstation/layersync/internal/config"
	"github.com/agentstation/layersync/pkg/csvio"
	"github.com/agentstation/layersync/pkg/errors"
	"github.com/agentstation/layersync/pkg/reconcile"
	"github.com/agentstation/layersync/pkg/table"
)

// NewReader builds the batch reader described by cfg: its delimiter, and
// either the schema file or the key column used for inference.
func NewReader(cfg *config.Config) (*csvio.Reader, error) {
	delim, err := csvio.ParseDelimiter(cfg.Delimiter)
	if err != nil {
		return nil, err
	}
	opts := []csvio.Option{csvio.WithDelimiter(delim)}

	switch {
	case cfg.SchemaFile != "":
		schema, err := table.LoadSchema(cfg.SchemaFile)
		if err != nil {
			return nil, err
		}
		if cfg.KeyColumn != "" && cfg.KeyColumn != schema.Key {
			return nil, errors.NewValidationError("key_column", cfg.KeyColumn,
				"does not match the key "+schema.Key+" in "+cfg.SchemaFile)
		}
		opts = append(opts, csvio.WithSchema(schema))
	case cfg.KeyColumn != "":
		opts = append(opts, csvio.WithKey(cfg.KeyColumn))
	default:
		return nil, errors.NewValidationError("key_column", "", "a key column or schema file is required")
	}

	policy, err := reconcile.ParsePolicy(cfg.Policy)
	if err != nil {
		return nil, err
	}
	// Under the skip policy rows without a key reach the merge, which
	// drops and counts them.
	opts = append(opts, csvio.WithDeferredKeyCheck(policy == reconcile.SkipRecord))
	return csvio.NewReader(opts...), nil
}

// NewReconciler builds a reconciler from the merge settings in cfg. opts
// are applied last and override them.
func NewReconciler(cfg *config.Config, opts ...reconcile.Option) (*reconcile.Reconciler, error) {
	var strategy reconcile.Strategy = reconcile.LastWriteWins{}
	if cfg.Strategy != "" {
		var err error
		if strategy, err = reconcile.StrategyByName(cfg.Strategy); err != nil {
			return nil, err
		}
	}
	ordering, err := reconcile.ParseOrdering(cfg.Ordering)
	if err != nil {
		return nil, err
	}
	policy, err := reconcile.ParsePolicy(cfg.Policy)
	if err != nil {
		return nil, err
	}
	base := []reconcile.Option{
		reconcile.WithStrategy(strategy),
		reconcile.WithOrdering(ordering),
		reconcile.WithMalformedPolicy(policy),
	}
	return reconcile.New(append(base, opts...)...)
}
