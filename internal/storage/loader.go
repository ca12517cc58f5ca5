package storage

import (
	"context"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/agentstation/layersync/pkg/constants"
	"github.com/agentstation/layersync/pkg/logging"
	"github.com/agentstation/layersync/pkg/table"
)

// Decoder turns the contents of one location into a batch named name.
type Decoder func(name string, r io.Reader) (*table.Batch, error)

// LoadBatches reads every location concurrently and returns the batches in
// the order the locations were given. Batch order decides which record
// wins a key, so it never depends on which read finishes first. The first
// error cancels the remaining reads.
func LoadBatches(ctx context.Context, reg *Registry, decode Decoder, locations []string) ([]*table.Batch, error) {
	batches := make([]*table.Batch, len(locations))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(constants.MaxConcurrentLoads)

	for i, loc := range locations {
		g.Go(func() error {
			u, err := ParseURI(loc)
			if err != nil {
				return err
			}
			logger := logging.FromContext(gctx).With().Str("batch", loc).Logger()
			logger.Debug().Msg("Reading batch")

			store, err := reg.Lookup(u.Scheme)
			if err != nil {
				return err
			}
			rc, err := store.Open(gctx, u)
			if err != nil {
				return err
			}
			defer func() { _ = rc.Close() }()

			b, err := decode(u.Base(), rc)
			if err != nil {
				return err
			}
			logger.Debug().Int("records", b.Len()).Msg("Batch read")
			batches[i] = b
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return batches, nil
}
