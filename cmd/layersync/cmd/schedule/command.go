// Package schedule implements the schedule command.
package schedule

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/agentstation/layersync/cmd/layersync/cmd/refresh"
	"github.com/agentstation/layersync/internal/appcontext"
	scheduler "github.com/agentstation/layersync/internal/schedule"
	"github.com/agentstation/layersync/pkg/constants"
	"github.com/agentstation/layersync/pkg/errors"
)

// NewCommand creates the schedule command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	var (
		spec   string
		dryRun bool
		now    bool
	)
	cmd := &cobra.Command{
		Use:     "schedule <batch> <batch>...",
		GroupID: "core",
		Short:   "Run refreshes periodically on a cron schedule",
		Long: `Schedule keeps running and performs a refresh on every tick of the cron
schedule. It accepts every refresh flag.

A failed run is logged and recorded in the history; the next attempt is
the next scheduled tick. Stop with Ctrl-C.`,
		Example: `  layersync schedule --cron "0 6 * * *" -k id --layer-id 9f1c... s3://updates/b1.csv s3://updates/b2.csv
  layersync schedule --cron "@every 1h" --now -k id --layer-id 9f1c... b1.csv b2.csv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if spec == "" {
				return errors.NewValidationError("cron", spec, "--cron is required")
			}
			settings := app.Settings()
			ctx := cmd.Context()

			r, err := app.Runner(ctx, refresh.Offline(settings, dryRun))
			if err != nil {
				return err
			}
			req := refresh.NewRequest(settings, args, dryRun)
			job := func(ctx context.Context) error {
				ctx, cancel := context.WithTimeout(ctx, refresh.Timeout(settings))
				defer cancel()
				_, err := r.Run(ctx, req)
				return err
			}

			s := scheduler.New(ctx)
			if _, err := s.Add("refresh", spec, job); err != nil {
				return err
			}
			if now {
				if err := job(ctx); err != nil {
					app.Logger().Warn().Err(err).Msg("Initial refresh failed")
				}
			}
			s.Start()

			<-ctx.Done()

			stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.ShutdownTimeout)
			defer cancel()
			return s.Stop(stopCtx)
		},
	}
	refresh.AddFlags(cmd)
	cmd.Flags().StringVar(&spec, "cron", "", `cron schedule, e.g. "0 6 * * *" or "@every 1h"`)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "write the output but do not overwrite the layer")
	cmd.Flags().BoolVar(&now, "now", false, "run once immediately before waiting for the schedule")
	return cmd
}
