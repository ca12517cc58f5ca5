// Package overwrite implements the overwrite command.
package overwrite

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/agentstation/layersync/cmd/layersync/cmd/refresh"
	"github.com/agentstation/layersync/internal/appcontext"
	"github.com/agentstation/layersync/internal/cmd/cmdutil"
	"github.com/agentstation/layersync/internal/cmd/output"
	"github.com/agentstation/layersync/pkg/errors"
)

// NewCommand creates the overwrite command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "overwrite <file>",
		GroupID: "core",
		Short:   "Overwrite a hosted layer with an existing file",
		Long: `Overwrite uploads the file to the item the layer was published from and
republishes it in place. The file name must match the published file name
exactly; otherwise nothing is uploaded.

A failed overwrite is reported and not retried.`,
		Example: `  layersync overwrite --layer-id 9f1c... Hawaii_Cities.csv`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := app.Settings()
			if settings.LayerID == "" {
				return errors.NewValidationError("layer_id", "", "--layer-id is required")
			}
			client, err := app.Portal()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), refresh.Timeout(settings))
			defer cancel()

			res, err := client.Overwrite(ctx, settings.LayerID, args[0])
			if res != nil {
				app.Metrics().RecordOverwrite(res.Status)
				if ferr := output.Write(cmd.OutOrStdout(), app.OutputFormat(), res); ferr != nil && err == nil {
					err = ferr
				}
			}
			return err
		},
	}
	cmdutil.AddPortalFlags(cmd)
	return cmd
}
