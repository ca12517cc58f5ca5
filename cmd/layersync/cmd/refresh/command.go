// Package refresh implements the refresh command.
package refresh

import (
	"context"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentstation/layersync/internal/appcontext"
	"github.com/agentstation/layersync/internal/cmd/cmdutil"
	"github.com/agentstation/layersync/internal/cmd/emoji"
	"github.com/agentstation/layersync/internal/cmd/output"
	"github.com/agentstation/layersync/internal/config"
	runner "github.com/agentstation/layersync/internal/refresh"
	"github.com/agentstation/layersync/pkg/constants"
)

// NewCommand creates the refresh command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:     "refresh <batch> <batch>...",
		GroupID: "core",
		Short:   "Merge update batches and overwrite the hosted layer",
		Long: `Refresh runs the whole pipeline: read the batches, merge them by key
(later batches win), write the result under the file name the layer was
published from, optionally archive a copy, and overwrite the layer.

With --dry-run the overwrite is skipped. A dry run without a layer or
credentials works offline and needs --output-name.`,
		Example: `  layersync refresh -k id --layer-id 9f1c... b1.csv b2.csv
  layersync refresh -k id --dry-run --output-name Hawaii_Cities.csv b1.csv b2.csv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := app.Settings()
			ctx, cancel := context.WithTimeout(cmd.Context(), Timeout(settings))
			defer cancel()

			r, err := app.Runner(ctx, Offline(settings, dryRun))
			if err != nil {
				return err
			}
			report, err := r.Run(ctx, NewRequest(settings, args, dryRun))
			if report != nil {
				if ferr := output.Write(cmd.OutOrStdout(), app.OutputFormat(), Table(report)); ferr != nil && err == nil {
					err = ferr
				}
			}
			return err
		},
	}
	AddFlags(cmd)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "write the output but do not overwrite the layer")
	return cmd
}

// AddFlags adds every flag a refresh reads.
func AddFlags(cmd *cobra.Command) {
	cmdutil.AddInputFlags(cmd)
	cmdutil.AddPortalFlags(cmd)
	cmdutil.AddOutputFlags(cmd)
	cmdutil.AddRunFlags(cmd)
}

// NewRequest builds a refresh request from the settings.
func NewRequest(settings *config.Config, inputs []string, dryRun bool) runner.Request {
	return runner.Request{
		Inputs:     inputs,
		LayerID:    settings.LayerID,
		OutputDir:  settings.OutputDir,
		OutputName: settings.OutputName,
		ArchiveURI: settings.ArchiveURI,
		DryRun:     dryRun,
	}
}

// Timeout bounds a whole run, overwrite included.
func Timeout(settings *config.Config) time.Duration {
	if settings.OverwriteTimeout > 0 {
		return settings.OverwriteTimeout
	}
	return constants.OverwriteTimeout
}

// Offline reports whether a run can skip the portal entirely: a dry run
// with no layer or no credentials to look it up.
func Offline(settings *config.Config, dryRun bool) bool {
	if !dryRun {
		return false
	}
	return settings.LayerID == "" || settings.Credentials().Validate() != nil
}

// Report renders a refresh report as a table. The embedded report's
// fields are promoted, so JSON output is unchanged.
type Report struct {
	*runner.Report
}

// Table wraps r for output.
func Table(r *runner.Report) Report {
	return Report{Report: r}
}

// MarshalYAML encodes the underlying report.
func (r Report) MarshalYAML() (any, error) {
	return r.Report, nil
}

// TableData lays the report out as a property table.
func (r Report) TableData() output.Data {
	result := emoji.Success + " succeeded"
	switch {
	case !r.Success():
		result = emoji.Error + " failed"
	case r.DryRun:
		result = emoji.DryRun + " dry run"
	}
	rows := [][]string{
		{"Run", r.RunID},
		{"Result", result},
		{"Layer", r.LayerID},
		{"Batches", strconv.Itoa(r.Stats.Batches)},
		{"Records in", strconv.Itoa(r.Stats.RecordsIn)},
		{"Records out", strconv.Itoa(r.Stats.RecordsOut)},
		{"Replaced", strconv.Itoa(r.Stats.Replaced)},
		{"Skipped", strconv.Itoa(r.Stats.Skipped)},
		{"Output", r.OutputPath},
	}
	if r.ArchiveURI != "" {
		rows = append(rows, []string{"Archive", r.ArchiveURI})
	}
	if r.Overwrite != nil {
		rows = append(rows,
			[]string{"Job", r.Overwrite.JobID},
			[]string{"Status", r.Overwrite.Status},
		)
	}
	if r.DryRun {
		rows = append(rows, []string{"Dry run", "yes"})
	}
	for _, w := range r.Warnings {
		rows = append(rows, []string{emoji.Warning + " Warning", w})
	}
	rows = append(rows, []string{"Duration", r.Duration().String()})
	if r.Error != "" {
		rows = append(rows, []string{"Error", r.Error})
	}
	return output.Data{Headers: []string{"Property", "Value"}, Rows: rows}
}
