// Package history implements the history command.
package history

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentstation/layersync/internal/appcontext"
	"github.com/agentstation/layersync/internal/cmd/emoji"
	"github.com/agentstation/layersync/internal/cmd/output"
	ledger "github.com/agentstation/layersync/internal/history"
	"github.com/agentstation/layersync/pkg/constants"
)

// Runs renders a list of runs as a table.
type Runs []ledger.Run

// NewCommand creates the history command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:     "history",
		GroupID: "management",
		Short:   "Show recent refresh runs",
		Example: `  layersync history
  layersync history --limit 5 -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := app.History()
			if err != nil {
				return err
			}
			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if runs == nil {
				runs = []ledger.Run{}
			}
			return output.Write(cmd.OutOrStdout(), app.OutputFormat(), Runs(runs))
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", constants.DefaultHistoryLimit, "number of runs to show")
	cmd.Flags().String("history-path", "", "SQLite run history file")
	return cmd
}

// TableData lays the runs out one per row, newest first.
func (r Runs) TableData() output.Data {
	data := output.Data{
		Headers: []string{"", "Started", "Run", "Layer", "In", "Out", "Replaced", "Status", "Duration"},
		ColumnAlignment: []output.Align{
			output.AlignCenter, output.AlignLeft, output.AlignLeft, output.AlignLeft,
			output.AlignRight, output.AlignRight, output.AlignRight, output.AlignLeft, output.AlignRight,
		},
	}
	for _, run := range r {
		mark := emoji.Success
		switch {
		case !run.Success:
			mark = emoji.Error
		case run.DryRun:
			mark = emoji.DryRun
		}
		status := run.Status
		if run.DryRun {
			status = "dry run"
		}
		if run.Error != "" && status == "" {
			status = "failed"
		}
		data.Rows = append(data.Rows, []string{
			mark,
			run.StartedAt.Time.Local().Format(constants.TimeFormatHuman),
			run.ID,
			run.LayerID,
			strconv.Itoa(run.RecordsIn),
			strconv.Itoa(run.RecordsOut),
			strconv.Itoa(run.Replaced),
			status,
			run.Duration().Round(time.Millisecond).String(),
		})
	}
	return data
}
