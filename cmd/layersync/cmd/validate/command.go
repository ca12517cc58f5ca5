// Package validate implements the validate command.
package validate

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentstation/layersync/internal/appcontext"
	"github.com/agentstation/layersync/internal/cmd/cmdutil"
	"github.com/agentstation/layersync/internal/cmd/emoji"
	"github.com/agentstation/layersync/internal/cmd/output"
	"github.com/agentstation/layersync/internal/storage"
	"github.com/agentstation/layersync/pkg/csvio"
	"github.com/agentstation/layersync/pkg/errors"
	"github.com/agentstation/layersync/pkg/table"
)

// BatchStatus is the validation outcome of one batch.
type BatchStatus struct {
	Batch   string `json:"batch"           yaml:"batch"`
	Records int    `json:"records"         yaml:"records"`
	Columns int    `json:"columns"         yaml:"columns"`
	Key     string `json:"key"             yaml:"key"`
	Valid   bool   `json:"valid"           yaml:"valid"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Report lists the status of every batch.
type Report []BatchStatus

// NewCommand creates the validate command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	var printSchema bool
	cmd := &cobra.Command{
		Use:     "validate <batch>...",
		GroupID: "core",
		Short:   "Check that batches parse and share one schema",
		Long: `Validate reads every batch, checks each record against the schema (the
schema file, or one inferred from the first batch), and checks that all
batches have the same columns in the same order with the same types.

Nothing is written. The command fails if any batch is invalid.`,
		Example: `  layersync validate -k id b1.csv b2.csv
  layersync validate -k id --print-schema b1.csv > schema.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := app.Storage(cmd.Context())
			if err != nil {
				return err
			}
			reader, err := app.Reader()
			if err != nil {
				return err
			}

			report, schema := Check(cmd.Context(), reg, reader, args)

			if printSchema && schema != nil {
				data, err := schema.YAML()
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}

			if err := output.Write(cmd.OutOrStdout(), app.OutputFormat(), report); err != nil {
				return err
			}
			if n := report.Invalid(); n > 0 {
				return errors.NewValidationError("batches", n, fmt.Sprintf("%d of %d batches invalid", n, len(report)))
			}
			return nil
		},
	}
	cmdutil.AddInputFlags(cmd)
	cmd.Flags().BoolVar(&printSchema, "print-schema", false, "print the schema of the first valid batch as YAML")
	return cmd
}

// Check validates each location independently so that every problem is
// reported, and returns the schema the first valid batch used.
func Check(ctx context.Context, reg *storage.Registry, reader *csvio.Reader, locations []string) (Report, *table.Schema) {
	report := make(Report, 0, len(locations))
	var first *table.Schema

	for _, loc := range locations {
		status := BatchStatus{Batch: loc}
		b, err := readOne(ctx, reg, reader, loc)
		switch {
		case err != nil:
			status.Error = err.Error()
		case first != nil && !first.Compatible(b.Schema):
			status.Records = b.Len()
			status.Columns = len(b.Schema.Columns)
			status.Key = b.Schema.Key
			status.Error = errors.NewSchemaMismatchError(loc, first.Names(), b.Schema.Names()).Error()
		default:
			status.Records = b.Len()
			status.Columns = len(b.Schema.Columns)
			status.Key = b.Schema.Key
			status.Valid = true
			if first == nil {
				first = b.Schema
			}
		}
		report = append(report, status)
	}
	return report, first
}

func readOne(ctx context.Context, reg *storage.Registry, reader *csvio.Reader, loc string) (*table.Batch, error) {
	rc, err := reg.Open(ctx, loc)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	u, err := storage.ParseURI(loc)
	if err != nil {
		return nil, err
	}
	return reader.Decode(u.Base(), rc)
}

// Invalid counts the invalid batches.
func (r Report) Invalid() int {
	n := 0
	for _, s := range r {
		if !s.Valid {
			n++
		}
	}
	return n
}

// TableData lays the report out with one row per batch.
func (r Report) TableData() output.Data {
	data := output.Data{
		Headers:         []string{"", "Batch", "Records", "Columns", "Key", "Error"},
		ColumnAlignment: []output.Align{output.AlignCenter, output.AlignLeft, output.AlignRight, output.AlignRight, output.AlignLeft, output.AlignLeft},
	}
	for _, s := range r {
		mark := emoji.Success
		if !s.Valid {
			mark = emoji.Error
		}
		data.Rows = append(data.Rows, []string{
			mark, s.Batch, strconv.Itoa(s.Records), strconv.Itoa(s.Columns), s.Key, strings.TrimSpace(s.Error),
		})
	}
	return data
}
