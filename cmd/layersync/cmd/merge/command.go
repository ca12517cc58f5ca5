// Package merge implements the merge command.
package merge

import (
	"context"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/agentstation/layersync/internal/appcontext"
	"github.com/agentstation/layersync/internal/cmd/cmdutil"
	"github.com/agentstation/layersync/internal/cmd/output"
	"github.com/agentstation/layersync/internal/storage"
	"github.com/agentstation/layersync/pkg/csvio"
	"github.com/agentstation/layersync/pkg/errors"
	"github.com/agentstation/layersync/pkg/reconcile"
	"github.com/agentstation/layersync/pkg/table"
)

// Summary is the printed outcome of a merge.
type Summary struct {
	Output     string            `json:"output"               yaml:"output"`
	Strategy   string            `json:"strategy"             yaml:"strategy"`
	Batches    int               `json:"batches"              yaml:"batches"`
	RecordsIn  int               `json:"records_in"           yaml:"records_in"`
	RecordsOut int               `json:"records_out"          yaml:"records_out"`
	Replaced   int               `json:"replaced"             yaml:"replaced"`
	Skipped    int               `json:"skipped"              yaml:"skipped"`
	Warnings   []string          `json:"warnings,omitempty"   yaml:"warnings,omitempty"`
	Provenance map[string]string `json:"provenance,omitempty" yaml:"provenance,omitempty"`
}

type options struct {
	out        string
	provenance bool
}

// NewCommand creates the merge command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:     "merge <batch> <batch>...",
		GroupID: "core",
		Short:   "Merge update batches by key without publishing",
		Long: `Merge reads the batches in order and keeps one record per key. With the
default last-write-wins strategy the record from the last batch containing
a key wins; keys keep the position where they were first seen.

The merged file is written to --out (a path or storage URI) or to stdout.`,
		Example: `  layersync merge -k id cities_2024.csv cities_2025.csv --out merged.csv
  layersync merge -k id s3://updates/b1.csv s3://updates/b2.csv > merged.csv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, app, opts, args)
		},
	}
	cmdutil.AddInputFlags(cmd)
	cmd.Flags().StringVar(&opts.out, "out", "-", "output path or storage URI, - for stdout")
	cmd.Flags().BoolVar(&opts.provenance, "provenance", false, "report which batch each output record came from")
	return cmd
}

func run(cmd *cobra.Command, app appcontext.Interface, opts *options, inputs []string) error {
	ctx := cmd.Context()

	reg, err := app.Storage(ctx)
	if err != nil {
		return err
	}
	reader, err := app.Reader()
	if err != nil {
		return err
	}
	rec, err := app.Reconciler(reconcile.WithProvenance(opts.provenance), reconcile.WithName("merged"))
	if err != nil {
		return err
	}

	batches, err := storage.LoadBatches(ctx, reg, reader.Decode, inputs)
	if err != nil {
		return err
	}
	res, err := rec.Merge(batches...)
	if err != nil {
		return err
	}
	for _, w := range res.Warnings {
		app.Logger().Warn().Msg(w)
	}

	delim, err := csvio.ParseDelimiter(app.Settings().Delimiter)
	if err != nil {
		return err
	}
	if err := writeOutput(ctx, reg, csvio.NewWriter(csvio.WithDelimiter(delim)), opts.out, res.Batch, cmd.OutOrStdout()); err != nil {
		return err
	}

	summary := Summary{
		Output:     opts.out,
		Strategy:   res.Strategy,
		Batches:    res.Stats.Batches,
		RecordsIn:  res.Stats.RecordsIn,
		RecordsOut: res.Stats.RecordsOut,
		Replaced:   res.Stats.Replaced,
		Skipped:    res.Stats.Skipped,
		Warnings:   res.Warnings,
		Provenance: res.Provenance,
	}

	// The CSV owns stdout when it is written there.
	w := cmd.OutOrStdout()
	if opts.out == "-" {
		w = cmd.ErrOrStderr()
	}
	return output.Write(w, app.OutputFormat(), summary)
}

func writeOutput(ctx context.Context, reg *storage.Registry, w *csvio.Writer, dst string, b *table.Batch, stdout io.Writer) error {
	if dst == "-" {
		return w.Write(stdout, b)
	}
	u, err := storage.ParseURI(dst)
	if err != nil {
		return err
	}
	if u.Scheme == storage.SchemeFile {
		return w.WriteFile(u.Key, b)
	}
	wc, err := reg.Create(ctx, dst)
	if err != nil {
		return err
	}
	if err := w.Write(wc, b); err != nil {
		_ = wc.Close()
		return err
	}
	return errors.WrapIO("write", dst, wc.Close())
}

// TableData lays the summary out as a property table.
func (s Summary) TableData() output.Data {
	rows := [][]string{
		{"Output", s.Output},
		{"Strategy", s.Strategy},
		{"Batches", strconv.Itoa(s.Batches)},
		{"Records in", strconv.Itoa(s.RecordsIn)},
		{"Records out", strconv.Itoa(s.RecordsOut)},
		{"Replaced", strconv.Itoa(s.Replaced)},
		{"Skipped", strconv.Itoa(s.Skipped)},
	}
	for _, w := range s.Warnings {
		rows = append(rows, []string{"Warning", w})
	}
	return output.Data{Headers: []string{"Property", "Value"}, Rows: rows}
}
