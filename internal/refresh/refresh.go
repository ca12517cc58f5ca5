// Package refresh runs the end-to-end refresh of a hosted layer: load the
// update batches, merge them, write the output under the published file
// name, and overwrite the layer.
package refresh

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/agentstation/utc"
	"github.com/google/uuid"

	"github.com/agentstation/layersync/internal/history"
	"github.com/agentstation/layersync/internal/metrics"
	"github.com/agentstation/layersync/internal/portal"
	"github.com/agentstation/layersync/internal/storage"
	"github.com/agentstation/layersync/pkg/constants"
	"github.com/agentstation/layersync/pkg/csvio"
	"github.com/agentstation/layersync/pkg/errors"
	"github.com/agentstation/layersync/pkg/logging"
	"github.com/agentstation/layersync/pkg/reconcile"
	"github.com/agentstation/layersync/pkg/table"
)

// Publisher is the part of the portal client a refresh needs.
type Publisher interface {
	PublishedFileName(ctx context.Context, layerID string) (string, error)
	Overwrite(ctx context.Context, layerID, path string) (*portal.OverwriteResult, error)
}

// Recorder stores finished runs.
type Recorder interface {
	Record(ctx context.Context, run history.Run) error
}

var _ Publisher = (*portal.Client)(nil)
var _ Recorder = (*history.Store)(nil)

// Stage names used for logging and the stage duration metric.
const (
	StageLoad      = "load"
	StageMerge     = "merge"
	StageResolve   = "resolve"
	StageWrite     = "write"
	StageArchive   = "archive"
	StageOverwrite = "overwrite"
)

// Runner executes refreshes. A Runner is safe for sequential reuse, e.g.
// by the scheduler.
type Runner struct {
	registry   *storage.Registry
	reader     *csvio.Reader
	writer     *csvio.Writer
	reconciler *reconcile.Reconciler
	publisher  Publisher
	metrics    *metrics.Manager
	history    Recorder
	textfile   string
	pushURL    string
	pushJob    string
	now        func() time.Time
}

// NewRunner creates a runner reading batches through reg.
func NewRunner(reg *storage.Registry, opts ...Option) (*Runner, error) {
	if reg == nil {
		reg = storage.NewRegistry()
	}
	rec, err := reconcile.New()
	if err != nil {
		return nil, err
	}
	r := &Runner{
		registry:   reg,
		reader:     csvio.NewReader(),
		writer:     csvio.NewWriter(),
		reconciler: rec,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *Runner) validate(req Request) error {
	if len(req.Inputs) == 0 {
		return errors.NewValidationError("inputs", req.Inputs, "at least one input batch is required")
	}
	if req.DryRun {
		return nil
	}
	if r.publisher == nil {
		return errors.NewConfigError("refresh", "no portal configured; use a dry run to work offline", nil)
	}
	if req.LayerID == "" {
		return errors.NewValidationError("layer_id", req.LayerID, "layer ID is required")
	}
	return nil
}

// Run performs one refresh. The returned report is non-nil whenever the
// request passed validation, including on failure.
func (r *Runner) Run(ctx context.Context, req Request) (report *Report, err error) {
	if err := r.validate(req); err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, errors.NewConfigError("refresh", "generate run ID", err)
	}
	report = &Report{
		RunID:     id.String(),
		LayerID:   req.LayerID,
		StartedAt: utc.New(r.now()),
		DryRun:    req.DryRun,
	}
	ctx = logging.WithRun(ctx, report.RunID)
	if req.LayerID != "" {
		ctx = logging.WithItem(ctx, req.LayerID)
	}
	logger := logging.FromContext(ctx)
	logger.Info().Int("inputs", len(req.Inputs)).Bool("dry_run", req.DryRun).Msg("Starting refresh")

	defer func() {
		if err != nil {
			report.Error = err.Error()
		}
		report.FinishedAt = utc.New(r.now())
		r.finish(ctx, report)
	}()

	if err := r.execute(ctx, req, report); err != nil {
		return report, err
	}
	return report, nil
}

func (r *Runner) execute(ctx context.Context, req Request, report *Report) error {
	logger := logging.FromContext(ctx)

	var batches []*table.Batch
	if err := r.stage(ctx, StageLoad, func() error {
		var err error
		batches, err = storage.LoadBatches(ctx, r.registry, r.reader.Decode, req.Inputs)
		return err
	}); err != nil {
		return err
	}

	var result *reconcile.Result
	if err := r.stage(ctx, StageMerge, func() error {
		var err error
		result, err = r.reconciler.Merge(batches...)
		return err
	}); err != nil {
		return err
	}
	report.Stats = result.Stats
	report.Warnings = result.Warnings
	for _, w := range result.Warnings {
		logger.Warn().Msg(w)
	}
	if r.metrics != nil {
		s := result.Stats
		r.metrics.RecordMerge(s.Batches, s.RecordsIn, s.RecordsOut, s.Replaced, s.Skipped)
	}
	logger.Info().Msg(result.Summary())

	var name string
	if err := r.stage(ctx, StageResolve, func() error {
		var err error
		name, err = r.outputName(ctx, req)
		return err
	}); err != nil {
		return err
	}

	path, err := csvio.ResolveOutputPath(req.OutputDir, name)
	if err != nil {
		return err
	}
	if err := r.stage(ctx, StageWrite, func() error {
		return r.writer.WriteFile(path, result.Batch)
	}); err != nil {
		return err
	}
	report.OutputPath = path
	logger.Info().Str("path", path).Int("records", result.Batch.Len()).Msg("Wrote merged output")

	if req.ArchiveURI != "" {
		if err := r.stage(ctx, StageArchive, func() error {
			dst, err := archiveLocation(req.ArchiveURI, name, report.StartedAt.Time)
			if err != nil {
				return err
			}
			if err := r.registry.CopyFile(ctx, path, dst); err != nil {
				return err
			}
			report.ArchiveURI = dst
			return nil
		}); err != nil {
			return err
		}
		logger.Info().Str("archive", report.ArchiveURI).Msg("Archived output")
	}

	if req.DryRun {
		logger.Info().Msg("Dry run: skipping overwrite")
		return nil
	}

	return r.stage(ctx, StageOverwrite, func() error {
		res, err := r.publisher.Overwrite(ctx, req.LayerID, path)
		report.Overwrite = res
		if r.metrics != nil && res != nil {
			r.metrics.RecordOverwrite(res.Status)
		}
		return err
	})
}

// outputName returns the explicit name when given, otherwise the name of
// the file the layer was published from.
func (r *Runner) outputName(ctx context.Context, req Request) (string, error) {
	if req.OutputName != "" {
		return req.OutputName, nil
	}
	if r.publisher == nil || req.LayerID == "" {
		return "", errors.NewValidationError("output_name", "", "an output name is required when no portal layer is given")
	}
	return r.publisher.PublishedFileName(ctx, req.LayerID)
}

func (r *Runner) stage(ctx context.Context, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	d := time.Since(start)
	if r.metrics != nil {
		r.metrics.ObserveStage(name, d)
	}
	event := logging.FromContext(ctx).Debug()
	if err != nil {
		event = logging.FromContext(ctx).Error().Err(err)
	}
	event.Str("stage", name).Dur("duration", d).Msg("Stage finished")
	return err
}

// finish records the run. Failures here are logged and never change the
// outcome of the run.
func (r *Runner) finish(ctx context.Context, report *Report) {
	logger := logging.FromContext(ctx)

	if r.metrics != nil {
		r.metrics.RecordRun(report.Success(), report.FinishedAt.Time)
		if r.textfile != "" {
			if err := r.metrics.WriteTextfile(r.textfile); err != nil {
				logger.Warn().Err(err).Msg("Failed to write metrics textfile")
			}
		}
		if r.pushURL != "" {
			job := r.pushJob
			if job == "" {
				job = constants.MetricsJobName
			}
			if err := r.metrics.Push(ctx, r.pushURL, job); err != nil {
				logger.Warn().Err(err).Msg("Failed to push metrics")
			}
		}
	}

	if r.history != nil {
		if err := r.history.Record(ctx, report.Run()); err != nil {
			logger.Warn().Err(err).Msg("Failed to record run history")
		}
	}

	if report.Success() {
		logger.Info().Dur("duration", report.Duration()).Msg("Refresh finished")
	} else {
		logger.Error().Str("error", report.Error).Msg("Refresh failed")
	}
}

// archiveLocation names the archived copy <stem>-<timestamp><ext> under
// the archive prefix.
func archiveLocation(prefix, name string, at time.Time) (string, error) {
	u, err := storage.ParseURI(prefix)
	if err != nil {
		return "", err
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	return u.Join(stem + "-" + at.UTC().Format(constants.TimeFormatFilename) + ext).String(), nil
}
