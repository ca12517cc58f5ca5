package refresh

import (
	"fmt"
	"time"

	"github.com/agentstation/utc"

	"github.com/agentstation/layersync/internal/history"
	"github.com/agentstation/layersync/internal/portal"
	"github.com/agentstation/layersync/pkg/reconcile"
)

// Request describes one refresh.
type Request struct {
	// Inputs are batch locations in merge order; later inputs win.
	Inputs []string

	// LayerID is the hosted feature layer to overwrite.
	LayerID string

	// OutputDir is where the merged file is written.
	OutputDir string

	// OutputName overrides the published file name. Required when the
	// runner has no publisher to ask.
	OutputName string

	// ArchiveURI, when set, receives a timestamped copy of the output.
	ArchiveURI string

	// DryRun stops after writing (and archiving) the output.
	DryRun bool
}

// Report is the outcome of a refresh. A report is returned even when the
// run fails, carrying whatever was completed.
type Report struct {
	RunID      string                  `json:"run_id"                yaml:"run_id"`
	LayerID    string                  `json:"layer_id,omitempty"    yaml:"layer_id,omitempty"`
	StartedAt  utc.Time                `json:"started_at"            yaml:"started_at"`
	FinishedAt utc.Time                `json:"finished_at"           yaml:"finished_at"`
	Stats      reconcile.Stats         `json:"stats"                 yaml:"stats"`
	Warnings   []string                `json:"warnings,omitempty"    yaml:"warnings,omitempty"`
	OutputPath string                  `json:"output_path,omitempty" yaml:"output_path,omitempty"`
	ArchiveURI string                  `json:"archive_uri,omitempty" yaml:"archive_uri,omitempty"`
	Overwrite  *portal.OverwriteResult `json:"overwrite,omitempty"   yaml:"overwrite,omitempty"`
	DryRun     bool                    `json:"dry_run"               yaml:"dry_run"`
	Error      string                  `json:"error,omitempty"       yaml:"error,omitempty"`
}

// Success reports whether the run completed. A dry run succeeds once the
// output is written.
func (r *Report) Success() bool {
	if r.Error != "" {
		return false
	}
	if r.DryRun {
		return r.OutputPath != ""
	}
	return r.Overwrite != nil && r.Overwrite.Success
}

// Duration returns the wall time of the run.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Time.Sub(r.StartedAt.Time)
}

// Summary returns a one-line description of the run.
func (r *Report) Summary() string {
	switch {
	case r.Error != "":
		return fmt.Sprintf("Run %s failed: %s", r.RunID, r.Error)
	case r.DryRun:
		return fmt.Sprintf("Dry run %s wrote %d records to %s", r.RunID, r.Stats.RecordsOut, r.OutputPath)
	default:
		return fmt.Sprintf("Run %s overwrote %s with %d records (job %s)",
			r.RunID, r.LayerID, r.Stats.RecordsOut, r.Overwrite.JobID)
	}
}

// Run converts the report into a history entry.
func (r *Report) Run() history.Run {
	run := history.Run{
		ID:         r.RunID,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		LayerID:    r.LayerID,
		Batches:    r.Stats.Batches,
		RecordsIn:  r.Stats.RecordsIn,
		RecordsOut: r.Stats.RecordsOut,
		Replaced:   r.Stats.Replaced,
		Skipped:    r.Stats.Skipped,
		OutputPath: r.OutputPath,
		ArchiveURI: r.ArchiveURI,
		Success:    r.Success(),
		DryRun:     r.DryRun,
		Error:      r.Error,
	}
	if r.Overwrite != nil {
		run.JobID = r.Overwrite.JobID
		run.Status = r.Overwrite.Status
	}
	return run
}
