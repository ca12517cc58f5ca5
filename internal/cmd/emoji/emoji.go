// Package emoji provides the status symbols used in table output.
package emoji

const (
	// Success marks a run or batch that completed.
	Success = "✓"

	// Error marks a failed run or an invalid batch.
	Error = "✗"

	// Warning marks a merge warning or a skipped step.
	Warning = "!"

	// DryRun marks a run that stopped before the overwrite.
	DryRun = "-"
)
