// Package constants provides shared constants used throughout the layersync codebase.
// This includes timeouts, limits, file permissions, and portal protocol values
// that should be consistent across the application.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultHTTPTimeout is the standard timeout for HTTP requests to the portal
	DefaultHTTPTimeout = 30 * time.Second

	// OverwriteTimeout bounds a full overwrite including publish job polling
	OverwriteTimeout = 15 * time.Minute

	// DefaultPollInterval is the interval between overwrite job status checks
	DefaultPollInterval = 2 * time.Second

	// TokenRefreshMargin is how long before expiry a cached portal token is renewed
	TokenRefreshMargin = 1 * time.Minute

	// TokenExpiration is the token lifetime requested from generateToken, in minutes
	TokenExpiration = 60

	// ShutdownTimeout bounds how long the scheduler waits for running jobs
	ShutdownTimeout = 30 * time.Second
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Limit constants define various limits and capacities
const (
	// MaxConcurrentLoads is the maximum number of batches read at once
	MaxConcurrentLoads = 8

	// DefaultHistoryLimit is the number of runs shown by the history command
	DefaultHistoryLimit = 20

	// ErrorBodyLimit is the maximum number of response bytes kept in API errors
	ErrorBodyLimit = 4096
)

// Rate limiting constants
const (
	// StatusPollBurst is the token bucket burst size for job status polling
	StatusPollBurst = 1
)

// Default values
const (
	// DefaultDelimiter is the field separator for batch files
	DefaultDelimiter = ','

	// DefaultPortalURL is the portal used when none is configured
	DefaultPortalURL = "https://www.arcgis.com"

	// DefaultHistoryPath is the run ledger location
	DefaultHistoryPath = "~/.layersync/history.db"

	// DefaultOutputDir is where merged files are written
	DefaultOutputDir = "."

	// MetricsJobName is the Pushgateway job label
	MetricsJobName = "layersync"
)

// Format constants
const (
	// TimeFormatHuman is a human-readable time format
	TimeFormatHuman = "Jan 2, 2006 at 3:04pm MST"

	// TimeFormatFilename is the format used in archived filenames
	TimeFormatFilename = "20060102-150405"
)
