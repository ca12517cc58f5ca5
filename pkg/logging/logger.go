// Package logging provides structured logging for layersync using zerolog.
// Interactive runs get a human-readable console writer; scheduled and piped
// runs get JSON lines suitable for log shipping.
//
// Example usage:
//
//	log := logging.Default()
//	log.Info().Str("batch", "updates.csv").Int("records", 36).Msg("Batch loaded")
//
//	ctx := logging.WithLogger(context.Background(), log)
//	ctx = logging.WithItem(ctx, layerID)
//	logging.FromContext(ctx).Debug().Msg("Resolving source item")
package logging

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// defaultLogger is configured from the LOG_* environment until the CLI
// replaces it with one built from its flags.
var defaultLogger = NewLoggerFromConfig(envConfig())

// Default returns the process-wide logger.
func Default() *zerolog.Logger {
	return &defaultLogger
}

// SetDefault replaces the process-wide logger, including zerolog's global
// log.Logger.
func SetDefault(logger zerolog.Logger) {
	defaultLogger = logger
	log.Logger = logger
}

// Debug starts a debug event on the default logger.
func Debug() *zerolog.Event { return defaultLogger.Debug() }

// Info starts an info event on the default logger.
func Info() *zerolog.Event { return defaultLogger.Info() }

// Warn starts a warning event on the default logger.
func Warn() *zerolog.Event { return defaultLogger.Warn() }

// Error starts an error event on the default logger.
func Error() *zerolog.Event { return defaultLogger.Error() }

// Err starts an event for err on the default logger: error level when err
// is non-nil, info otherwise.
func Err(err error) *zerolog.Event { return defaultLogger.Err(err) }
