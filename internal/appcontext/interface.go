// Package appcontext provides the shared application context interface
// used by all commands, so command packages depend on an interface rather
// than on the concrete App.
package appcontext

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/agentstation/layersync/internal/config"
	"github.com/agentstation/layersync/internal/history"
	"github.com/agentstation/layersync/internal/metrics"
	"github.com/agentstation/layersync/internal/portal"
	"github.com/agentstation/layersync/internal/refresh"
	"github.com/agentstation/layersync/internal/storage"
	"github.com/agentstation/layersync/pkg/csvio"
	"github.com/agentstation/layersync/pkg/reconcile"
)

// Interface defines what commands need from the application.
type Interface interface {
	// Settings returns the resolved configuration for the running command.
	Settings() *config.Config

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (table, json, yaml).
	OutputFormat() string

	// Storage returns the registry of configured stores, created lazily.
	Storage(ctx context.Context) (*storage.Registry, error)

	// Portal returns the portal client, created lazily.
	Portal() (*portal.Client, error)

	// History opens the run ledger, created lazily.
	History() (*history.Store, error)

	// Metrics returns the run metrics.
	Metrics() *metrics.Manager

	// Reader returns a batch reader configured from the settings.
	Reader() (*csvio.Reader, error)

	// Reconciler returns a reconciler configured from the settings plus opts.
	Reconciler(opts ...reconcile.Option) (*reconcile.Reconciler, error)

	// Runner returns a refresh runner. An offline runner has no portal and
	// only accepts dry runs.
	Runner(ctx context.Context, offline bool) (*refresh.Runner, error)

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
