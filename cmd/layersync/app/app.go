// Package app provides the application context and dependency management
// for the layersync CLI. It centralizes configuration, logging, and the
// lazily created clients commands share.
package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/layersync/internal/appcontext"
	"github.com/agentstation/layersync/internal/config"
	"github.com/agentstation/layersync/internal/history"
	"github.com/agentstation/layersync/internal/metrics"
	"github.com/agentstation/layersync/internal/portal"
	"github.com/agentstation/layersync/internal/refresh"
	"github.com/agentstation/layersync/internal/storage"
	"github.com/agentstation/layersync/pkg/constants"
	"github.com/agentstation/layersync/pkg/csvio"
	"github.com/agentstation/layersync/pkg/errors"
	"github.com/agentstation/layersync/pkg/reconcile"
)

// App represents the layersync application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	// Global CLI configuration
	config *Config

	// Settings resolved for the running command
	settings *config.Config

	logger *zerolog.Logger

	// Lazily created clients
	mu      sync.Mutex
	storage *storage.Registry
	portal  *portal.Client
	history *history.Store
	metrics *metrics.Manager
}

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	app.config = LoadConfig()

	settings, err := config.Load(config.Options{})
	if err != nil {
		return nil, err
	}
	app.settings = settings

	logger := NewLogger(app.config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the global CLI configuration.
func (a *App) Config() *Config {
	return a.config
}

// Settings returns the resolved settings.
func (a *App) Settings() *config.Config {
	return a.settings
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// Storage returns the store registry, creating it on first use.
func (a *App) Storage(ctx context.Context) (*storage.Registry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.storage != nil {
		return a.storage, nil
	}
	reg, err := storage.NewRegistryFromConfig(ctx, a.settings.Storage())
	if err != nil {
		return nil, err
	}
	a.storage = reg
	return reg, nil
}

// Portal returns the portal client, creating it on first use.
func (a *App) Portal() (*portal.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.portal != nil {
		return a.portal, nil
	}
	c, err := portal.New(a.settings.PortalURL, a.settings.Credentials(),
		portal.WithPollInterval(a.settings.PollInterval),
		portal.WithTimeout(constants.DefaultHTTPTimeout),
		portal.WithTokenHeader(a.settings.TokenHeader),
	)
	if err != nil {
		return nil, err
	}
	a.portal = c
	return c, nil
}

// History opens the run ledger on first use.
func (a *App) History() (*history.Store, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.history != nil {
		return a.history, nil
	}
	h, err := history.Open(a.settings.HistoryPath)
	if err != nil {
		return nil, err
	}
	a.history = h
	return h, nil
}

// Metrics returns the run metrics.
func (a *App) Metrics() *metrics.Manager {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.metrics == nil {
		var opts []metrics.Option
		if a.settings.LayerID != "" {
			opts = append(opts, metrics.WithConstLabels(map[string]string{"layer": a.settings.LayerID}))
		}
		a.metrics = metrics.NewManager(opts...)
	}
	return a.metrics
}

// Reader returns a batch reader configured from the settings.
func (a *App) Reader() (*csvio.Reader, error) {
	return appcontext.NewReader(a.settings)
}

// Reconciler returns a reconciler configured from the settings.
func (a *App) Reconciler(opts ...reconcile.Option) (*reconcile.Reconciler, error) {
	return appcontext.NewReconciler(a.settings, opts...)
}

// Runner assembles a refresh runner from the settings.
func (a *App) Runner(ctx context.Context, offline bool) (*refresh.Runner, error) {
	reg, err := a.Storage(ctx)
	if err != nil {
		return nil, err
	}
	reader, err := a.Reader()
	if err != nil {
		return nil, err
	}
	rec, err := a.Reconciler()
	if err != nil {
		return nil, err
	}

	opts := []refresh.Option{
		refresh.WithReader(reader),
		refresh.WithReconciler(rec),
		refresh.WithMetrics(a.Metrics()),
		refresh.WithMetricsTextfile(a.settings.MetricsTextfile),
	}
	if a.settings.PushgatewayURL != "" {
		opts = append(opts, refresh.WithPushgateway(a.settings.PushgatewayURL, constants.MetricsJobName))
	}
	if a.settings.HistoryPath != "" {
		h, err := a.History()
		if err != nil {
			return nil, err
		}
		opts = append(opts, refresh.WithHistory(h))
	}
	if !offline {
		p, err := a.Portal()
		if err != nil {
			return nil, err
		}
		opts = append(opts, refresh.WithPublisher(p))
	}
	return refresh.NewRunner(reg, opts...)
}

// Shutdown releases the clients the app opened.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.history != nil {
		if err := a.history.Close(); err != nil {
			return errors.WrapIO("close", a.history.Path(), err)
		}
		a.history = nil
	}
	return nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom CLI configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithSettings sets custom settings.
func WithSettings(settings *config.Config) Option {
	return func(a *App) error {
		a.settings = settings
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// Ensure App implements appcontext.Interface at compile time.
var _ appcontext.Interface = (*App)(nil)
