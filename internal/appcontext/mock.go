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
	"github.com/agentstation/layersync/pkg/logging"
	"github.com/agentstation/layersync/pkg/reconcile"
)

// Mock provides a mock implementation of Interface for testing.
// Each method can be customized by setting the corresponding function field.
// If a function field is nil, the method returns a usable default.
type Mock struct {
	SettingsValue *config.Config
	Format        string

	LoggerFunc  func() *zerolog.Logger
	StorageFunc func(context.Context) (*storage.Registry, error)
	PortalFunc  func() (*portal.Client, error)
	HistoryFunc func() (*history.Store, error)
	MetricsFunc func() *metrics.Manager
	RunnerFunc  func(context.Context, bool) (*refresh.Runner, error)
}

// Settings returns SettingsValue or an empty config.
func (m *Mock) Settings() *config.Config {
	if m.SettingsValue != nil {
		return m.SettingsValue
	}
	return &config.Config{Delimiter: ",", Strategy: "last-write-wins", Ordering: "first-seen", Policy: "reject"}
}

// Logger returns a logger using the mock function or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	return logging.NewNopLogger()
}

// OutputFormat returns Format, defaulting to json.
func (m *Mock) OutputFormat() string {
	if m.Format != "" {
		return m.Format
	}
	return "json"
}

// Storage returns a registry using the mock function or one with only
// the local file store.
func (m *Mock) Storage(ctx context.Context) (*storage.Registry, error) {
	if m.StorageFunc != nil {
		return m.StorageFunc(ctx)
	}
	return storage.NewRegistry(), nil
}

// Portal returns a client using the mock function or an error.
func (m *Mock) Portal() (*portal.Client, error) {
	if m.PortalFunc != nil {
		return m.PortalFunc()
	}
	return portal.New(m.Settings().PortalURL, m.Settings().Credentials())
}

// History returns a store using the mock function or nil.
func (m *Mock) History() (*history.Store, error) {
	if m.HistoryFunc != nil {
		return m.HistoryFunc()
	}
	return nil, nil
}

// Metrics returns a manager using the mock function or a fresh one.
func (m *Mock) Metrics() *metrics.Manager {
	if m.MetricsFunc != nil {
		return m.MetricsFunc()
	}
	return metrics.NewManager()
}

// Reader builds a reader from the settings.
func (m *Mock) Reader() (*csvio.Reader, error) {
	return NewReader(m.Settings())
}

// Reconciler builds a reconciler from the settings.
func (m *Mock) Reconciler(opts ...reconcile.Option) (*reconcile.Reconciler, error) {
	return NewReconciler(m.Settings(), opts...)
}

// Runner returns a runner using the mock function or an offline runner.
func (m *Mock) Runner(ctx context.Context, offline bool) (*refresh.Runner, error) {
	if m.RunnerFunc != nil {
		return m.RunnerFunc(ctx, offline)
	}
	reg, err := m.Storage(ctx)
	if err != nil {
		return nil, err
	}
	reader, err := m.Reader()
	if err != nil {
		return nil, err
	}
	rec, err := m.Reconciler()
	if err != nil {
		return nil, err
	}
	return refresh.NewRunner(reg, refresh.WithReader(reader), refresh.WithReconciler(rec))
}

// Version returns "dev".
func (m *Mock) Version() string { return "dev" }

// Commit returns "unknown".
func (m *Mock) Commit() string { return "unknown" }

// Date returns "unknown".
func (m *Mock) Date() string { return "unknown" }

// BuiltBy returns "test".
func (m *Mock) BuiltBy() string { return "test" }

// Ensure Mock implements Interface at compile time.
var _ Interface = (*Mock)(nil)
