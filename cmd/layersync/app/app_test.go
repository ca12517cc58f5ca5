package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/agentstation/layersync/internal/config"
)

// isolate keeps the user's real config, env files and history out of a test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)
	return dir
}

// TestApp_New verifies app initialization.
func TestApp_New(t *testing.T) {
	isolate(t)

	app, err := New("1.0.0", "abc123", "2024-01-01", "test")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if app.Version() != "1.0.0" {
		t.Errorf("Version() = %s, want 1.0.0", app.Version())
	}
	if app.Commit() != "abc123" {
		t.Errorf("Commit() = %s, want abc123", app.Commit())
	}
	if app.Logger() == nil {
		t.Error("Logger() returned nil")
	}
	if app.Config() == nil {
		t.Error("Config() returned nil")
	}
	if app.Settings().Delimiter != "," {
		t.Errorf("Settings().Delimiter = %q, want default ','", app.Settings().Delimiter)
	}
}

// TestApp_Storage_Singleton verifies that Storage() returns the same registry.
func TestApp_Storage_Singleton(t *testing.T) {
	isolate(t)
	app, err := New("1.0.0", "test", "2024-01-01", "test")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	const goroutines = 20
	var wg sync.WaitGroup
	results := make([]any, goroutines)
	for i := range goroutines {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			reg, err := app.Storage(context.Background())
			if err != nil {
				t.Errorf("Storage() failed: %v", err)
				return
			}
			results[idx] = reg
		}(i)
	}
	wg.Wait()

	for i := 1; i < goroutines; i++ {
		if results[i] != results[0] {
			t.Fatalf("Storage() returned different instances")
		}
	}
}

// TestApp_Runner_Offline verifies an offline runner needs no portal and
// opens the history ledger.
func TestApp_Runner_Offline(t *testing.T) {
	dir := isolate(t)
	settings := &config.Config{
		KeyColumn:   "id",
		Delimiter:   ",",
		HistoryPath: filepath.Join(dir, "runs.db"),
	}
	app, err := New("1.0.0", "test", "2024-01-01", "test", WithSettings(settings))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if _, err := app.Runner(context.Background(), true); err != nil {
		t.Fatalf("Runner() failed: %v", err)
	}
	if _, err := os.Stat(settings.HistoryPath); err != nil {
		t.Errorf("history ledger not created: %v", err)
	}
	if err := app.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() failed: %v", err)
	}
}

// TestApp_Runner_NeedsKey verifies the runner reports a missing key column.
func TestApp_Runner_NeedsKey(t *testing.T) {
	isolate(t)
	app, err := New("1.0.0", "test", "2024-01-01", "test", WithSettings(&config.Config{Delimiter: ","}))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if _, err := app.Runner(context.Background(), true); err == nil {
		t.Error("Runner() succeeded without a key column")
	}
}

// TestApp_Execute_Version runs the version command through the root command.
func TestApp_Execute_Version(t *testing.T) {
	isolate(t)
	app, err := New("1.2.3", "test", "2024-01-01", "test")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	root := app.createRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if !strings.Contains(out.String(), "layersync version 1.2.3") {
		t.Errorf("unexpected output: %s", out.String())
	}
}

// TestContextWithSignals verifies the run context follows its parent and
// its stop function.
func TestContextWithSignals(t *testing.T) {
	parent, cancelParent := context.WithCancel(context.Background())
	ctx, stop := ContextWithSignals(parent)
	defer stop()

	if ctx.Err() != nil {
		t.Fatalf("context cancelled early: %v", ctx.Err())
	}
	cancelParent()
	<-ctx.Done()
	if ctx.Err() != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", ctx.Err())
	}

	ctx, stop = ContextWithSignals(context.Background())
	stop()
	<-ctx.Done()
}
