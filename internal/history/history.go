// Package history keeps a ledger of refresh runs in a local SQLite file.
package history

import (
	"context"
	"database/sql"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/agentstation/utc"
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/pressly/goose/v3"

	"github.com/agentstation/layersync/pkg/constants"
	"github.com/agentstation/layersync/pkg/errors"
)

// Run is one recorded refresh.
type Run struct {
	ID         string   `json:"id" yaml:"id"`
	StartedAt  utc.Time `json:"started_at" yaml:"started_at"`
	FinishedAt utc.Time `json:"finished_at" yaml:"finished_at"`
	LayerID    string   `json:"layer_id,omitempty" yaml:"layer_id,omitempty"`
	Batches    int      `json:"batches" yaml:"batches"`
	RecordsIn  int      `json:"records_in" yaml:"records_in"`
	RecordsOut int      `json:"records_out" yaml:"records_out"`
	Replaced   int      `json:"replaced" yaml:"replaced"`
	Skipped    int      `json:"skipped" yaml:"skipped"`
	OutputPath string   `json:"output_path,omitempty" yaml:"output_path,omitempty"`
	ArchiveURI string   `json:"archive_uri,omitempty" yaml:"archive_uri,omitempty"`
	JobID      string   `json:"job_id,omitempty" yaml:"job_id,omitempty"`
	Status     string   `json:"status,omitempty" yaml:"status,omitempty"`
	Success    bool     `json:"success" yaml:"success"`
	DryRun     bool     `json:"dry_run" yaml:"dry_run"`
	Error      string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// Duration returns how long the run took.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Time.Sub(r.StartedAt.Time)
}

// Store is a run ledger backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// gooseMu guards goose's package-level base FS and dialect.
var gooseMu sync.Mutex

// Open opens (creating if needed) the ledger at path and applies pending
// migrations. A leading "~/" is expanded to the home directory.
func Open(path string) (*Store, error) {
	resolved, err := expandHome(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(resolved), constants.DirPermissions); err != nil {
		return nil, errors.WrapIO("mkdir", filepath.Dir(resolved), err)
	}

	db, err := sql.Open("sqlite3", buildDSN(resolved))
	if err != nil {
		return nil, errors.NewConfigError("history", "open sqlite", err)
	}
	// A single writer avoids SQLITE_BUSY between concurrent scheduled runs.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.WrapIO("open", resolved, err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, path: resolved}, nil
}

func migrate(db *sql.DB) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return errors.NewConfigError("history", "goose set dialect", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return errors.NewConfigError("history", "goose up", err)
	}
	return nil
}

func buildDSN(path string) string {
	params := url.Values{}
	params.Set("_journal_mode", "WAL")
	params.Set("_busy_timeout", "5000")
	params.Set("_synchronous", "NORMAL")
	params.Set("_txlock", "immediate")
	return path + "?" + params.Encode()
}

func expandHome(path string) (string, error) {
	if path == "" {
		return "", errors.NewValidationError("history_path", path, "history path is required")
	}
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.NewConfigError("history", "resolve home directory", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// Path returns the resolved database file path.
func (s *Store) Path() string {
	return s.path
}

// Record inserts a run. Recording the same ID twice is an error.
func (s *Store) Record(ctx context.Context, run Run) error {
	if run.ID == "" {
		return errors.NewValidationError("id", run.ID, "run ID is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (
			id, started_at, finished_at, layer_id, batches, records_in, records_out,
			replaced, skipped, output_path, archive_uri, job_id, status, success, dry_run, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		formatTime(run.StartedAt),
		formatTime(run.FinishedAt),
		run.LayerID,
		run.Batches,
		run.RecordsIn,
		run.RecordsOut,
		run.Replaced,
		run.Skipped,
		run.OutputPath,
		run.ArchiveURI,
		run.JobID,
		run.Status,
		run.Success,
		run.DryRun,
		run.Error,
	)
	if err != nil {
		return errors.WrapIO("insert", s.path, err)
	}
	return nil
}

// List returns up to limit runs, newest first. A non-positive limit uses
// the default.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = constants.DefaultHistoryLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, layer_id, batches, records_in, records_out,
			replaced, skipped, output_path, archive_uri, job_id, status, success, dry_run, error
		FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, errors.WrapIO("query", s.path, err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var (
			run              Run
			started, finished string
		)
		if err := rows.Scan(
			&run.ID, &started, &finished, &run.LayerID, &run.Batches, &run.RecordsIn, &run.RecordsOut,
			&run.Replaced, &run.Skipped, &run.OutputPath, &run.ArchiveURI, &run.JobID, &run.Status,
			&run.Success, &run.DryRun, &run.Error,
		); err != nil {
			return nil, errors.WrapIO("scan", s.path, err)
		}
		if run.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if run.FinishedAt, err = parseTime(finished); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapIO("query", s.path, err)
	}
	return runs, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Timestamps are stored as fixed-width UTC text so they sort lexically.
const storedTimeFormat = "2006-01-02T15:04:05.000000000Z"

func formatTime(t utc.Time) string {
	return t.Time.UTC().Format(storedTimeFormat)
}

func parseTime(s string) (utc.Time, error) {
	t, err := time.Parse(storedTimeFormat, s)
	if err != nil {
		return utc.Time{}, errors.NewParseError("timestamp", "", s, err)
	}
	return utc.New(t), nil
}
