package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/clickgrab/internal/model"
)

// FileName is the archive file name inside the data directory.
const FileName = "clickgrab.db"

// ArchiveDB stores archived runs in SQLite.
// One row per run date holds the full report as JSON next to the summary
// columns, and a fingerprints table holds each run's command fingerprints
// for the novelty check.
//
// Design decision: We keep every run in a single database file rather than
// one file per run. History queries, pruning and the novelty check then stay
// single SQL statements, and backing up the archive is copying one file.
type ArchiveDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures ArchiveDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if missing.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the archive in dbDir.
func Open(dbDir string, opts Options) (*ArchiveDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	adb := &ArchiveDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if err := adb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return adb, nil
}

// Close closes the database connection.
func (a *ArchiveDB) Close() error {
	return a.db.Close()
}

// Path returns the database file path.
func (a *ArchiveDB) Path() string {
	return a.dbPath
}

func (a *ArchiveDB) createTables() error {
	schema := `
	-- One row per run date; a rerun on the same date replaces the row.
	CREATE TABLE IF NOT EXISTS runs (
		run_date TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		created_at TEXT NOT NULL,
		sites_scanned INTEGER NOT NULL,
		sites_with_attacks INTEGER NOT NULL,
		total_attacks INTEGER NOT NULL,
		new_patterns INTEGER NOT NULL,
		powershell_count INTEGER NOT NULL,
		clipboard_count INTEGER NOT NULL,
		report_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS fingerprints (
		run_date TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		PRIMARY KEY (run_date, fingerprint)
	);

	CREATE INDEX IF NOT EXISTS idx_fingerprints_value ON fingerprints(fingerprint);
	`
	_, err := a.db.ExecContext(context.Background(), schema)
	return err
}

// SaveRun archives report in one transaction, replacing any run with the
// same date.
func (a *ArchiveDB) SaveRun(ctx context.Context, report *model.Report) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}
	summary := report.Summary()
	runDate := report.RunDateString()

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // Rollback after Commit is a no-op
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM fingerprints WHERE run_date = ?`, runDate); err != nil {
		return fmt.Errorf("failed to clear fingerprints: %w", err)
	}

	query := `
	INSERT INTO runs (run_date, run_id, created_at, sites_scanned, sites_with_attacks,
		total_attacks, new_patterns, powershell_count, clipboard_count, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_date) DO UPDATE SET
		run_id = excluded.run_id,
		created_at = excluded.created_at,
		sites_scanned = excluded.sites_scanned,
		sites_with_attacks = excluded.sites_with_attacks,
		total_attacks = excluded.total_attacks,
		new_patterns = excluded.new_patterns,
		powershell_count = excluded.powershell_count,
		clipboard_count = excluded.clipboard_count,
		report_json = excluded.report_json
	`
	_, err = tx.ExecContext(ctx, query,
		runDate,
		summary.RunID,
		summary.CreatedAt.UTC().Format(time.RFC3339Nano),
		summary.SitesScanned,
		summary.SitesWithAttacks,
		summary.TotalAttacks,
		summary.NewPatterns,
		summary.PowerShellCount,
		summary.ClipboardCount,
		string(reportJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO fingerprints (run_date, fingerprint) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare fingerprint insert: %w", err)
	}
	defer stmt.Close()

	for _, fp := range report.Fingerprints().Values() {
		if _, err := stmt.ExecContext(ctx, runDate, fp); err != nil {
			return fmt.Errorf("failed to save fingerprint: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// PreviousFingerprints returns the fingerprints of the latest run strictly
// before runDate. It returns nil, nil when no such run exists.
func (a *ArchiveDB) PreviousFingerprints(ctx context.Context, runDate time.Time) (*model.FingerprintSet, error) {
	var prevDate string
	err := a.db.QueryRowContext(ctx,
		`SELECT run_date FROM runs WHERE run_date < ? ORDER BY run_date DESC LIMIT 1`,
		runDate.Format(model.DateLayout),
	).Scan(&prevDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find previous run: %w", err)
	}

	rows, err := a.db.QueryContext(ctx,
		`SELECT fingerprint FROM fingerprints WHERE run_date = ? ORDER BY fingerprint`, prevDate)
	if err != nil {
		return nil, fmt.Errorf("failed to load fingerprints: %w", err)
	}
	defer rows.Close()

	values := make([]string, 0)
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, fmt.Errorf("failed to scan fingerprint: %w", err)
		}
		values = append(values, fp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return model.NewFingerprintSet(values), nil
}

// ListRuns returns the summaries of all archived runs, newest first.
func (a *ArchiveDB) ListRuns(ctx context.Context) ([]model.RunSummary, error) {
	query := `
	SELECT run_date, run_id, created_at, sites_scanned, sites_with_attacks,
		total_attacks, new_patterns, powershell_count, clipboard_count
	FROM runs
	ORDER BY run_date DESC
	`
	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]model.RunSummary, 0)
	for rows.Next() {
		var (
			s         model.RunSummary
			runDate   string
			createdAt string
		)
		if err := rows.Scan(&runDate, &s.RunID, &createdAt, &s.SitesScanned, &s.SitesWithAttacks,
			&s.TotalAttacks, &s.NewPatterns, &s.PowerShellCount, &s.ClipboardCount); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		s.RunDate, err = time.Parse(model.DateLayout, runDate)
		if err != nil {
			return nil, fmt.Errorf("invalid run date %q: %w", runDate, err)
		}
		s.CreatedAt = parseTimestamp(createdAt)
		runs = append(runs, s)
	}
	return runs, rows.Err()
}

// GetReport returns the archived report of runDate, or ErrRunNotFound.
func (a *ArchiveDB) GetReport(ctx context.Context, runDate time.Time) (*model.Report, error) {
	var reportJSON string
	err := a.db.QueryRowContext(ctx,
		`SELECT report_json FROM runs WHERE run_date = ?`,
		runDate.Format(model.DateLayout),
	).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runDate.Format(model.DateLayout))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	var report model.Report
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}

// DeleteRunsBefore removes runs dated strictly before cutoff and returns
// how many were removed.
func (a *ArchiveDB) DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	date := cutoff.Format(model.DateLayout)

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // Rollback after Commit is a no-op
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM fingerprints WHERE run_date < ?`, date); err != nil {
		return 0, fmt.Errorf("failed to delete fingerprints: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE run_date < ?`, date)
	if err != nil {
		return 0, fmt.Errorf("failed to delete runs: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit delete: %w", err)
	}
	return n, nil
}

// timestampFormats are the layouts created_at may be stored in.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// parseTimestamp returns the zero time when no layout matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
