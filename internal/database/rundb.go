package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/caselka/DirtyWaters/internal/model"
)

// RunDB provides SQLite-based storage for run history.
// It manages connection pooling and provides methods for CRUD operations.
//
// Design decision: We use a single database file for all runs rather than
// separate files per target. This keeps the history queryable across
// engagements and simplifies backup/restore operations.
type RunDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures RunDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a RunDB at the specified path.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*RunDB, error) {
	dbPath := filepath.Join(dbDir, "dirtywaters.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite uses mode=rw to prevent creating new files and
	// mode=rwc to allow creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer, and the history is write-light
	// anyway: one insert batch per run.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &RunDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := rdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return rdb, nil
}

// Close closes the database connection.
func (rdb *RunDB) Close() error {
	return rdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (rdb *RunDB) createTables() error {
	schema := `
	-- Runs store one row per completed attack run
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		target_url TEXT NOT NULL,
		username TEXT NOT NULL,
		outcome TEXT NOT NULL,
		found_password TEXT,
		total_attempts INTEGER NOT NULL,
		rotations INTEGER NOT NULL DEFAULT 0,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		elapsed_ns INTEGER NOT NULL,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_target ON runs(target_url);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- Attempts store the per-candidate records of each run
	CREATE TABLE IF NOT EXISTS attempts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		candidate TEXT NOT NULL,
		outcome TEXT NOT NULL,
		verdict TEXT,
		status_code INTEGER,
		redirect_target TEXT,
		error TEXT,
		duration_ns INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_attempts_run ON attempts(run_id);
	`

	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveReport persists a finished attack report and its attempt records.
// Returns the run's database ID.
func (rdb *RunDB) SaveReport(ctx context.Context, report *model.AttackReport) (int64, error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}

	tx, err := rdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	query := `
	INSERT INTO runs (target_url, username, outcome, found_password, total_attempts, rotations, started_at, finished_at, elapsed_ns, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := tx.ExecContext(ctx, query,
		report.TargetURL,
		report.Username,
		string(report.Outcome),
		report.FoundPassword,
		report.TotalAttempts,
		report.Rotations,
		report.StartedAt.UTC().Format("2006-01-02 15:04:05"),
		report.FinishedAt.UTC().Format("2006-01-02 15:04:05"),
		report.Elapsed.Nanoseconds(),
		string(reportJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save run: %w", err)
	}

	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run ID: %w", err)
	}

	attemptQuery := `
	INSERT INTO attempts (run_id, seq, candidate, outcome, verdict, status_code, redirect_target, error, duration_ns)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for _, a := range report.Attempts {
		_, err := tx.ExecContext(ctx, attemptQuery,
			runID,
			a.Seq,
			a.Candidate,
			string(a.Outcome),
			string(a.Verdict),
			a.StatusCode,
			a.RedirectTarget,
			a.Error,
			a.Duration.Nanoseconds(),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to save attempt %d: %w", a.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}

	return runID, nil
}

// RunSummary contains summary information about a stored run.
// This is used for displaying run history without loading the full report.
type RunSummary struct {
	// ID is the unique identifier of the run in the database.
	ID int64

	// TargetURL is the login endpoint the run was aimed at.
	TargetURL string

	// Username is the account the run targeted.
	Username string

	// Outcome says how the run ended.
	Outcome model.RunOutcome

	// Found reports whether the run discovered a working password.
	Found bool

	// TotalAttempts is how many candidates were tried.
	TotalAttempts int

	// StartedAt is when the run began.
	StartedAt time.Time

	// Elapsed is the run's total wall time.
	Elapsed time.Duration
}

// ListRuns retrieves run summaries, newest first.
// If targetURL is non-empty, only runs against that target are returned.
// limit caps the number of rows; zero or negative means no limit.
func (rdb *RunDB) ListRuns(ctx context.Context, targetURL string, limit int) ([]RunSummary, error) {
	query := `
	SELECT id, target_url, username, outcome, found_password, total_attempts, started_at, elapsed_ns
	FROM runs
	WHERE 1=1
	`
	args := make([]interface{}, 0)

	if targetURL != "" {
		query += " AND target_url = ?"
		args = append(args, targetURL)
	}

	query += " ORDER BY started_at DESC, id DESC"

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := rdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var results []RunSummary
	for rows.Next() {
		var summary RunSummary
		var outcome string
		var foundPassword sql.NullString
		var startedAt string
		var elapsedNS int64

		err := rows.Scan(
			&summary.ID,
			&summary.TargetURL,
			&summary.Username,
			&outcome,
			&foundPassword,
			&summary.TotalAttempts,
			&startedAt,
			&elapsedNS,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		summary.Outcome = model.RunOutcome(outcome)
		summary.Found = foundPassword.Valid && foundPassword.String != ""
		summary.StartedAt = parseTimestamp(startedAt)
		summary.Elapsed = time.Duration(elapsedNS)

		results = append(results, summary)
	}

	return results, rows.Err()
}

// GetRunByID retrieves the complete stored report for a run.
// Returns nil without error when the run does not exist.
func (rdb *RunDB) GetRunByID(ctx context.Context, id int64) (*model.AttackReport, error) {
	query := `
	SELECT report_json FROM runs
	WHERE id = ?
	`

	var reportJSON string
	err := rdb.db.QueryRowContext(ctx, query, id).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var report model.AttackReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// GetRunAttempts retrieves the attempt records for a run, in sequence order.
func (rdb *RunDB) GetRunAttempts(ctx context.Context, runID int64) ([]model.AttemptRecord, error) {
	query := `
	SELECT seq, candidate, outcome, verdict, status_code, redirect_target, error, duration_ns
	FROM attempts
	WHERE run_id = ?
	ORDER BY seq
	`

	rows, err := rdb.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get attempts: %w", err)
	}
	defer rows.Close()

	var results []model.AttemptRecord
	for rows.Next() {
		var record model.AttemptRecord
		var outcome, verdict string
		var statusCode sql.NullInt64
		var redirectTarget, attemptErr sql.NullString
		var durationNS int64

		err := rows.Scan(
			&record.Seq,
			&record.Candidate,
			&outcome,
			&verdict,
			&statusCode,
			&redirectTarget,
			&attemptErr,
			&durationNS,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}

		record.Outcome = model.AttemptOutcome(outcome)
		record.Verdict = model.Verdict(verdict)
		record.StatusCode = int(statusCode.Int64)
		record.RedirectTarget = redirectTarget.String
		record.Error = attemptErr.String
		record.Duration = time.Duration(durationNS)

		results = append(results, record)
	}

	return results, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on configuration.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
