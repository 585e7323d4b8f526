// Package history persists a ledger of build runs in a local SQLite
// database, one row per pipeline invocation, successes and failures alike.
package history

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rsuntk/kbuild/src/common/errors"
	"github.com/rsuntk/kbuild/src/common/paths"
	_ "github.com/mattn/go-sqlite3"
)

// Run statuses
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Record describes one recorded build run
type Record struct {
	ID         string
	Device     string
	Defconfig  string
	Archive    string
	Checksum   string
	DurationMs int64
	Status     string
	Error      string
	CreatedAt  time.Time
}

// DB wraps the history database connection
type DB struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path
func Open(path string) (*DB, error) {
	expanded := paths.Expand(path)
	if err := paths.EnsureDir(expanded); err != nil {
		return nil, errors.ErrHistoryOpen.WithCause(err)
	}

	db, err := sql.Open("sqlite3", expanded)
	if err != nil {
		return nil, errors.ErrHistoryOpen.WithCause(err)
	}

	h := &DB{db: db}
	if err := h.initSchema(); err != nil {
		db.Close()
		return nil, errors.ErrHistoryOpen.WithCause(err)
	}
	return h, nil
}

// Close closes the underlying connection
func (h *DB) Close() error {
	return h.db.Close()
}

// initSchema creates the runs table
func (h *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		device TEXT NOT NULL,
		defconfig TEXT NOT NULL,
		archive TEXT,
		checksum TEXT,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		error_message TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_device ON runs(device);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	`
	_, err := h.db.Exec(schema)
	return err
}

// Insert records a run. A missing ID is generated.
func (h *DB) Insert(rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	_, err := h.db.Exec(`
		INSERT INTO runs (id, device, defconfig, archive, checksum, duration_ms, status, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Device, rec.Defconfig, rec.Archive, rec.Checksum,
		rec.DurationMs, rec.Status, rec.Error,
	)
	if err != nil {
		return errors.ErrHistoryQuery.WithCause(err)
	}
	return nil
}

// List returns the most recent runs, newest first. limit <= 0 returns all.
func (h *DB) List(limit int) ([]Record, error) {
	query := `
		SELECT id, device, defconfig, archive, checksum, duration_ms, status, error_message, created_at
		FROM runs ORDER BY created_at DESC`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.db.Query(query, args...)
	if err != nil {
		return nil, errors.ErrHistoryQuery.WithCause(err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var archive, checksum, errMsg sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Device, &rec.Defconfig, &archive,
			&checksum, &rec.DurationMs, &rec.Status, &errMsg, &rec.CreatedAt); err != nil {
			return nil, errors.ErrHistoryQuery.WithCause(err)
		}
		rec.Archive = archive.String
		rec.Checksum = checksum.String
		rec.Error = errMsg.String
		records = append(records, rec)
	}

	return records, rows.Err()
}
