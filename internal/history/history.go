// Package history keeps a SQLite log of render runs, replacing the flat
// benchmark log with something the CLI can query.
package history

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Run is one render invocation.
type Run struct {
	ID            string  `db:"id"`
	Composition   string  `db:"composition"`
	Output        string  `db:"output"`
	Frames        int     `db:"frames"`
	FPS           int     `db:"fps"`
	Workers       int     `db:"workers"`
	Encoder       string  `db:"encoder"`
	Build         string  `db:"build"`
	StartedUnix   int64   `db:"started_at"` // unix nanoseconds
	RenderSeconds float64 `db:"render_seconds"`
	TotalSeconds  float64 `db:"total_seconds"`
	Status        string  `db:"status"`
	Error         string  `db:"error"`
}

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

func (r Run) Started() time.Time {
	return time.Unix(0, r.StartedUnix)
}

// FPSAchieved is frames rendered per wall-clock second.
func (r Run) FPSAchieved() float64 {
	if r.TotalSeconds <= 0 {
		return 0
	}
	return float64(r.Frames) / r.TotalSeconds
}

// DB wraps the SQLite connection.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates the history database at path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		composition TEXT NOT NULL,
		output TEXT NOT NULL,
		frames INTEGER NOT NULL,
		fps INTEGER NOT NULL,
		workers INTEGER NOT NULL,
		encoder TEXT NOT NULL,
		build TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		render_seconds REAL NOT NULL,
		total_seconds REAL NOT NULL,
		status TEXT NOT NULL,
		error TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Record stores a run, assigning an ID when it has none.
func (db *DB) Record(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedUnix == 0 {
		run.StartedUnix = time.Now().UnixNano()
	}
	_, err := db.conn.NamedExec(`
		INSERT INTO runs (id, composition, output, frames, fps, workers, encoder, build,
			started_at, render_seconds, total_seconds, status, error)
		VALUES (:id, :composition, :output, :frames, :fps, :workers, :encoder, :build,
			:started_at, :render_seconds, :total_seconds, :status, :error)`,
		run,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// Recent returns the newest runs first.
func (db *DB) Recent(limit int) ([]Run, error) {
	var runs []Run
	err := db.conn.Select(&runs,
		"SELECT * FROM runs ORDER BY started_at DESC LIMIT ?",
		limit,
	)
	return runs, err
}

// Get loads one run by ID or unique ID prefix.
func (db *DB) Get(id string) (Run, error) {
	var runs []Run
	if err := db.conn.Select(&runs, "SELECT * FROM runs WHERE id LIKE ? LIMIT 2", id+"%"); err != nil {
		return Run{}, err
	}
	switch len(runs) {
	case 0:
		return Run{}, fmt.Errorf("no run %q", id)
	case 1:
		return runs[0], nil
	default:
		return Run{}, fmt.Errorf("run id %q is ambiguous", id)
	}
}
