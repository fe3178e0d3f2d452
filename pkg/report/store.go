package report

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store persists a run history to a local SQLite file: every completed
// run's summary, so repeated `polite run` invocations against the same
// scenario can be compared later without re-running the simulation.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if needed) a SQLite-backed run-history store
// at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("report: open store: %w", err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at    TEXT    NOT NULL,
	exit_code     INTEGER NOT NULL,
	wall_clock_ns INTEGER NOT NULL,
	key_values    INTEGER NOT NULL,
	stdout_bytes  INTEGER NOT NULL,
	sent          INTEGER NOT NULL,
	received      INTEGER NOT NULL
)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("report: create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Run is one recorded row of run history.
type Run struct {
	ID          int64
	StartedAt   time.Time
	ExitCode    int
	WallClock   time.Duration
	KeyValues   uint64
	StdoutBytes uint64
	Sent        uint64
	Received    uint64
}

// Record inserts one completed run's summary, stamped with startedAt, and
// returns its assigned row id.
func (s *Store) Record(startedAt time.Time, sum Summary) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO runs (started_at, exit_code, wall_clock_ns, key_values, stdout_bytes, sent, received)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		startedAt.UTC().Format(time.RFC3339Nano),
		sum.ExitCode,
		sum.WallClock.Nanoseconds(),
		sum.KeyValues,
		sum.StdoutBytes,
		sum.TotalSent(),
		sum.TotalReceived(),
	)
	if err != nil {
		return 0, fmt.Errorf("report: record run: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns up to limit most recently recorded runs, newest first.
func (s *Store) Recent(limit int) ([]Run, error) {
	rows, err := s.db.Query(
		`SELECT id, started_at, exit_code, wall_clock_ns, key_values, stdout_bytes, sent, received
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("report: query recent runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var startedAt string
		var wallClockNs int64
		if err := rows.Scan(&r.ID, &startedAt, &r.ExitCode, &wallClockNs,
			&r.KeyValues, &r.StdoutBytes, &r.Sent, &r.Received); err != nil {
			return nil, fmt.Errorf("report: scan run: %w", err)
		}
		r.WallClock = time.Duration(wallClockNs)
		r.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
		if err != nil {
			return nil, fmt.Errorf("report: parse started_at: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
