package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	_ "github.com/lib/pq"

	"github.com/samogod/tunecfg/pkg/config"
)

var DebugLog func(string, ...interface{})

type DB struct {
	conn    *sql.DB
	enabled bool
}

// RunRecord is one distinct resolution of a document. Resolving the same
// document to the same output again only bumps LastResolved and
// ResolveCount.
type RunRecord struct {
	Document      string
	Fingerprint   string
	Parameters    map[string]string
	Resolved      string
	FirstResolved time.Time
	LastResolved  time.Time
	ResolveCount  int
}

const DBName = "tunecfg_runs"

const (
	pingAttempts = 3
	pingDelay    = 500 * time.Millisecond
)

func debug(format string, args ...interface{}) {
	if DebugLog != nil {
		DebugLog(format, args...)
	}
}

func New(cfg *config.Database) (*DB, error) {
	db := &DB{
		enabled: cfg.Enabled,
	}

	if !cfg.Enabled {
		debug("run registry disabled")
		return db, nil
	}

	postgresConnStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=postgres sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password)

	postgresConn, err := sql.Open("postgres", postgresConnStr)
	if err != nil {
		return db, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer postgresConn.Close()

	if err := ping(postgresConn); err != nil {
		return db, fmt.Errorf("failed to ping postgres: %w", err)
	}

	var exists bool
	err = postgresConn.QueryRow("SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", DBName).Scan(&exists)
	if err != nil {
		return db, fmt.Errorf("failed to check database existence: %w", err)
	}

	if !exists {
		if _, err := postgresConn.Exec(fmt.Sprintf("CREATE DATABASE %s", DBName)); err != nil {
			return db, fmt.Errorf("failed to create database: %w", err)
		}
		debug("database '%s' created", DBName)
	}

	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, DBName)

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return db, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := ping(conn); err != nil {
		conn.Close()
		return db, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewWithConn(conn)
}

// NewWithConn wraps an open connection and initializes the schema.
func NewWithConn(conn *sql.DB) (*DB, error) {
	db := &DB{conn: conn, enabled: true}
	if err := db.initSchema(); err != nil {
		return db, fmt.Errorf("failed to initialize schema: %w", err)
	}
	debug("run registry active")
	return db, nil
}

func ping(conn *sql.DB) error {
	return retry.Do(
		conn.Ping,
		retry.Attempts(pingAttempts),
		retry.Delay(pingDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			debug("ping attempt %d failed: %v", n+1, err)
		}),
	)
}

func (db *DB) initSchema() error {
	if !db.enabled || db.conn == nil {
		return nil
	}

	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id SERIAL PRIMARY KEY,
		document TEXT NOT NULL,
		fingerprint VARCHAR(80) NOT NULL,
		parameters JSONB NOT NULL DEFAULT '{}',
		resolved JSONB NOT NULL,
		first_resolved TIMESTAMP NOT NULL DEFAULT NOW(),
		last_resolved TIMESTAMP NOT NULL DEFAULT NOW(),
		resolve_count INTEGER NOT NULL DEFAULT 1,
		UNIQUE(document, fingerprint)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_document ON runs(document);
	CREATE INDEX IF NOT EXISTS idx_runs_fingerprint ON runs(fingerprint);
	`

	_, err := db.conn.Exec(schema)
	return err
}

func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

func (db *DB) IsEnabled() bool {
	return db.enabled && db.conn != nil
}

// RecordRun stores a resolution. The returned record carries the stored
// timestamps and how many times this exact output has been produced for the
// document.
func (db *DB) RecordRun(run RunRecord) (RunRecord, error) {
	if !db.IsEnabled() {
		return run, nil
	}

	if run.Parameters == nil {
		run.Parameters = map[string]string{}
	}
	encoded, err := json.Marshal(run.Parameters)
	if err != nil {
		return run, fmt.Errorf("failed to encode parameters: %w", err)
	}

	err = db.conn.QueryRow(`
		INSERT INTO runs (document, fingerprint, parameters, resolved, first_resolved, last_resolved, resolve_count)
		VALUES ($1, $2, $3, $4, NOW(), NOW(), 1)
		ON CONFLICT (document, fingerprint)
		DO UPDATE SET last_resolved = NOW(), resolve_count = runs.resolve_count + 1
		RETURNING first_resolved, last_resolved, resolve_count
	`, run.Document, run.Fingerprint, string(encoded), run.Resolved).Scan(&run.FirstResolved, &run.LastResolved, &run.ResolveCount)
	if err != nil {
		return run, fmt.Errorf("failed to record run: %w", err)
	}

	if run.ResolveCount == 1 {
		debug("recorded new run %s for %s", run.Fingerprint, run.Document)
	} else {
		debug("run %s for %s seen %d times", run.Fingerprint, run.Document, run.ResolveCount)
	}
	return run, nil
}

const selectRuns = `
	SELECT document, fingerprint, parameters, resolved, first_resolved, last_resolved, resolve_count
	FROM runs
`

func (db *DB) QueryRuns(document string) ([]RunRecord, error) {
	if !db.IsEnabled() {
		return nil, fmt.Errorf("database is not enabled")
	}

	rows, err := db.conn.Query(selectRuns+" WHERE document = $1 ORDER BY last_resolved DESC", document)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRuns(rows)
}

func (db *DB) QueryAllRuns() ([]RunRecord, error) {
	if !db.IsEnabled() {
		return nil, fmt.Errorf("database is not enabled")
	}

	rows, err := db.conn.Query(selectRuns + " ORDER BY document, last_resolved DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRuns(rows)
}

func scanRuns(rows *sql.Rows) ([]RunRecord, error) {
	var records []RunRecord
	for rows.Next() {
		var (
			r          RunRecord
			parameters []byte
			resolved   []byte
		)
		if err := rows.Scan(&r.Document, &r.Fingerprint, &parameters, &resolved, &r.FirstResolved, &r.LastResolved, &r.ResolveCount); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(parameters, &r.Parameters); err != nil {
			return nil, fmt.Errorf("invalid parameters for run %s: %w", r.Fingerprint, err)
		}
		r.Resolved = string(resolved)
		records = append(records, r)
	}

	return records, rows.Err()
}
