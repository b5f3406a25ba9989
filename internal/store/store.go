package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Tables created by the legacy JSON migration script (same layout)
// 1 - Current layout, user_version recorded
const currentSchemaVersion = 1

// Supported database/sql driver names.
const (
	DriverCGO  = "sqlite3" // github.com/mattn/go-sqlite3
	DriverPure = "sqlite"  // modernc.org/sqlite
)

// SQLite primary result codes used to recognise corruption.
const (
	sqliteCorrupt = 11 // SQLITE_CORRUPT
	sqliteNotADB  = 26 // SQLITE_NOTADB
)

// Store provides durable storage for tested digests and all-time statistics.
// A Store is owned by a single writer; the pool is pinned to one connection.
type Store struct {
	db     *sql.DB
	path   string
	driver string
}

// Option configures Open.
type Option func(*Store)

// WithDriver selects the database/sql driver (DriverCGO or DriverPure).
func WithDriver(name string) Option {
	return func(s *Store) {
		s.driver = name
	}
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and schema, then verifies integrity.
//
// Errors:
//   - STORE_OPEN if the path cannot be opened (missing directory, permissions)
//   - CORRUPT_STORE if the file is not a database, quick_check fails, or the
//     statistics row cannot be decoded
//
// This function is idempotent - safe to call multiple times.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{path: path, driver: DriverCGO}
	for _, opt := range opts {
		opt(s)
	}
	if s.driver != DriverCGO && s.driver != DriverPure {
		return nil, NewOpenError(path, fmt.Errorf("unknown driver %q", s.driver))
	}

	if dir := filepath.Dir(path); dir != "" {
		if _, err := os.Stat(dir); err != nil {
			return nil, NewOpenError(path, fmt.Errorf("store directory: %w", err))
		}
	}

	db, err := sql.Open(s.driver, path)
	if err != nil {
		return nil, NewOpenError(path, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, classifyOpenError(path, fmt.Errorf("failed to connect to database: %w", err))
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	s.db = db

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, classifyOpenError(path, fmt.Errorf("failed to apply pragmas: %w", err))
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, classifyOpenError(path, fmt.Errorf("failed to apply schema: %w", err))
	}

	if err := s.verify(context.Background(), "quick_check"); err != nil {
		db.Close()
		return nil, err
	}

	// The stats row is read on every session start; a row that no longer
	// decodes is treated the same as a damaged page.
	if _, err := s.LoadStats(context.Background()); err != nil {
		db.Close()
		return nil, NewCorruptError(path, err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Driver returns the database/sql driver name in use.
func (s *Store) Driver() string {
	return s.driver
}

// Check runs a full PRAGMA integrity_check. Returns CORRUPT_STORE on any
// reported problem.
func (s *Store) Check(ctx context.Context) error {
	return s.verify(ctx, "integrity_check")
}

// verify runs quick_check or integrity_check and expects a single "ok" row.
func (s *Store) verify(ctx context.Context, pragma string) error {
	rows, err := s.db.QueryContext(ctx, "PRAGMA "+pragma)
	if err != nil {
		return classifyOpenError(s.path, fmt.Errorf("%s: %w", pragma, err))
	}
	defer rows.Close()

	var problems []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return NewCorruptError(s.path, fmt.Errorf("%s: %w", pragma, err))
		}
		if line != "ok" {
			problems = append(problems, line)
		}
	}
	if err := rows.Err(); err != nil {
		return classifyOpenError(s.path, fmt.Errorf("%s: %w", pragma, err))
	}
	if len(problems) > 0 {
		return NewCorruptError(s.path, fmt.Errorf("%s: %v", pragma, problems))
	}
	return nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA cache_size = -64000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version > currentSchemaVersion {
		return fmt.Errorf("schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	// Version 0 stores already carry the v1 tables (CREATE IF NOT EXISTS
	// above is a no-op for them); only the version marker is missing.
	if version == currentSchemaVersion {
		return nil
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// classifyOpenError maps driver errors seen while opening to STORE_OPEN or
// CORRUPT_STORE.
func classifyOpenError(path string, err error) error {
	if code, ok := sqliteCode(err); ok && (code == sqliteCorrupt || code == sqliteNotADB) {
		return NewCorruptError(path, err)
	}
	return NewOpenError(path, err)
}

// sqliteCode extracts the primary result code from either driver's error.
// modernc.org/sqlite errors expose a Code method; mattn/go-sqlite3 returns
// sqlite3.Error values.
func sqliteCode(err error) (int, bool) {
	var coder interface{ Code() int }
	if errors.As(err, &coder) {
		return coder.Code() & 0xff, true
	}
	var cgoErr sqlite3.Error
	if errors.As(err, &cgoErr) {
		return int(cgoErr.Code), true
	}
	return 0, false
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
