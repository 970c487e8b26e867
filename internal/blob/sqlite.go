package blob

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - pre-migration
// 1 - initial kv + log tables
const currentSchemaVersion = 1

// SQLite is a Store backed by a SQLite database file.
// Uses WAL mode so readers are not blocked by the single writer.
type SQLite struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically; the function is
// idempotent.
func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent use.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	// No incremental migrations yet; the schema above is v1.
	if version < currentSchemaVersion {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}
	return nil
}

// Put stores value under (ns, key), replacing any previous value.
func (s *SQLite) Put(ns, key string, value []byte) error {
	_, err := s.db.Exec(
		"INSERT INTO kv (ns, key, value) VALUES (?, ?, ?) ON CONFLICT(ns, key) DO UPDATE SET value = excluded.value",
		ns, key, value,
	)
	return ioErr("put", err)
}

// Get returns the value under (ns, key).
func (s *SQLite) Get(ns, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRow("SELECT value FROM kv WHERE ns = ? AND key = ?", ns, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, ioErr("get", err)
	}
	return value, true, nil
}

// Delete removes (ns, key).
func (s *SQLite) Delete(ns, key string) error {
	_, err := s.db.Exec("DELETE FROM kv WHERE ns = ? AND key = ?", ns, key)
	return ioErr("delete", err)
}

// Scan visits every pair in ns in ascending key order.
func (s *SQLite) Scan(ns string, fn func(key string, value []byte) error) error {
	rows, err := s.db.Query("SELECT key, value FROM kv WHERE ns = ? ORDER BY key", ns)
	if err != nil {
		return ioErr("scan", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return ioErr("scan", err)
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}
	return ioErr("scan", rows.Err())
}

// Append adds value to the end of the ns log.
func (s *SQLite) Append(ns string, value []byte) (uint64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, ioErr("append", err)
	}
	defer tx.Rollback()

	var next uint64
	if err := tx.QueryRow("SELECT COALESCE(MAX(idx) + 1, 0) FROM log WHERE ns = ?", ns).Scan(&next); err != nil {
		return 0, ioErr("append", err)
	}
	if _, err := tx.Exec("INSERT INTO log (ns, idx, value) VALUES (?, ?, ?)", ns, next, value); err != nil {
		return 0, ioErr("append", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, ioErr("append", err)
	}
	return next, nil
}

// Read returns the log value at index.
func (s *SQLite) Read(ns string, index uint64) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRow("SELECT value FROM log WHERE ns = ? AND idx = ?", ns, index).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, ioErr("read", err)
	}
	return value, true, nil
}

// Reset discards every log record in ns.
func (s *SQLite) Reset(ns string) error {
	_, err := s.db.Exec("DELETE FROM log WHERE ns = ?", ns)
	return ioErr("reset", err)
}

// Len returns the number of log records in ns.
func (s *SQLite) Len(ns string) (uint64, error) {
	var count uint64
	if err := s.db.QueryRow("SELECT COUNT(*) FROM log WHERE ns = ?", ns).Scan(&count); err != nil {
		return 0, ioErr("len", err)
	}
	return count, nil
}
