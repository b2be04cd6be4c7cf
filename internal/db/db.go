package db

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite connection that backs persisted dashboard state
// (sessions, and whatever later migrations add).
type DB struct {
	Conn *sql.DB
	path string
}

// New opens (or creates) the SQLite database at path, creating the parent
// directory if needed. WAL mode and foreign keys are enabled.
func New(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// A single connection sidesteps SQLite write locking.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	log.Printf("database opened: %s", path)
	return &DB{Conn: conn, path: path}, nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	return d.Conn.Close()
}

// Ping verifies the connection is alive.
func (d *DB) Ping() error {
	return d.Conn.Ping()
}
