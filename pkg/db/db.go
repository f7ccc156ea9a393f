package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Database is the audit journal. Every order, fill, signal, and daily
// rollup the engine produces lands here.
type Database struct {
	DB *sql.DB
}

// New opens the journal at path, creating the file and parent directory
// when missing. ":memory:" gives an ephemeral journal for tests.
func New(path string) (*Database, error) {
	if path == "" {
		return nil, errors.New("journal path is empty")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}

	handle, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Single writer; sqlite serializes writes anyway and this avoids
	// SQLITE_BUSY under concurrent journal calls.
	handle.SetMaxOpenConns(1)

	d := &Database{DB: handle}
	if err := d.init(); err != nil {
		handle.Close()
		return nil, err
	}
	return d, nil
}

func (d *Database) Close() error {
	if d == nil || d.DB == nil {
		return nil
	}
	return d.DB.Close()
}
