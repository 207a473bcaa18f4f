// Package database opens the libSQL database that backs match storage.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/tursodatabase/go-libsql"
)

// Memory is the path of a private in-memory database.
const Memory = ":memory:"

// Open creates a SQLite connection via libSQL and configures it for
// concurrent use: WAL journal mode, 5 s busy timeout, foreign keys enabled.
// The parent directory of path is created if missing.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if path != Memory {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("libsql", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if path == Memory {
		// Every connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}

	// libSQL rejects Exec for PRAGMAs that return rows, but some PRAGMAs
	// (like foreign_keys=ON) return nothing. Use QueryContext and drain rows
	// to handle both cases uniformly. All of them run on one connection so
	// busy_timeout already applies when the journal mode is read.
	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("acquiring connection: %w", err)
	}
	err = configure(ctx, conn)
	conn.Close()
	if err != nil {
		db.Close()
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

func configure(ctx context.Context, conn *sql.Conn) error {
	for _, p := range []string{"PRAGMA busy_timeout=5000", "PRAGMA foreign_keys=ON"} {
		if err := pragma(ctx, conn, p, nil); err != nil {
			return err
		}
	}

	// Switching to WAL takes an exclusive lock, so only ask when the file
	// is not in WAL mode yet. The mode persists in the database file.
	var mode string
	if err := pragma(ctx, conn, "PRAGMA journal_mode", &mode); err != nil {
		return err
	}
	if strings.EqualFold(mode, "wal") {
		return nil
	}
	return pragma(ctx, conn, "PRAGMA journal_mode=WAL", nil)
}

// pragma runs p and scans the first column of the first row into dest when
// dest is not nil.
func pragma(ctx context.Context, conn *sql.Conn, p string, dest *string) error {
	rows, err := conn.QueryContext(ctx, p)
	if err != nil {
		return fmt.Errorf("executing %s: %w", p, err)
	}
	defer rows.Close()
	if dest != nil && rows.Next() {
		if err := rows.Scan(dest); err != nil {
			return fmt.Errorf("reading %s: %w", p, err)
		}
	}
	for rows.Next() {
	}
	return rows.Err()
}
