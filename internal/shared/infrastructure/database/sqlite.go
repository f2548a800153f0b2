package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/fleetworks/workshop/internal/shared/infrastructure/security"
)

// OpenSQLite opens a SQLite database file with WAL, foreign keys and a busy
// timeout. The pool is capped at one connection because SQLite has a single
// writer; transactions from concurrent callers queue on it.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		path = DefaultSQLitePath()
	}
	file, params, _ := strings.Cut(path, "?")
	if file != ":memory:" {
		clean, err := security.ValidateDatabasePath(file)
		if err != nil {
			return nil, err
		}
		if err := ensureDirectory(clean); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		file = clean
	}

	dsn := file + "?"
	if params != "" {
		dsn += params + "&"
	}
	dsn += "_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open SQLite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping SQLite database: %w", err)
	}
	return db, nil
}
