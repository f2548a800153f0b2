package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Driver names a storage backend.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

func (d Driver) String() string { return string(d) }

// ResolveDriver picks the backend. An explicit name wins; otherwise the URL
// decides, and an empty URL selects SQLite for zero-config local use.
func ResolveDriver(name, url string) (Driver, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql":
		return DriverPostgres, nil
	case "sqlite", "sqlite3":
		return DriverSQLite, nil
	case "", "auto":
	default:
		return "", fmt.Errorf("unsupported database driver %q", name)
	}

	switch {
	case url == "":
		return DriverSQLite, nil
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return DriverPostgres, nil
	case strings.HasPrefix(url, "file:"), strings.HasSuffix(url, ".db"), strings.HasSuffix(url, ".sqlite"):
		return DriverSQLite, nil
	}
	return DriverPostgres, nil
}

// DefaultSQLitePath is ~/.workshop/workshop.db, or a relative path when
// the home directory is unknown.
func DefaultSQLitePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".workshop", "workshop.db")
	}
	return filepath.Join(home, ".workshop", "workshop.db")
}

func ensureDirectory(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o750)
}
