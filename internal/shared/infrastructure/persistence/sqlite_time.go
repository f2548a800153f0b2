package persistence

import (
	"database/sql"
	"fmt"
	"time"
)

// SQLiteTimeLayout is a fixed-width UTC layout. Equal instants encode to
// equal strings and lexical order matches time order, which the unique
// slot index and range queries rely on.
const SQLiteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// FormatTime encodes t for a SQLite TEXT column.
func FormatTime(t time.Time) string {
	return t.UTC().Format(SQLiteTimeLayout)
}

// FormatTimePtr encodes an optional time as NULL or text.
func FormatTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: FormatTime(*t), Valid: true}
}

// ParseTime decodes a value written by FormatTime. RFC 3339 is accepted
// for rows written by hand.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(SQLiteTimeLayout, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t.UTC(), nil
}

// ParseTimePtr decodes a nullable column.
func ParseTimePtr(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := ParseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
