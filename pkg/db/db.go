// Package db provides the persistence layer for user feedback. It wraps a
// SQLite or PostgreSQL database holding one row per rated (user, track) pair.
// Callers open a single DB using New and reuse it for all operations.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Supported database drivers.
const (
	SQLite   = "sqlite3"
	Postgres = "postgres"
)

// DB wraps a sql.DB connection and exposes helper methods for the
// application's persistence layer.
type DB struct {
	*sql.DB
	dialect string
	// Now stamps created/updated. It is replaced in tests.
	Now func() time.Time
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS feedback (
		user_id TEXT NOT NULL,
		track_id TEXT NOT NULL,
		rating TEXT NOT NULL,
		track_name TEXT NOT NULL DEFAULT '',
		artist_id TEXT NOT NULL DEFAULT '',
		artist_name TEXT NOT NULL DEFAULT '',
		created TIMESTAMP NOT NULL,
		updated TIMESTAMP NOT NULL,
		PRIMARY KEY (user_id, track_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_feedback_user_rating ON feedback(user_id, rating, updated)`,
}

// New opens the database identified by driver and dsn and creates the schema
// if it does not exist yet. For SQLite the dsn is a file path or ":memory:".
func New(ctx context.Context, driver, dsn string) (*DB, error) {
	if driver != SQLite && driver != Postgres {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	d, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	switch driver {
	case Postgres:
		d.SetMaxOpenConns(25)
		d.SetMaxIdleConns(5)
		d.SetConnMaxLifetime(5 * time.Minute)
	case SQLite:
		// Every new connection to ":memory:" is a fresh database.
		d.SetMaxOpenConns(1)
	}
	db := Wrap(d, driver)
	if err := db.Migrate(ctx); err != nil {
		d.Close()
		return nil, err
	}
	return db, nil
}

// Wrap returns a DB using an existing connection. No schema is created.
func Wrap(d *sql.DB, dialect string) *DB {
	return &DB{DB: d, dialect: dialect, Now: time.Now}
}

// Migrate creates the feedback table and its index.
func (db *DB) Migrate(ctx context.Context) error {
	for _, s := range schema {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("init db: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (db *DB) rebind(query string) string {
	if db.dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Ping reports whether the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}
