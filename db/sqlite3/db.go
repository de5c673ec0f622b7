// Package sqlite3 opens the embedded SQLite store and owns its schema.
package sqlite3

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/nasermirzaei89/threadline/db/migration"
	_ "modernc.org/sqlite"
)

const (
	DriverName = "sqlite"

	// AdapterDriverName is the dialect name the casbin sql adapter expects.
	AdapterDriverName = "sqlite3"

	DefaultDSN = "file:threadline.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_time_format=sqlite"
)

// Placeholder is the bind variable style of SQLite.
var Placeholder = sq.Question

//go:embed migrations/*.sql
var migrationsFS embed.FS

var migrations = migration.Source{FS: migrationsFS, Dir: "migrations", DriverName: DriverName}

// NewDB opens a SQLite database. Writes are serialized on a single connection,
// which also keeps shared in-memory databases consistent.
func NewDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sql db: %w", err)
	}

	db.SetMaxOpenConns(1)

	err = db.PingContext(ctx)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to ping sql db: %w", err), db.Close())
	}

	return db, nil
}

func MigrateUp(ctx context.Context, db *sql.DB) error {
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite migrate driver: %w", err)
	}

	return migrations.Up(ctx, driver)
}

func MigrateDown(db *sql.DB) error {
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite migrate driver: %w", err)
	}

	return migrations.Down(driver)
}
