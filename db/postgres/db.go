// Package postgres opens a PostgreSQL store through pgx and owns its schema.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/nasermirzaei89/threadline/db/migration"
)

const (
	DriverName = "pgx"

	// AdapterDriverName is the dialect name the casbin sql adapter expects.
	AdapterDriverName = "pgx"

	maxOpenConns    = 20
	maxIdleConns    = 5
	connMaxLifetime = 30 * time.Minute
)

// Placeholder is the bind variable style of PostgreSQL.
var Placeholder = sq.Dollar

//go:embed migrations/*.sql
var migrationsFS embed.FS

var migrations = migration.Source{FS: migrationsFS, Dir: "migrations", DriverName: "pgx5"}

func NewDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sql db: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	err = db.PingContext(ctx)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to ping sql db: %w", err), db.Close())
	}

	return db, nil
}

func MigrateUp(ctx context.Context, db *sql.DB) error {
	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		return fmt.Errorf("failed to create pgx migrate driver: %w", err)
	}

	return migrations.Up(ctx, driver)
}

func MigrateDown(db *sql.DB) error {
	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		return fmt.Errorf("failed to create pgx migrate driver: %w", err)
	}

	return migrations.Down(driver)
}
