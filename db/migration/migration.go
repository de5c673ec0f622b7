// Package migration applies embedded schema migrations through
// golang-migrate for any database driver.
package migration

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Source is a set of migration files for one database driver.
type Source struct {
	FS         fs.FS
	Dir        string
	DriverName string
}

func (src Source) instance(driver database.Driver) (*migrate.Migrate, error) {
	d, err := iofs.New(src.FS, src.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to create iofs driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", d, src.DriverName, driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	return m, nil
}

// Up applies every pending migration. An up-to-date schema is not an error.
func (src Source) Up(ctx context.Context, driver database.Driver) error {
	m, err := src.instance(driver)
	if err != nil {
		return err
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migration: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("failed to get current active migration version: %w", err)
	}

	slog.InfoContext(ctx, "migration applied successfully", "driver", src.DriverName, "version", version, "dirty", dirty)

	return nil
}

// Down reverts every applied migration.
func (src Source) Down(driver database.Driver) error {
	m, err := src.instance(driver)
	if err != nil {
		return err
	}

	err = m.Down()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migration down: %w", err)
	}

	return nil
}
