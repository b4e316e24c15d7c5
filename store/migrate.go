package store

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/pgx"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// MigrationsTable is the bookkeeping table used by Migrate.
const MigrationsTable = "contentcore_migrations"

// Migrate applies all pending up migrations to the database behind pool.
func Migrate(_ context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return ErrNilPool
	}

	sourceDriver, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("store: migration source: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	defer func() { _ = sqlDB.Close() }()

	dbDriver, err := pgx.WithInstance(sqlDB, &pgx.Config{MigrationsTable: MigrationsTable})
	if err != nil {
		return fmt.Errorf("store: migration driver: %w", err)
	}
	defer func() { _ = dbDriver.Close() }()

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("store: migrate instance: %w", err)
	}

	_, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("store: migration version: %w", err)
	}
	if dirty {
		return errors.New("store: migration state is dirty")
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("store: migrate up: %w", err)
	}
	return nil
}
