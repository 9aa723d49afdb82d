package repository

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/lib/pq" // registers the "postgres" database/sql driver for goose
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

// Migrate applies all pending schema migrations.
func Migrate(ctx context.Context, databaseURL string) error {
	return withMigrator(databaseURL, func(db *sql.DB) error {
		if err := goose.UpContext(ctx, db, migrationsDir); err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
		return nil
	})
}

// ResetSchema rolls every migration back and re-applies them, leaving
// empty tables. Intended for integration tests.
func ResetSchema(ctx context.Context, databaseURL string) error {
	return withMigrator(databaseURL, func(db *sql.DB) error {
		if err := goose.DownToContext(ctx, db, migrationsDir, 0); err != nil {
			return fmt.Errorf("failed to roll back migrations: %w", err)
		}
		if err := goose.UpContext(ctx, db, migrationsDir); err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
		return nil
	})
}

// SchemaVersion returns the current migration version.
func SchemaVersion(ctx context.Context, databaseURL string) (int64, error) {
	var version int64
	err := withMigrator(databaseURL, func(db *sql.DB) error {
		v, err := goose.GetDBVersionContext(ctx, db)
		version = v
		return err
	})
	return version, err
}

func withMigrator(databaseURL string, fn func(*sql.DB) error) error {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	return fn(db)
}
