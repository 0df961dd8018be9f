package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

func gooseSetup(driver Driver) (string, error) {
	goose.SetBaseFS(migrationsFS)

	switch driver {
	case DriverPostgres:
		return "migrations/postgres", goose.SetDialect("postgres")
	case DriverSQLite:
		return "migrations/sqlite", goose.SetDialect("sqlite3")
	default:
		return "", fmt.Errorf("unsupported driver: %s", driver)
	}
}

func RunMigrations(ctx context.Context, db *sql.DB, driver Driver, logger *zap.Logger) error {
	const operation = "storage.RunMigrations"

	logger.Info("Running database migrations...", zap.String("driver", string(driver)))

	dir, err := gooseSetup(driver)
	if err != nil {
		return fmt.Errorf("%s: failed to set dialect: %w", operation, err)
	}

	if err := goose.UpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("%s: failed to run migrations: %w", operation, err)
	}

	logger.Info("Database migrations completed successfully")
	return nil
}

func RollbackMigration(ctx context.Context, db *sql.DB, driver Driver, logger *zap.Logger) error {
	const operation = "storage.RollbackMigration"

	logger.Info("Rolling back last migration...")

	dir, err := gooseSetup(driver)
	if err != nil {
		return fmt.Errorf("%s: failed to set dialect: %w", operation, err)
	}

	if err := goose.DownContext(ctx, db, dir); err != nil {
		return fmt.Errorf("%s: failed to rollback migration: %w", operation, err)
	}

	logger.Info("Migration rollback completed")
	return nil
}

// Version returns the current schema version.
func Version(ctx context.Context, db *sql.DB, driver Driver) (int64, error) {
	const operation = "storage.Version"

	if _, err := gooseSetup(driver); err != nil {
		return 0, fmt.Errorf("%s: failed to set dialect: %w", operation, err)
	}

	v, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", operation, err)
	}
	return v, nil
}
