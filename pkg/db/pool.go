// Package db stores the invocation audit log in Postgres via pgx.
package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

const logPrefix = "db:pool"

// AuditTable is created by the first migration.
const AuditTable = "gateway_invocations"

// NewPool creates a new pgx connection pool from the given database URL.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	slog.Info(fmt.Sprintf("%s - Connecting to database", logPrefix))

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to parse database URL: %w", logPrefix, err)
	}

	config.MaxConns = 10
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to create pool: %w", logPrefix, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s - failed to ping database: %w", logPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Database connection established", logPrefix))
	return pool, nil
}

// RunMigrations applies SQL migration files in order. Migrations are written
// to be idempotent, so re-running them is safe.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, migrationFiles []string) error {
	slog.Info(fmt.Sprintf("%s - Running %d migrations", logPrefix, len(migrationFiles)))

	for i, sql := range migrationFiles {
		if _, err := pool.Exec(ctx, sql); err != nil {
			return fmt.Errorf("%s - migration %d failed: %w", logPrefix, i+1, err)
		}
	}

	slog.Info(fmt.Sprintf("%s - Migrations complete", logPrefix))
	return nil
}

// MigrationReport describes the schema state.
type MigrationReport struct {
	Applied bool
	Files   int
	Source  string
}

func (r MigrationReport) String() string {
	source := r.Source
	if source == "" {
		source = "embedded"
	}
	if r.Applied {
		return fmt.Sprintf("Migration status: applied (%s present, %d migration files in %s)", AuditTable, r.Files, source)
	}
	return fmt.Sprintf("Migration status: not applied (run 'gateway migrate up'). %d migration files in %s", r.Files, source)
}

// MigrationStatus reports whether the audit schema exists.
func MigrationStatus(ctx context.Context, pool *pgxpool.Pool, migrationPath string) (*MigrationReport, error) {
	const statusLogPrefix = "db:MigrationStatus"

	var exists bool
	err := pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = 'public' AND table_name = $1)`,
		AuditTable).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to check schema: %w", statusLogPrefix, err)
	}

	files, err := LoadMigrationFiles(migrationPath)
	if err != nil {
		return nil, fmt.Errorf("%s - load migration list: %w", statusLogPrefix, err)
	}

	return &MigrationReport{Applied: exists, Files: len(files), Source: migrationPath}, nil
}

// MigrationDown drops the audit table. Recorded invocations are lost.
func MigrationDown(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Warn(fmt.Sprintf("%s - Dropping %s", logPrefix, AuditTable))
	if _, err := pool.Exec(ctx, `DROP TABLE IF EXISTS `+AuditTable); err != nil {
		return fmt.Errorf("%s - migration down failed: %w", logPrefix, err)
	}
	return nil
}
