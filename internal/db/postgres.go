package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/limshub/vessel-queue/internal/config"
)

// appName tags every pool connection so queue-engine traffic is
// identifiable in pg_stat_activity next to the other lab services
// sharing the database.
const appName = "vessel-queue"

const migrationsPath = "file://migrations"

// Connect builds the pgxpool shared by the queue repository and the
// vessel resolver, and verifies connectivity before anything serves.
func Connect(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MaxConns = cfg.DBMaxConns
	poolCfg.MinConns = cfg.DBMinConns
	poolCfg.ConnConfig.RuntimeParams["application_name"] = appName

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// Migrate applies pending up-migrations for the queue and vessel tables,
// including the queue-type seed rows. Idempotent; runs on every start.
func Migrate(databaseURL string) error {
	// golang-migrate's pgx/v5 driver registers the "pgx5" URL scheme, so
	// both common connection-string forms need their scheme swapped.
	rest := strings.TrimPrefix(strings.TrimPrefix(databaseURL, "postgresql://"), "postgres://")

	m, err := migrate.New(migrationsPath, "pgx5://"+rest)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}
