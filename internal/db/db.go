// Package db opens the configured store and brings its schema up to date.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/config"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/migrations"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/migrations/postgres"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/storage"
)

// Open connects to the database named by cfg and applies pending
// migrations. applied lists the migrations run by this call.
func Open(ctx context.Context, cfg config.Database) (store storage.Store, applied []string, err error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return openPostgres(ctx, cfg.URL)
	case config.DriverSQLite:
		return openSQLite(ctx, cfg.URL)
	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func openPostgres(ctx context.Context, url string) (storage.Store, []string, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, nil, fmt.Errorf("connect: %w", err)
	}

	applied, err := postgres.Apply(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}

	return storage.NewPostgresStore(pool), applied, nil
}

func openSQLite(ctx context.Context, dsn string) (storage.Store, []string, error) {
	sqlDB, err := storage.OpenSQLite(dsn)
	if err != nil {
		return nil, nil, err
	}

	applied, err := migrations.Apply(ctx, sqlDB)
	if err != nil {
		_ = sqlDB.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}

	return storage.NewSQLStore(sqlDB), applied, nil
}
