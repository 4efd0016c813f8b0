package data

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/target/compliance-gate/internal/migrate"
)

// RunMigrations applies the embedded schema through a database/sql bridge over the pool.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer func() {
		if err := db.Close(); err != nil {
			slog.Default().WarnContext(ctx, "close migration db handle", "error", err)
		}
	}()
	applied, err := migrate.Run(ctx, db)
	if err != nil {
		return err
	}
	if len(applied) > 0 {
		slog.Default().InfoContext(ctx, "migrations applied", "versions", applied)
	}
	return nil
}

// MigrationStatus lists embedded migrations and whether each has been applied.
func MigrationStatus(ctx context.Context, pool *pgxpool.Pool) ([]migrate.Status, error) {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()
	return migrate.List(ctx, db)
}
