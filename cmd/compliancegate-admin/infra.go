package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/target/compliance-gate/internal/bootstrap"
	"github.com/target/compliance-gate/internal/data"
)

var _ userStore = (*data.ProfileRepo)(nil)

// database bundles the pool with the profile repository built on it.
type database struct {
	Pool     *pgxpool.Pool
	Profiles *data.ProfileRepo
}

// withDatabase connects, runs f under a signal-aware timeout, and closes the pool.
func withDatabase(
	cmdCtx *commandContext,
	timeout time.Duration,
	f func(context.Context, *database) error,
) error {
	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pool, err := bootstrap.ConnectDB(ctx, bootstrap.DatabaseConfig{
		DBConfig: cmdCtx.Config.Postgres,
		Logger:   cmdCtx.Logger,
	})
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer pool.Close()

	return f(ctx, &database{Pool: pool, Profiles: data.NewProfileRepo(pool)})
}
