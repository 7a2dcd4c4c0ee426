// Package database provides PostgreSQL connection management using pgx.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const connectAttempts = 5

// connectRetryDelay is a variable so tests can shorten the backoff.
var connectRetryDelay = 2 * time.Second

// NewPool creates and validates a pgxpool connection pool from a
// libpq-compatible connection URL. It retries up to connectAttempts
// times to accommodate containers starting up.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}

	// Sensible pool defaults for a small service.
	poolCfg.MaxConns = 20
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	var pool *pgxpool.Pool
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		pool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err == nil {
			pingErr := pool.Ping(ctx)
			if pingErr == nil {
				return pool, nil
			}
			pool.Close()
			err = pingErr
		}
		slog.Warn("db connect attempt failed",
			"attempt", attempt, "max_attempts", connectAttempts, "error", err)
		if attempt < connectAttempts {
			time.Sleep(connectRetryDelay)
		}
	}

	return nil, fmt.Errorf("connect to postgres: %w", err)
}
