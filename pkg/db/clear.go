package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

const clearLogPrefix = "db:clear"

// ClearDirectory truncates the agents table. Schema is preserved; only data
// is removed.
func ClearDirectory(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info(fmt.Sprintf("%s - Clearing directory tables", clearLogPrefix))

	if _, err := pool.Exec(ctx, `TRUNCATE TABLE agents RESTART IDENTITY CASCADE`); err != nil {
		return fmt.Errorf("%s - truncate failed: %w", clearLogPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Directory cleared", clearLogPrefix))
	return nil
}
