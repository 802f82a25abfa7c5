package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const clearLogPrefix = "db:clear"

// ClearInvocations removes audit rows. A zero before removes every row and
// keeps the schema; otherwise only rows started before it are removed.
func ClearInvocations(ctx context.Context, pool *pgxpool.Pool, before time.Time) (int64, error) {
	if before.IsZero() {
		slog.Info(fmt.Sprintf("%s - Clearing %s", clearLogPrefix, AuditTable))
		if _, err := pool.Exec(ctx, `TRUNCATE TABLE `+AuditTable); err != nil {
			return 0, fmt.Errorf("%s - truncate failed: %w", clearLogPrefix, err)
		}
		return -1, nil
	}

	slog.Info(fmt.Sprintf("%s - Clearing %s before %s", clearLogPrefix, AuditTable, before.UTC().Format(time.RFC3339)))
	tag, err := pool.Exec(ctx, `DELETE FROM `+AuditTable+` WHERE started < $1`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("%s - delete failed: %w", clearLogPrefix, err)
	}
	return tag.RowsAffected(), nil
}
