package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repoLogPrefix = "db:repository"

const invocationColumns = `id, kind, path, resource_id, family, resource, verb, mutating,
	status, outcome, error_code, error_message, started, duration_ms, created`

// Repository provides database access for the invocation audit log.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Ping checks connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// InsertInvocation stores one invocation. Inserting the same id twice is a no-op.
func (r *Repository) InsertInvocation(ctx context.Context, rec *InvocationRecord) error {
	slog.Debug(fmt.Sprintf("%s - InsertInvocation id=%s kind=%s", repoLogPrefix, rec.ID, rec.Kind))

	_, err := r.pool.Exec(ctx,
		`INSERT INTO gateway_invocations
		   (id, kind, path, resource_id, family, resource, verb, mutating,
		    status, outcome, error_code, error_message, started, duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 ON CONFLICT (id) DO NOTHING`,
		rec.ID, rec.Kind, rec.Path, rec.ResourceID, rec.Family, rec.Resource, rec.Verb, rec.Mutating,
		rec.Status, rec.Outcome, rec.ErrorCode, rec.ErrorMessage, rec.Started.UTC(), rec.DurationMs)
	if err != nil {
		return fmt.Errorf("%s - insert invocation: %w", repoLogPrefix, err)
	}
	return nil
}

// ListInvocations lists invocations, newest first, with optional filters.
func (r *Repository) ListInvocations(ctx context.Context, params ListInvocationsParams) ([]InvocationRecord, int, error) {
	page := params.Page
	if page < 1 {
		page = 1
	}
	limit := params.Limit
	if limit < 1 {
		limit = 20
	}
	offset := (page - 1) * limit

	query := `SELECT ` + invocationColumns + ` FROM gateway_invocations WHERE 1=1`
	countQuery := `SELECT COUNT(*)::int FROM gateway_invocations WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	for _, f := range []struct {
		column string
		value  string
	}{
		{"kind", params.Kind},
		{"family", params.Family},
		{"outcome", params.Outcome},
	} {
		if f.value == "" {
			continue
		}
		clause := fmt.Sprintf(` AND %s = $%d`, f.column, argIdx)
		query += clause
		countQuery += clause
		args = append(args, f.value)
		argIdx++
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%s - count invocations: %w", repoLogPrefix, err)
	}

	query += fmt.Sprintf(` ORDER BY started DESC LIMIT $%d OFFSET $%d`, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%s - list invocations: %w", repoLogPrefix, err)
	}
	defer rows.Close()

	var out []InvocationRecord
	for rows.Next() {
		rec, err := scanInvocation(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%s - list invocations: %w", repoLogPrefix, err)
	}
	return out, total, nil
}

// GetInvocation finds an invocation by id. It returns nil when none exists.
func (r *Repository) GetInvocation(ctx context.Context, id string) (*InvocationRecord, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+invocationColumns+` FROM gateway_invocations WHERE id = $1`, id)
	rec, err := scanInvocation(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

// CountByOutcome groups invocations by family and outcome.
func (r *Repository) CountByOutcome(ctx context.Context) ([]OutcomeCount, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT family, outcome, COUNT(*)::int
		 FROM gateway_invocations
		 GROUP BY family, outcome
		 ORDER BY family, outcome`)
	if err != nil {
		return nil, fmt.Errorf("%s - count by outcome: %w", repoLogPrefix, err)
	}
	defer rows.Close()

	var out []OutcomeCount
	for rows.Next() {
		var c OutcomeCount
		if err := rows.Scan(&c.Family, &c.Outcome, &c.Count); err != nil {
			return nil, fmt.Errorf("%s - scan outcome count: %w", repoLogPrefix, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// --- scan helpers ---

func scanInvocation(row pgx.Row) (*InvocationRecord, error) {
	var rec InvocationRecord
	err := row.Scan(
		&rec.ID, &rec.Kind, &rec.Path, &rec.ResourceID, &rec.Family, &rec.Resource, &rec.Verb, &rec.Mutating,
		&rec.Status, &rec.Outcome, &rec.ErrorCode, &rec.ErrorMessage, &rec.Started, &rec.DurationMs, &rec.Created,
	)
	if err == pgx.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%s - scan invocation: %w", repoLogPrefix, err)
	}
	return &rec, nil
}
