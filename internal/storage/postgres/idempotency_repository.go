package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nourabuelenin/flash-sale/internal/domain"
)

type IdempotencyRepository struct {
	pool *pgxpool.Pool
}

func NewIdempotencyRepository(pool *pgxpool.Pool) *IdempotencyRepository {
	return &IdempotencyRepository{pool: pool}
}

func (r *IdempotencyRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

// FindRecord looks up a processed key. Safe to call outside a
// transaction: records are write-once, so a hit is always final.
// The body comes back exactly as inserted; replays must be
// byte-identical to the first response.
func (r *IdempotencyRepository) FindRecord(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	const query = `
SELECT key, request_path, response_body, response_code, created_at
FROM idempotency_records
WHERE key = $1`

	var rec domain.IdempotencyRecord
	var body string
	err := r.queryRow(ctx, query, key).
		Scan(&rec.Key, &rec.RequestPath, &body, &rec.ResponseCode, &rec.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find idempotency record: %w", err)
	}
	rec.ResponseBody = []byte(body)
	return &rec, nil
}

// LockKey takes a transaction-scoped exclusive lock derived from the
// key. FOR UPDATE cannot lock a row that does not exist yet, so the
// advisory lock is what serializes two first-time processors of the
// same key; it is released automatically at commit or rollback.
func (r *IdempotencyRepository) LockKey(ctx context.Context, key string) error {
	tx := txFromContext(ctx)
	if tx == nil {
		return fmt.Errorf("lock idempotency key: no transaction in context")
	}
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key); err != nil {
		return fmt.Errorf("lock idempotency key: %w", err)
	}
	return nil
}

func (r *IdempotencyRepository) InsertRecord(ctx context.Context, rec domain.IdempotencyRecord) error {
	const stmt = `
INSERT INTO idempotency_records (key, request_path, response_body, response_code, created_at)
VALUES ($1, $2, $3, $4, $5)`

	_, err := r.exec(ctx, stmt, rec.Key, rec.RequestPath, string(rec.ResponseBody), rec.ResponseCode, rec.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrIdempotencyConflict
		}
		return fmt.Errorf("insert idempotency record: %w", err)
	}
	return nil
}

func (r *IdempotencyRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *IdempotencyRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
