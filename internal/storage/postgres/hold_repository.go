package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nourabuelenin/flash-sale/internal/domain"
)

type HoldRepository struct {
	pool *pgxpool.Pool
}

func NewHoldRepository(pool *pgxpool.Pool) *HoldRepository {
	return &HoldRepository{pool: pool}
}

func (r *HoldRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

// GetProductForUpdate locks the product row for the remainder of the
// transaction, so the read-check-write on stock is serialized.
func (r *HoldRepository) GetProductForUpdate(ctx context.Context, productID string) (domain.Product, error) {
	const query = `
SELECT id, name, sku, description, price, stock
FROM products
WHERE id = $1
FOR UPDATE`

	var p domain.Product
	err := r.queryRow(ctx, query, productID).
		Scan(&p.ID, &p.Name, &p.SKU, &p.Description, &p.Price, &p.Stock)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Product{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// AdjustStock moves quantity between available and held. The stock
// check constraint rejects any drift below zero.
func (r *HoldRepository) AdjustStock(ctx context.Context, productID string, delta int) error {
	const stmt = `UPDATE products SET stock = stock + $2 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, productID, delta)
	if err != nil {
		return fmt.Errorf("adjust stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (r *HoldRepository) CreateHold(ctx context.Context, hold domain.Hold) error {
	const stmt = `
INSERT INTO holds (id, product_id, quantity, token, status, expires_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.exec(ctx, stmt,
		hold.ID,
		hold.ProductID,
		hold.Quantity,
		hold.Token,
		hold.Status,
		hold.ExpiresAt,
		hold.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrProductNotFound
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create hold: %w", err)
	}
	return nil
}

func (r *HoldRepository) GetHoldByTokenForUpdate(ctx context.Context, token string) (domain.Hold, error) {
	const query = `
SELECT id, product_id, quantity, token, status, expires_at, released_at, converted_at, created_at
FROM holds
WHERE token = $1
FOR UPDATE`

	return r.scanHold(r.queryRow(ctx, query, token))
}

func (r *HoldRepository) GetHoldForUpdate(ctx context.Context, holdID string) (domain.Hold, error) {
	const query = `
SELECT id, product_id, quantity, token, status, expires_at, released_at, converted_at, created_at
FROM holds
WHERE id = $1
FOR UPDATE`

	return r.scanHold(r.queryRow(ctx, query, holdID))
}

// ListExpiredHoldIDs scans sweep candidates without taking any locks;
// each candidate is re-locked and re-checked in its own transaction.
func (r *HoldRepository) ListExpiredHoldIDs(ctx context.Context, now time.Time) ([]string, error) {
	const query = `
SELECT id
FROM holds
WHERE status = 'active' AND expires_at < $1
ORDER BY expires_at ASC`

	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("list expired holds: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan expired hold: %w", err)
		}
		ids = append(ids, id)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate expired holds: %w", rows.Err())
	}
	return ids, nil
}

// MarkHoldReleased transitions an active hold to released. The status
// guard keeps released and converted mutually exclusive even if a
// caller skipped the FOR UPDATE read.
func (r *HoldRepository) MarkHoldReleased(ctx context.Context, holdID string, at time.Time) error {
	const stmt = `
UPDATE holds
SET status = 'released', released_at = $2
WHERE id = $1 AND status = 'active'`

	tag, err := r.exec(ctx, stmt, holdID, at)
	if err != nil {
		return fmt.Errorf("mark hold released: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrHoldAlreadyProcessed
	}
	return nil
}

func (r *HoldRepository) scanHold(row pgx.Row) (domain.Hold, error) {
	var h domain.Hold
	var status string
	err := row.Scan(&h.ID, &h.ProductID, &h.Quantity, &h.Token, &status,
		&h.ExpiresAt, &h.ReleasedAt, &h.ConvertedAt, &h.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Hold{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Hold{}, domain.ErrHoldNotFound
		}
		return domain.Hold{}, fmt.Errorf("get hold: %w", err)
	}
	h.Status = domain.HoldStatus(status)
	return h, nil
}

func (r *HoldRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *HoldRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
