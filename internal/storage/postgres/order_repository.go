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

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func (r *OrderRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *OrderRepository) GetHoldForUpdate(ctx context.Context, holdID string) (domain.Hold, error) {
	const query = `
SELECT id, product_id, quantity, token, status, expires_at, released_at, converted_at, created_at
FROM holds
WHERE id = $1
FOR UPDATE`

	var h domain.Hold
	var status string
	err := r.queryRow(ctx, query, holdID).
		Scan(&h.ID, &h.ProductID, &h.Quantity, &h.Token, &status,
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

// GetProduct reads without locking; conversion prices from the current
// product row, and the hold row lock already serializes conversion.
func (r *OrderRepository) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	const query = `SELECT id, name, sku, description, price, stock FROM products WHERE id = $1`

	var p domain.Product
	err := r.queryRow(ctx, query, productID).
		Scan(&p.ID, &p.Name, &p.SKU, &p.Description, &p.Price, &p.Stock)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// MarkHoldConverted transitions an active hold to converted; the
// status guard enforces at-most-once conversion.
func (r *OrderRepository) MarkHoldConverted(ctx context.Context, holdID string, at time.Time) error {
	const stmt = `
UPDATE holds
SET status = 'converted', converted_at = $2
WHERE id = $1 AND status = 'active'`

	tag, err := r.exec(ctx, stmt, holdID, at)
	if err != nil {
		return fmt.Errorf("mark hold converted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrHoldNotActive
	}
	return nil
}

func (r *OrderRepository) CreateOrder(ctx context.Context, order domain.Order) error {
	const stmt = `
INSERT INTO orders (id, hold_id, status, total_price, transaction_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.exec(ctx, stmt,
		order.ID,
		order.HoldID,
		order.Status,
		order.TotalPrice,
		order.TransactionID,
		order.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrHoldNotActive
		}
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (r *OrderRepository) GetOrderForUpdate(ctx context.Context, orderID string) (domain.Order, error) {
	const query = `
SELECT id, hold_id, status, total_price, transaction_id, created_at
FROM orders
WHERE id = $1
FOR UPDATE`

	var o domain.Order
	var status string
	err := r.queryRow(ctx, query, orderID).
		Scan(&o.ID, &o.HoldID, &status, &o.TotalPrice, &o.TransactionID, &o.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Order{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("get order: %w", err)
	}
	o.Status = domain.OrderStatus(status)
	return o, nil
}

func (r *OrderRepository) UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus, transactionID *string) error {
	const stmt = `
UPDATE orders
SET status = $2, transaction_id = COALESCE($3, transaction_id)
WHERE id = $1`

	tag, err := r.exec(ctx, stmt, orderID, status, transactionID)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

// GetHoldToken resolves the hold token for compensating release when a
// payment fails.
func (r *OrderRepository) GetHoldToken(ctx context.Context, holdID string) (string, error) {
	const query = `SELECT token FROM holds WHERE id = $1`

	var token string
	err := r.queryRow(ctx, query, holdID).Scan(&token)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", domain.ErrHoldNotFound
		}
		return "", fmt.Errorf("get hold token: %w", err)
	}
	return token, nil
}

func (r *OrderRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *OrderRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
