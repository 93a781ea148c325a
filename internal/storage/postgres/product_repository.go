package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nourabuelenin/flash-sale/internal/domain"
)

// ProductRepository serves the read-only display path; all stock
// mutations go through HoldRepository.
type ProductRepository struct {
	pool *pgxpool.Pool
}

func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

func (r *ProductRepository) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	const query = `SELECT id, name, sku, description, price, stock FROM products WHERE id = $1`

	var p domain.Product
	err := r.pool.QueryRow(ctx, query, productID).
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
