package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/nourabuelenin/flash-sale/internal/domain"
)

const defaultProductTTL = 60 * time.Second

// ProductCache stores product display snapshots in Redis. It backs
// both the read-through display path and the invalidation hook the
// hold manager fires after every stock mutation. Cache errors are
// logged and swallowed; the database stays authoritative.
type ProductCache struct {
	client *redis.Client
	logger zerolog.Logger
	ttl    time.Duration
}

func NewProductCache(client *redis.Client, logger zerolog.Logger) *ProductCache {
	return &ProductCache{
		client: client,
		logger: logger,
		ttl:    defaultProductTTL,
	}
}

func productKey(productID string) string {
	return "product:" + productID
}

func (c *ProductCache) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	raw, err := c.client.Get(ctx, productKey(productID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn().Err(err).Str("product_id", productID).Msg("cache: get failed")
		}
		return nil, nil
	}

	var p domain.Product
	if err := json.Unmarshal(raw, &p); err != nil {
		c.logger.Warn().Err(err).Str("product_id", productID).Msg("cache: corrupt entry")
		return nil, nil
	}
	return &p, nil
}

func (c *ProductCache) SetProduct(ctx context.Context, product domain.Product) {
	raw, err := json.Marshal(product)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, productKey(product.ID), raw, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("product_id", product.ID).Msg("cache: set failed")
	}
}

func (c *ProductCache) InvalidateProduct(ctx context.Context, productID string) {
	if err := c.client.Del(ctx, productKey(productID)).Err(); err != nil {
		c.logger.Warn().Err(err).Str("product_id", productID).Msg("cache: invalidate failed")
	}
}

// Noop satisfies the cache interfaces when Redis is not configured.
type Noop struct{}

func (Noop) GetProduct(context.Context, string) (*domain.Product, error) { return nil, nil }
func (Noop) SetProduct(context.Context, domain.Product)                  {}
func (Noop) InvalidateProduct(context.Context, string)                   {}
