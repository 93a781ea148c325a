package app

import (
	"context"

	"github.com/nourabuelenin/flash-sale/internal/domain"
)

type ProductRepository interface {
	GetProduct(ctx context.Context, productID string) (domain.Product, error)
}

// ProductCache is the display snapshot store. A miss is (nil, nil);
// hold creation and release invalidate entries through the
// CacheInvalidator side of the same implementation.
type ProductCache interface {
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)
	SetProduct(ctx context.Context, product domain.Product)
}

// ProductService serves the read-through display path. Stock shown
// here may lag the ledger by at most one invalidation.
type ProductService struct {
	repo  ProductRepository
	cache ProductCache
}

func NewProductService(repo ProductRepository, cache ProductCache) *ProductService {
	return &ProductService{
		repo:  repo,
		cache: cache,
	}
}

func (s *ProductService) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	if cached, err := s.cache.GetProduct(ctx, productID); err == nil && cached != nil {
		return *cached, nil
	}

	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}

	s.cache.SetProduct(ctx, product)
	return product, nil
}
