package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nourabuelenin/flash-sale/internal/clock"
	"github.com/nourabuelenin/flash-sale/internal/domain"
)

type HoldRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetProductForUpdate(ctx context.Context, productID string) (domain.Product, error)
	AdjustStock(ctx context.Context, productID string, delta int) error
	CreateHold(ctx context.Context, hold domain.Hold) error
	GetHoldByTokenForUpdate(ctx context.Context, token string) (domain.Hold, error)
	GetHoldForUpdate(ctx context.Context, holdID string) (domain.Hold, error)
	ListExpiredHoldIDs(ctx context.Context, now time.Time) ([]string, error)
	MarkHoldReleased(ctx context.Context, holdID string, at time.Time) error
}

// CacheInvalidator drops any cached snapshot of a product after its
// stock moves. Fire and forget; failures are the cache's problem.
type CacheInvalidator interface {
	InvalidateProduct(ctx context.Context, productID string)
}

type HoldService struct {
	repo    HoldRepository
	cache   CacheInvalidator
	clock   clock.Clock
	logger  zerolog.Logger
	holdTTL time.Duration
}

const defaultHoldTTL = 2 * time.Minute

func NewHoldService(repo HoldRepository, cache CacheInvalidator, clk clock.Clock, logger zerolog.Logger, opts ...HoldServiceOption) *HoldService {
	svc := &HoldService{
		repo:    repo,
		cache:   cache,
		clock:   clk,
		logger:  logger,
		holdTTL: defaultHoldTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type HoldServiceOption func(*HoldService)

// WithHoldTTL overrides the default TTL for new holds.
func WithHoldTTL(d time.Duration) HoldServiceOption {
	return func(s *HoldService) {
		if d > 0 {
			s.holdTTL = d
		}
	}
}

type CreateHoldInput struct {
	ProductID string
	Quantity  int
}

// CreateHold reserves quantity against the product's stock. The
// product row stays locked for the whole read-check-write, so two
// callers racing for the last unit serialize on the row lock and the
// loser sees the decremented stock.
func (s *HoldService) CreateHold(ctx context.Context, in CreateHoldInput) (domain.Hold, error) {
	if in.Quantity <= 0 {
		return domain.Hold{}, domain.ErrInvalidQuantity
	}

	now := s.clock.Now()
	var result domain.Hold

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		product, err := s.repo.GetProductForUpdate(txCtx, in.ProductID)
		if err != nil {
			return err
		}
		if product.Stock < in.Quantity {
			return domain.ErrInsufficientStock
		}

		if err := s.repo.AdjustStock(txCtx, in.ProductID, -in.Quantity); err != nil {
			return err
		}

		hold := domain.Hold{
			ID:        uuid.NewString(),
			ProductID: in.ProductID,
			Quantity:  in.Quantity,
			Token:     newHoldToken(),
			Status:    domain.HoldStatusActive,
			ExpiresAt: now.Add(s.holdTTL),
			CreatedAt: now,
		}
		if err := s.repo.CreateHold(txCtx, hold); err != nil {
			return err
		}

		result = hold
		return nil
	})
	if err != nil {
		return domain.Hold{}, err
	}

	s.cache.InvalidateProduct(ctx, in.ProductID)
	return result, nil
}

// ReleaseHold returns a hold's quantity to stock. Releasing a hold
// that was already released or converted fails with
// ErrHoldAlreadyProcessed rather than being silently ignored.
func (s *HoldService) ReleaseHold(ctx context.Context, token string) error {
	now := s.clock.Now()
	var productID string

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		hold, err := s.repo.GetHoldByTokenForUpdate(txCtx, token)
		if err != nil {
			return err
		}
		if hold.Status != domain.HoldStatusActive {
			return domain.ErrHoldAlreadyProcessed
		}

		if err := s.repo.AdjustStock(txCtx, hold.ProductID, hold.Quantity); err != nil {
			return err
		}
		if err := s.repo.MarkHoldReleased(txCtx, hold.ID, now); err != nil {
			return err
		}

		productID = hold.ProductID
		return nil
	})
	if err != nil {
		return err
	}

	// When a caller's transaction encloses this one (the compensating
	// release during payment failure), the invalidation must wait for
	// that commit.
	invalidate := func(ctx context.Context) { s.cache.InvalidateProduct(ctx, productID) }
	if !deferAfterCommit(ctx, invalidate) {
		invalidate(ctx)
	}
	return nil
}

// ReleaseExpiredHolds is the sweep: it releases every hold whose TTL
// elapsed without conversion and returns how many it transitioned.
// The candidate scan takes no locks; each hold is re-locked and
// re-checked in its own transaction, so a conversion or manual release
// that lands between scan and sweep wins cleanly. One hold's failure
// does not abort the batch. The caller must not run sweeps
// concurrently.
func (s *HoldService) ReleaseExpiredHolds(ctx context.Context) (int, error) {
	now := s.clock.Now()

	ids, err := s.repo.ListExpiredHoldIDs(ctx, now)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, id := range ids {
		if err := s.releaseExpired(ctx, id, now); err != nil {
			if err == domain.ErrHoldAlreadyProcessed {
				continue
			}
			s.logger.Warn().Err(err).Str("hold_id", id).Msg("sweep: release failed")
			continue
		}
		released++
	}
	return released, nil
}

func (s *HoldService) releaseExpired(ctx context.Context, holdID string, now time.Time) error {
	var productID string

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		hold, err := s.repo.GetHoldForUpdate(txCtx, holdID)
		if err != nil {
			return err
		}
		// Re-check under the lock: the hold may have been released or
		// converted since the candidate scan.
		if hold.Status != domain.HoldStatusActive {
			return domain.ErrHoldAlreadyProcessed
		}

		if err := s.repo.AdjustStock(txCtx, hold.ProductID, hold.Quantity); err != nil {
			return err
		}
		if err := s.repo.MarkHoldReleased(txCtx, hold.ID, now); err != nil {
			return err
		}

		productID = hold.ProductID
		return nil
	})
	if err != nil {
		return err
	}

	s.cache.InvalidateProduct(ctx, productID)
	return nil
}
