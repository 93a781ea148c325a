package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nourabuelenin/flash-sale/internal/clock"
	"github.com/nourabuelenin/flash-sale/internal/domain"
)

type OrderRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetHoldForUpdate(ctx context.Context, holdID string) (domain.Hold, error)
	GetProduct(ctx context.Context, productID string) (domain.Product, error)
	MarkHoldConverted(ctx context.Context, holdID string, at time.Time) error
	CreateOrder(ctx context.Context, order domain.Order) error
	GetOrderForUpdate(ctx context.Context, orderID string) (domain.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus, transactionID *string) error
	GetHoldToken(ctx context.Context, holdID string) (string, error)
}

// HoldReleaser is the slice of the hold manager the order lifecycle
// needs for compensating releases.
type HoldReleaser interface {
	ReleaseHold(ctx context.Context, token string) error
}

type OrderService struct {
	repo   OrderRepository
	holds  HoldReleaser
	clock  clock.Clock
	logger zerolog.Logger
}

func NewOrderService(repo OrderRepository, holds HoldReleaser, clk clock.Clock, logger zerolog.Logger) *OrderService {
	return &OrderService{
		repo:   repo,
		holds:  holds,
		clock:  clk,
		logger: logger,
	}
}

type ConvertHoldInput struct {
	HoldID string
	Token  string
}

// ConvertHold turns a valid hold into a pending order. The caller must
// present the hold's token; possession of the token is the
// authorization. Total price is computed from the product's price at
// conversion time, not at hold creation — the price may move between
// the two, and the current price wins.
func (s *OrderService) ConvertHold(ctx context.Context, in ConvertHoldInput) (domain.Order, error) {
	now := s.clock.Now()
	var result domain.Order

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		hold, err := s.repo.GetHoldForUpdate(txCtx, in.HoldID)
		if err != nil {
			return err
		}
		if hold.Token != in.Token {
			return domain.ErrTokenMismatch
		}
		if !hold.Active(now) {
			return domain.ErrHoldNotActive
		}

		product, err := s.repo.GetProduct(txCtx, hold.ProductID)
		if err != nil {
			return err
		}

		if err := s.repo.MarkHoldConverted(txCtx, hold.ID, now); err != nil {
			return err
		}

		order := domain.Order{
			ID:         uuid.NewString(),
			HoldID:     hold.ID,
			Status:     domain.OrderStatusPending,
			TotalPrice: float64(hold.Quantity) * product.Price,
			CreatedAt:  now,
		}
		if err := s.repo.CreateOrder(txCtx, order); err != nil {
			return err
		}

		result = order
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	return result, nil
}

type FinalizeInput struct {
	OrderID       string
	Succeeded     bool
	TransactionID string
}

// Finalize applies a payment outcome. Success completes the order and
// stores the gateway transaction id. Failure marks it failed and
// releases the backing hold best-effort: if the sweeper got there
// first the release is rejected, which is fine — the stock is already
// back.
func (s *OrderService) Finalize(ctx context.Context, in FinalizeInput) (domain.Order, error) {
	var result domain.Order

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		order, err := s.repo.GetOrderForUpdate(txCtx, in.OrderID)
		if err != nil {
			return err
		}

		if in.Succeeded {
			order.Status = domain.OrderStatusCompleted
			txnID := in.TransactionID
			order.TransactionID = &txnID
			if err := s.repo.UpdateOrderStatus(txCtx, order.ID, order.Status, order.TransactionID); err != nil {
				return err
			}
			result = order
			return nil
		}

		order.Status = domain.OrderStatusFailed
		if err := s.repo.UpdateOrderStatus(txCtx, order.ID, order.Status, nil); err != nil {
			return err
		}

		token, err := s.repo.GetHoldToken(txCtx, order.HoldID)
		if err != nil {
			s.logger.Warn().Err(err).Str("order_id", order.ID).Msg("finalize: hold token lookup failed")
		} else if err := s.holds.ReleaseHold(txCtx, token); err != nil {
			s.logger.Warn().Err(err).Str("order_id", order.ID).Msg("finalize: compensating release failed")
		} else {
			s.logger.Info().Str("order_id", order.ID).Msg("finalize: released hold after payment failure")
		}

		result = order
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	return result, nil
}
