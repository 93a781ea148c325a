package app

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/nourabuelenin/flash-sale/internal/clock"
	"github.com/nourabuelenin/flash-sale/internal/domain"
)

type IdempotencyRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	FindRecord(ctx context.Context, key string) (*domain.IdempotencyRecord, error)
	LockKey(ctx context.Context, key string) error
	InsertRecord(ctx context.Context, rec domain.IdempotencyRecord) error
}

// OrderFinalizer is the slice of the order lifecycle the callback
// processor drives.
type OrderFinalizer interface {
	Finalize(ctx context.Context, in FinalizeInput) (domain.Order, error)
}

// WebhookService processes payment-gateway callbacks at most once per
// idempotency key, recording each key's response so replays return it
// byte for byte.
type WebhookService struct {
	repo   IdempotencyRepository
	orders OrderFinalizer
	clock  clock.Clock
}

func NewWebhookService(repo IdempotencyRepository, orders OrderFinalizer, clk clock.Clock) *WebhookService {
	return &WebhookService{
		repo:   repo,
		orders: orders,
		clock:  clk,
	}
}

type ProcessInput struct {
	Key           string
	RequestPath   string
	OrderID       string
	Status        string
	TransactionID string
}

type ProcessResult struct {
	Body json.RawMessage
	Code int
}

type processedResponse struct {
	Status      string `json:"status"`
	OrderStatus string `json:"order_status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Process runs the callback's domain action at most once per key.
// Replays and lock losers get the recorded winner's response. The key
// lock spans the domain action and the record insert, so a concurrent
// caller with the same key blocks until the record exists.
func (s *WebhookService) Process(ctx context.Context, in ProcessInput) (ProcessResult, error) {
	if in.Key == "" {
		return ProcessResult{}, domain.ErrIdempotencyKeyRequired
	}

	// Fast path: a recorded key never changes, so no lock is needed.
	if rec, err := s.repo.FindRecord(ctx, in.Key); err != nil {
		return ProcessResult{}, err
	} else if rec != nil {
		return ProcessResult{Body: rec.ResponseBody, Code: rec.ResponseCode}, nil
	}

	var result ProcessResult
	hookCtx, hooks := withAfterCommit(ctx)
	err := s.repo.WithTx(hookCtx, func(txCtx context.Context) error {
		if err := s.repo.LockKey(txCtx, in.Key); err != nil {
			return err
		}

		// A concurrent processor may have recorded the key between the
		// fast path and acquiring the lock.
		if rec, err := s.repo.FindRecord(txCtx, in.Key); err != nil {
			return err
		} else if rec != nil {
			result = ProcessResult{Body: rec.ResponseBody, Code: rec.ResponseCode}
			return nil
		}

		body, code, err := s.runDomainAction(txCtx, in)
		if err != nil {
			return err
		}

		rec := domain.IdempotencyRecord{
			Key:          in.Key,
			RequestPath:  in.RequestPath,
			ResponseBody: body,
			ResponseCode: code,
			CreatedAt:    s.clock.Now(),
		}
		if err := s.repo.InsertRecord(txCtx, rec); err != nil {
			return err
		}

		result = ProcessResult{Body: body, Code: code}
		return nil
	})
	if err != nil {
		return ProcessResult{}, err
	}
	hooks.run(ctx)
	return result, nil
}

// runDomainAction maps business outcomes to recordable responses. An
// unknown order is recorded as a 404 so a retry of the same key gets
// the same 404 instead of re-attempting work. Infrastructure errors
// propagate unrecorded: the transaction rolls back and the caller may
// retry the key.
func (s *WebhookService) runDomainAction(ctx context.Context, in ProcessInput) (json.RawMessage, int, error) {
	order, err := s.orders.Finalize(ctx, FinalizeInput{
		OrderID:       in.OrderID,
		Succeeded:     in.Status == "success",
		TransactionID: in.TransactionID,
	})
	if err != nil {
		if err == domain.ErrOrderNotFound {
			body, merr := json.Marshal(errorResponse{Error: "Order not found"})
			if merr != nil {
				return nil, 0, merr
			}
			return body, http.StatusNotFound, nil
		}
		return nil, 0, err
	}

	body, err := json.Marshal(processedResponse{
		Status:      "processed",
		OrderStatus: string(order.Status),
	})
	if err != nil {
		return nil, 0, err
	}
	return body, http.StatusOK, nil
}
