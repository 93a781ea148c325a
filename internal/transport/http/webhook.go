package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/nourabuelenin/flash-sale/internal/app"
	"github.com/nourabuelenin/flash-sale/internal/domain"
)

const idempotencyHeader = "Idempotency-Key"

// CallbackProcessor is the minimal interface needed to process a
// payment callback.
type CallbackProcessor interface {
	Process(ctx context.Context, in app.ProcessInput) (app.ProcessResult, error)
}

// HandleWebhook returns an HTTP handler for payment-gateway callbacks.
// The recorded response is written verbatim, so replays of a key are
// byte-identical.
func HandleWebhook(svc CallbackProcessor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req webhookRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		key := r.Header.Get(idempotencyHeader)
		if key == "" {
			key = req.IdempotencyKey
		}
		if key == "" {
			writeError(w, http.StatusBadRequest, codeIdempotencyRequired, domain.ErrIdempotencyKeyRequired.Error())
			return
		}

		res, err := svc.Process(r.Context(), app.ProcessInput{
			Key:           key,
			RequestPath:   r.URL.Path,
			OrderID:       req.OrderID,
			Status:        req.Status,
			TransactionID: req.TransactionID,
		})
		if err != nil {
			switch err {
			case domain.ErrIdempotencyKeyRequired:
				writeError(w, http.StatusBadRequest, codeIdempotencyRequired, err.Error())
			case domain.ErrInvalidID:
				writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(res.Code)
		_, _ = w.Write(res.Body)
	}
}

type webhookRequest struct {
	IdempotencyKey string `json:"idempotency_key"`
	OrderID        string `json:"order_id"`
	Status         string `json:"status"`
	TransactionID  string `json:"txn_id"`
}
