package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/nourabuelenin/flash-sale/internal/app"
	"github.com/nourabuelenin/flash-sale/internal/domain"
)

// HoldConverter is the minimal interface needed to convert a hold into
// an order.
type HoldConverter interface {
	ConvertHold(ctx context.Context, in app.ConvertHoldInput) (domain.Order, error)
}

// HandleCreateOrder returns an HTTP handler that converts a hold into
// a pending order. The caller must present the hold's token.
func HandleCreateOrder(svc HoldConverter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req createOrderRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.HoldID == "" || req.Token == "" {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "hold_id and token are required")
			return
		}

		order, err := svc.ConvertHold(r.Context(), app.ConvertHoldInput{
			HoldID: req.HoldID,
			Token:  req.Token,
		})
		if err != nil {
			switch err {
			case domain.ErrInvalidID:
				writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
			case domain.ErrHoldNotFound:
				writeError(w, http.StatusNotFound, codeHoldNotFound, err.Error())
			case domain.ErrTokenMismatch:
				writeError(w, http.StatusForbidden, codeForbidden, err.Error())
			case domain.ErrHoldNotActive:
				writeError(w, http.StatusConflict, codeHoldNotActive, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		resp := createOrderResponse{
			OrderID: order.ID,
			Status:  string(order.Status),
			Amount:  order.TotalPrice,
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

type createOrderRequest struct {
	HoldID string `json:"hold_id"`
	Token  string `json:"token"`
}

type createOrderResponse struct {
	OrderID string  `json:"order_id"`
	Status  string  `json:"status"`
	Amount  float64 `json:"amount"`
}
