package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/nourabuelenin/flash-sale/internal/domain"
)

// ProductViewer is the minimal interface needed to display a product.
type ProductViewer interface {
	GetProduct(ctx context.Context, productID string) (domain.Product, error)
}

// HandleGetProduct returns an HTTP handler for the cached product
// display endpoint.
func HandleGetProduct(svc ProductViewer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		productID, ok := parseProductPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		product, err := svc.GetProduct(r.Context(), productID)
		if err != nil {
			switch err {
			case domain.ErrInvalidID:
				writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
			case domain.ErrProductNotFound:
				writeError(w, http.StatusNotFound, codeProductNotFound, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		resp := productResponse{
			ID:             product.ID,
			Name:           product.Name,
			Price:          product.Price,
			AvailableStock: product.Stock,
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func parseProductPath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 || parts[0] != "products" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

type productResponse struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Price          float64 `json:"price"`
	AvailableStock int     `json:"available_stock"`
}
