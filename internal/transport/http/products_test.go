package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nourabuelenin/flash-sale/internal/domain"
)

type stubProductViewer struct {
	product domain.Product
	err     error
	got     string
}

func (s *stubProductViewer) GetProduct(_ context.Context, productID string) (domain.Product, error) {
	s.got = productID
	return s.product, s.err
}

func TestHandleGetProduct(t *testing.T) {
	t.Parallel()

	t.Run("returns the product view", func(t *testing.T) {
		stub := &stubProductViewer{product: domain.Product{
			ID: "prod-1", Name: "PS5", Price: 699.99, Stock: 7,
		}}
		handler := HandleGetProduct(stub)

		req := httptest.NewRequest(http.MethodGet, "/products/prod-1", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
		if stub.got != "prod-1" {
			t.Fatalf("expected product id prod-1, got %q", stub.got)
		}

		var resp productResponse
		if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Name != "PS5" || resp.Price != 699.99 || resp.AvailableStock != 7 {
			t.Fatalf("unexpected response: %+v", resp)
		}
	})

	t.Run("missing id segment is not found", func(t *testing.T) {
		handler := HandleGetProduct(&stubProductViewer{})

		req := httptest.NewRequest(http.MethodGet, "/products/", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rr.Code)
		}
	})

	t.Run("unknown product is not found", func(t *testing.T) {
		handler := HandleGetProduct(&stubProductViewer{err: domain.ErrProductNotFound})

		req := httptest.NewRequest(http.MethodGet, "/products/missing", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rr.Code)
		}
	})

	t.Run("malformed id is a bad request", func(t *testing.T) {
		handler := HandleGetProduct(&stubProductViewer{err: domain.ErrInvalidID})

		req := httptest.NewRequest(http.MethodGet, "/products/not-a-uuid", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rr.Code)
		}
	})

	t.Run("rejects wrong method", func(t *testing.T) {
		handler := HandleGetProduct(&stubProductViewer{})

		req := httptest.NewRequest(http.MethodPost, "/products/prod-1", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected 405, got %d", rr.Code)
		}
	})
}
