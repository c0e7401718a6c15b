package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestErrorFrom(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{"validation", ValidationError("PRICE_BELOW_BASE", "price %s is below base", "90"), 400, "PRICE_BELOW_BASE", "price 90 is below base"},
		{"not found", NotFoundError("product", "p1"), 404, "NOT_FOUND", "product p1 not found"},
		{"conflict", ConflictError("DUPLICATE_SKU", "sku taken"), 409, "DUPLICATE_SKU", "sku taken"},
		{"scale", ScaleLimitError("TOO_MANY_COMBINATIONS", "too many"), 422, "TOO_MANY_COMBINATIONS", "too many"},
		{"partial write", PartialWriteError("product write aborted", errors.New("boom")), 500, "PARTIAL_WRITE_FAILURE", "product write aborted"},
		{"wrapped", fmt.Errorf("service: %w", NotFoundError("template", "size")), 404, "NOT_FOUND", "template size not found"},
		{"unknown", errors.New("dial tcp: refused"), 500, "INTERNAL_ERROR", "Failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Set("request_id", "req-1")

			status, code := ErrorFrom(c, tt.err, "Failed")
			if status != tt.status || code != tt.code || w.Code != tt.status {
				t.Fatalf("got %d/%s (written %d), want %d/%s", status, code, w.Code, tt.status, tt.code)
			}
			var resp Response
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Success || resp.Error == nil || resp.Error.Code != tt.code || resp.Message != tt.message {
				t.Fatalf("body = %+v", resp)
			}
			if resp.Meta.RequestID != "req-1" {
				t.Fatalf("requestId = %q", resp.Meta.RequestID)
			}
		})
	}
}

func TestSuccessWithPaginationDefaults(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	SuccessWithPagination(c, http.StatusOK, "ok", []string{}, 0, 0, 41)

	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	p := resp.Meta.Pagination
	if p == nil || p.Page != 1 || p.Limit != 20 || p.TotalPages != 3 {
		t.Fatalf("pagination = %+v", p)
	}
}
