package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_catalog/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(t *testing.T, limiter *InvalidAuthRateLimiter) *gin.Engine {
	t.Helper()
	r := gin.New()
	r.Use(CORSMiddleware([]string{"shop.example.com"}))
	r.GET("/me", NewJWTMiddleware("secret", limiter).Handle(), func(c *gin.Context) {
		c.String(http.StatusOK, UserID(c)+"|"+StoreID(c, "none"))
	})
	return r
}

func TestJWTMiddlewareSetsIdentity(t *testing.T) {
	r := newRouter(t, nil)
	token, err := utils.GenerateJWT("secret", "user-1", "store-1", time.Hour)
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK || w.Body.String() != "user-1|store-1" {
		t.Fatalf("got %d %q", w.Code, w.Body.String())
	}
}

func TestJWTMiddlewareRejectsAndThrottles(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := newRouter(t, NewInvalidAuthRateLimiter(ctx, 2, time.Minute))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer nope")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	if codes[0] != 401 || codes[1] != 401 || codes[2] != 429 {
		t.Fatalf("codes = %v, want [401 401 429]", codes)
	}
}

func TestCORSMiddleware(t *testing.T) {
	r := newRouter(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/me", nil)
	req.Header.Set("Origin", "https://shop.example.com:443")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://shop.example.com:443" {
		t.Fatalf("allow origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/me", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("foreign origin allowed: %q", got)
	}
}

func TestCanActFor(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if !CanActFor(c, "store-1") {
		t.Fatal("platform token refused")
	}
	c.Set(ContextStoreID, "store-1")
	if !CanActFor(c, "store-1") || CanActFor(c, "store-2") {
		t.Fatal("store binding not enforced")
	}
}
