package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func TestNewRouterRecoversPanics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(zap.NewNop(), nil)
	r.GET("/boom", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("request id header missing")
	}
}

func TestCORSAllowedOrigin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(zap.NewNop(), []string{"https://greenhome.example"})
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://greenhome.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://greenhome.example" {
		t.Fatalf("allow origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("foreign origin status = %d", w.Code)
	}
}

func TestAddr(t *testing.T) {
	if got := Addr("0.0.0.0", 5000); got != "0.0.0.0:5000" {
		t.Fatalf("Addr = %q", got)
	}
}
