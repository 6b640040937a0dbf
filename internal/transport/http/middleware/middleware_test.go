package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"greenhome/internal/core/auth"
	"greenhome/internal/core/metrics"
)

func init() { gin.SetMode(gin.TestMode) }

type stubVerifier struct{}

func (stubVerifier) Verify(_ context.Context, token string) (auth.Identity, error) {
	if token == "good" {
		return auth.Identity{Email: "a@x.io", Subject: "uid"}, nil
	}
	return auth.Identity{}, auth.ErrInvalidToken
}

func do(t *testing.T, r http.Handler, header string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestRequireIdentity(t *testing.T) {
	r := gin.New()
	r.GET("/x", RequireIdentity(stubVerifier{}, zap.NewNop()), func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if !ok {
			t.Error("identity missing")
		}
		c.String(http.StatusOK, id.Email)
	})

	tests := []struct {
		name   string
		header string
		status int
		msg    string
	}{
		{"no header", "", http.StatusUnauthorized, "Unauthorized"},
		{"not bearer", "Basic abc", http.StatusUnauthorized, "Unauthorized"},
		{"bad token", "Bearer nope", http.StatusForbidden, "Forbidden"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := do(t, r, tt.header)
			if w.Code != tt.status || body["message"] != tt.msg || body["success"] != false {
				t.Fatalf("status=%d body=%v", w.Code, body)
			}
		})
	}

	w, _ := do(t, r, "Bearer good")
	if w.Code != http.StatusOK || w.Body.String() != "a@x.io" {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(0.0001, 1))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	if w, _ := do(t, r, ""); w.Code != http.StatusNoContent {
		t.Fatalf("first = %d", w.Code)
	}
	if w, body := do(t, r, ""); w.Code != http.StatusTooManyRequests || body["message"] != "Too many requests" {
		t.Fatalf("second = %d %v", w.Code, body)
	}
}

func TestRateLimitPerIP(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitPerIP(0.0001, 1))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	if send("10.0.0.1") != http.StatusNoContent || send("10.0.0.1") != http.StatusTooManyRequests {
		t.Fatal("per-ip bucket not enforced")
	}
	if send("10.0.0.2") != http.StatusNoContent {
		t.Fatal("other ip throttled")
	}
}

func TestConcurrencyLimit(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	r := gin.New()
	r.Use(ConcurrencyLimit(1))
	r.GET("/x", func(c *gin.Context) {
		if c.Query("hold") == "1" {
			close(entered)
			<-release
		}
		c.Status(http.StatusNoContent)
	})

	done := make(chan int)
	go func() {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x?hold=1", nil))
		done <- w.Code
	}()
	<-entered
	if w, _ := do(t, r, ""); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("busy = %d, want 503", w.Code)
	}
	close(release)
	if code := <-done; code != http.StatusNoContent {
		t.Fatalf("held = %d", code)
	}
}

func TestTimeout(t *testing.T) {
	r := gin.New()
	r.Use(Timeout(10 * time.Millisecond))
	r.GET("/x", func(c *gin.Context) {
		<-c.Request.Context().Done()
		if !errors.Is(c.Request.Context().Err(), context.DeadlineExceeded) {
			t.Error("context not cancelled by deadline")
		}
	})
	if w, body := do(t, r, ""); w.Code != http.StatusGatewayTimeout || body["message"] != "Request timeout" {
		t.Fatalf("status=%d body=%v", w.Code, body)
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(KeyRID)) })

	w, _ := do(t, r, "")
	rid := w.Header().Get(HeaderRequestID)
	if rid == "" || w.Body.String() != rid {
		t.Fatalf("rid header=%q body=%q", rid, w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(HeaderRequestID, "abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get(HeaderRequestID) != "abc" {
		t.Fatal("incoming request id not propagated")
	}
}

func TestMetricsLabelsByRouteTemplate(t *testing.T) {
	r := gin.New()
	r.Use(Metrics())
	r.GET("/mw/items/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for _, p := range []string{"/mw/items/1", "/mw/items/2", "/mw/nope"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}
	w := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	out := w.Body.String()
	if !strings.Contains(out, `greenhome_http_requests_total{method="GET",path="/mw/items/:id",status="204"} 2`) {
		t.Fatalf("route series missing:\n%s", out)
	}
	if strings.Contains(out, "/mw/nope") {
		t.Fatal("raw path leaked into labels")
	}
}
