package ez

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"greenhome/internal/core/apperr"
	mdw "greenhome/internal/transport/http/middleware"
)

func init() { gin.SetMode(gin.TestMode) }

func serve(r http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var m map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &m)
	return w, m
}

type echoIn struct {
	Name string `json:"name" binding:"required"`
}

func newEngine(opts Options) (*gin.Engine, EZ) {
	r := gin.New()
	return r, New(r.Group("/api"), opts)
}

func TestRegisterActionBindsAndWraps(t *testing.T) {
	r, e := newEngine(Options{})
	RegisterAction(e, Action[echoIn, gin.H]{
		Method: http.MethodPost,
		Path:   "/echo",
		Binder: BindJSON,
		Handler: func(_ *gin.Context, in *echoIn) (gin.H, error) {
			return gin.H{"message": "hi " + in.Name}, nil
		},
	})
	GET(e, "/list", false, func(*gin.Context) ([]int, error) { return []int{1, 2}, nil })

	w, body := serve(r, http.MethodPost, "/api/echo", `{"name":"ann"}`)
	if w.Code != http.StatusOK || body["success"] != true || body["message"] != "hi ann" {
		t.Fatalf("status=%d body=%v", w.Code, body)
	}
	w, body = serve(r, http.MethodPost, "/api/echo", `{"nope":1}`)
	if w.Code != http.StatusBadRequest || body["message"] != msgBadBody {
		t.Fatalf("status=%d body=%v", w.Code, body)
	}
	_, body = serve(r, http.MethodGet, "/api/list", "")
	if data, ok := body["data"].([]any); !ok || len(data) != 2 {
		t.Fatalf("body=%v", body)
	}
}

func TestFailMapsKinds(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		expose bool
		status int
		msg    string
	}{
		{"not found", apperr.NotFound("Review not found"), false, http.StatusNotFound, "Review not found"},
		{"conflict", apperr.Conflict("User already exists"), false, http.StatusConflict, "User already exists"},
		{"last admin", apperr.LastAdmin("Cannot revoke the last admin"), false, http.StatusBadRequest, "Cannot revoke the last admin"},
		{"internal hidden", apperr.Internal("Failed to access houses", errors.New("socket closed")), false, http.StatusInternalServerError, "Failed to access houses"},
		{"internal exposed", apperr.Internal("Failed to access houses", errors.New("socket closed")), true, http.StatusInternalServerError, "Failed to access houses: socket closed"},
		{"plain error", errors.New("boom"), false, http.StatusInternalServerError, "Internal Server Error"},
		{"body too large", &http.MaxBytesError{Limit: 1}, false, http.StatusRequestEntityTooLarge, "Request body too large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, e := newEngine(Options{ExposeInternal: tt.expose})
			GET(e, "/x", false, func(*gin.Context) (gin.H, error) { return nil, tt.err })
			w, body := serve(r, http.MethodGet, "/api/x", "")
			if w.Code != tt.status || body["message"] != tt.msg || body["success"] != false {
				t.Fatalf("status=%d body=%v", w.Code, body)
			}
		})
	}
}

func TestAuthChain(t *testing.T) {
	guard := func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Unauthorized"})
			return
		}
		c.Next()
	}
	r, e := newEngine(Options{Auth: guard})
	GET(e, "/open", false, func(*gin.Context) (gin.H, error) { return gin.H{}, nil })
	GET(e, "/closed", true, func(*gin.Context) (gin.H, error) { return gin.H{}, nil })

	if w, _ := serve(r, http.MethodGet, "/api/open", ""); w.Code != http.StatusOK {
		t.Fatalf("open = %d", w.Code)
	}
	if w, _ := serve(r, http.MethodGet, "/api/closed", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("closed = %d", w.Code)
	}
}

func TestOversizedJSONIs413(t *testing.T) {
	r := gin.New()
	r.Use(mdw.MaxBodyBytes(16))
	e := New(r.Group("/api"), Options{})
	RegisterAction(e, Action[map[string]any, gin.H]{
		Method:  http.MethodPost,
		Path:    "/big",
		Binder:  BindJSON,
		Handler: func(*gin.Context, *map[string]any) (gin.H, error) { return gin.H{}, nil },
	})
	w, _ := serve(r, http.MethodPost, "/api/big", `{"a":"`+strings.Repeat("x", 64)+`"}`)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", w.Code)
	}
}

func TestPOSTFILES(t *testing.T) {
	r, e := newEngine(Options{})
	POSTFILES(e, "/upload", "images", false, func(_ *gin.Context, files []*multipart.FileHeader) (gin.H, error) {
		return gin.H{"count": len(files)}, nil
	})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range []string{"a.png", "b.png"} {
		fw, _ := mw.CreateFormFile("images", name)
		_, _ = fw.Write([]byte("data"))
	}
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if w.Code != http.StatusOK || body["count"] != float64(2) {
		t.Fatalf("status=%d body=%v", w.Code, body)
	}

	w, body = serve(r, http.MethodPost, "/api/upload", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("non-multipart = %d %v", w.Code, body)
	}
}

func TestStoreDeadlineIs504(t *testing.T) {
	r := gin.New()
	r.Use(mdw.Timeout(20 * time.Millisecond))
	e := New(r.Group("/api"), Options{ExposeInternal: true})
	GET(e, "/slow", false, func(c *gin.Context) (gin.H, error) {
		<-c.Request.Context().Done()
		return nil, apperr.Internal("Failed to access bookings", c.Request.Context().Err())
	})

	w, body := serve(r, http.MethodGet, "/api/slow", "")
	if w.Code != http.StatusGatewayTimeout || body["message"] != "Request timeout" {
		t.Fatalf("status=%d body=%v", w.Code, body)
	}
}

func TestWrappedDeadlineIs504(t *testing.T) {
	r, e := newEngine(Options{})
	GET(e, "/x", false, func(*gin.Context) (gin.H, error) {
		return nil, apperr.Internal("Failed to access reviews", context.DeadlineExceeded)
	})
	if w, _ := serve(r, http.MethodGet, "/api/x", ""); w.Code != http.StatusGatewayTimeout {
		t.Fatalf("status=%d", w.Code)
	}
}
