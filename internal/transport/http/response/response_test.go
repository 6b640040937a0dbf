package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() { gin.SetMode(gin.TestMode) }

func run(t *testing.T, fn func(c *gin.Context)) (int, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	fn(c)
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v (%s)", err, w.Body.String())
	}
	return w.Code, body
}

func TestOKMergesPayload(t *testing.T) {
	code, body := run(t, func(c *gin.Context) {
		OK(c, http.StatusOK, gin.H{"data": []int{1}, "success": false})
	})
	if code != http.StatusOK || body["success"] != true || body["data"] == nil {
		t.Fatalf("code=%d body=%v", code, body)
	}
}

func TestFailDefaultsMessage(t *testing.T) {
	code, body := run(t, func(c *gin.Context) { Fail(c, http.StatusTooManyRequests, "") })
	if code != http.StatusTooManyRequests || body["success"] != false || body["message"] != "Too many requests" {
		t.Fatalf("code=%d body=%v", code, body)
	}
	_, body = run(t, func(c *gin.Context) { Abort(c, http.StatusForbidden, "Forbidden: nope") })
	if body["message"] != "Forbidden: nope" {
		t.Fatalf("body=%v", body)
	}
}
