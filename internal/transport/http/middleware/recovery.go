package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	resp "greenhome/internal/transport/http/response"
)

// RecoveryResponse 交给 ginzap.CustomRecoveryWithZap，日志由 ginzap 负责
func RecoveryResponse(c *gin.Context, _ any) {
	resp.Abort(c, http.StatusInternalServerError, "")
}
