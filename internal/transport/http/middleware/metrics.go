package middleware

import (
	"github.com/gin-gonic/gin"

	"greenhome/internal/core/metrics"
)

// Metrics 按路由模板记录请求数、耗时与在途数
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		done := metrics.TrackHTTP()
		c.Next()
		done(c.FullPath(), c.Request.Method, c.Writer.Status())
	}
}
