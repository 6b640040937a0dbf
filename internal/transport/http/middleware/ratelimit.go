package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	resp "greenhome/internal/transport/http/response"
)

// RateLimit 全局令牌桶限速
func RateLimit(rps rate.Limit, burst int) gin.HandlerFunc {
	lim := rate.NewLimiter(rps, burst)
	return func(c *gin.Context) {
		if lim.Allow() {
			c.Next()
			return
		}
		resp.Abort(c, http.StatusTooManyRequests, "")
	}
}

const ipIdleTTL = 10 * time.Minute

// RateLimitPerIP 每 IP 一个令牌桶，空闲超过 ipIdleTTL 的桶被回收
func RateLimitPerIP(rps rate.Limit, burst int) gin.HandlerFunc {
	buckets := ttlcache.New[string, *rate.Limiter](
		ttlcache.WithTTL[string, *rate.Limiter](ipIdleTTL),
		// 同一新 IP 的并发首包只建一个桶
		ttlcache.WithLoader[string, *rate.Limiter](ttlcache.NewSuppressedLoader[string, *rate.Limiter](
			ttlcache.LoaderFunc[string, *rate.Limiter](
				func(c *ttlcache.Cache[string, *rate.Limiter], ip string) *ttlcache.Item[string, *rate.Limiter] {
					return c.Set(ip, rate.NewLimiter(rps, burst), ttlcache.DefaultTTL)
				},
			), &singleflight.Group{},
		)),
	)
	go buckets.Start()

	return func(c *gin.Context) {
		item := buckets.Get(c.ClientIP())
		if item != nil && item.Value().Allow() {
			c.Next()
			return
		}
		resp.Abort(c, http.StatusTooManyRequests, "")
	}
}
