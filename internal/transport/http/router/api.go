package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"greenhome/internal/core/auth"
	"greenhome/internal/core/config"
	"greenhome/internal/core/metrics"
	"greenhome/internal/core/server"
	"greenhome/internal/feature/account"
	"greenhome/internal/feature/booking"
	"greenhome/internal/feature/dashboard"
	"greenhome/internal/feature/gallery"
	"greenhome/internal/feature/listing"
	"greenhome/internal/feature/review"
	"greenhome/internal/repo"
	"greenhome/internal/transport/http/ez"
	"greenhome/internal/transport/http/handler"
	mdw "greenhome/internal/transport/http/middleware"
	resp "greenhome/internal/transport/http/response"
)

type Deps struct {
	Log      *zap.Logger
	Config   *config.Config
	Stores   *repo.Stores
	Verifier auth.Verifier
}

// Modules 按依赖装配全部业务模块
func Modules(d Deps) []APIModule {
	s := d.Stores
	opts := ez.Options{
		Log:            d.Log.Named("http"),
		Auth:           mdw.RequireIdentity(d.Verifier, d.Log),
		ExposeInternal: !d.Config.IsProduction(),
	}
	return []APIModule{
		&handler.Houses{Svc: listing.NewService(s.Listings, d.Log), EZ: opts},
		&handler.Bookings{Svc: booking.NewService(s.Bookings, s.Accounts, d.Log), EZ: opts},
		&handler.Reviews{Svc: review.NewService(s.Reviews, s.Accounts, d.Log), EZ: opts},
		&handler.Users{Svc: account.NewService(s.Accounts, d.Log), EZ: opts},
		&handler.Dashboard{Svc: dashboard.NewService(dashboard.Repos{
			Accounts: s.Accounts, Listings: s.Listings, Bookings: s.Bookings, Reviews: s.Reviews,
		}, d.Log), EZ: opts},
		&handler.Upload{Svc: gallery.NewService(s.Images, gallery.Limits{
			MaxFiles:     d.Config.Upload.MaxFiles,
			MaxFileBytes: d.Config.Upload.MaxFileMB << 20,
		}, d.Log), EZ: opts},
	}
}

func NewAPIEngine(d Deps) *gin.Engine {
	lim := d.Config.Limits
	r := server.NewRouter(d.Log, d.Config.App.HTTP.CORSOrigins)

	// 中间件
	var limiter gin.HandlerFunc
	if lim.PerIP {
		limiter = mdw.RateLimitPerIP(rate.Limit(lim.RPS), lim.Burst)
	} else {
		limiter = mdw.RateLimit(rate.Limit(lim.RPS), lim.Burst)
	}
	r.Use(
		mdw.AccessLog(d.Log),
		mdw.Metrics(),
		limiter,
		mdw.ConcurrencyLimit(lim.Concurrency),
		mdw.MaxBodyBytes(lim.MaxBodyMB<<20),
		mdw.Timeout(time.Duration(lim.TimeoutSec)*time.Second),
	)

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := d.Stores.Ping(ctx); err != nil {
			d.Log.Warn("health check failed", zap.Error(err))
			resp.Fail(c, http.StatusServiceUnavailable, "Store unavailable")
			return
		}
		resp.OK(c, http.StatusOK, gin.H{"store": d.Stores.Driver()})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.NoRoute(func(c *gin.Context) { resp.Fail(c, http.StatusNotFound, "") })

	var reg Registry
	reg.Register(Modules(d)...)
	reg.MountAll(r.Group("/api"))
	return r
}
