package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// UnmatchedRoute 未命中路由的统一 path 标签
const UnmatchedRoute = "unmatched"

var (
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "greenhome",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Count of HTTP requests by route template and status",
		},
		[]string{"path", "method", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "greenhome",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of HTTP requests by route template",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"path", "method"},
	)
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "greenhome",
		Subsystem: "http",
		Name:      "requests_in_flight",
		Help:      "Requests currently being served",
	})
)

func init() { prometheus.MustRegister(httpRequests, httpDuration, httpInFlight) }

// TrackHTTP 请求开始时调用，返回的函数在响应写完后记录结果。
// route 为路由模板，空串按 UnmatchedRoute 计，避免扫描请求撑爆基数。
func TrackHTTP() func(route, method string, status int) {
	start := time.Now()
	httpInFlight.Inc()
	return func(route, method string, status int) {
		httpInFlight.Dec()
		if route == "" {
			route = UnmatchedRoute
		}
		httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}
