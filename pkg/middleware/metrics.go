package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestsTotal はHTTPリクエスト数をメソッド・ルート・ステータスクラスごとに数える。
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shiftkeeper_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration はHTTPリクエストの処理時間（秒）。
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shiftkeeper_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// AuthRejectionsTotal はアクセスゲートで拒否したリクエスト数を理由ごとに数える。
	AuthRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shiftkeeper_auth_rejections_total",
			Help: "Requests rejected by the access gate",
		},
		[]string{"reason"},
	)

	// LoginAttemptsTotal はログイン試行数を結果ごとに数える。
	LoginAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shiftkeeper_login_attempts_total",
			Help: "Login attempts",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		AuthRejectionsTotal,
		LoginAttemptsTotal,
	)
}

// Metrics はリクエスト数と処理時間を記録するGinミドルウェアを返す。
// ルートはパスパラメータを含まないテンプレート（例: /api/staff/:id）で集計する。
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status()/100) + "xx"

		RequestsTotal.WithLabelValues(c.Request.Method, route, status).Inc()
		RequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// MetricsHandler はPrometheus形式でメトリクスを公開するハンドラーを返す。
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
