package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// counterValue はデフォルトレジストリから指定ラベルのカウンター値を取得する。
func counterValue(t *testing.T, name string, labels map[string]string) float64 {
	t.Helper()

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("メトリクスの収集に失敗: %v", err)
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
	metric:
		for _, m := range f.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue metric
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

// TestMetrics はMetricsミドルウェアを検証する。
func TestMetrics(t *testing.T) {
	t.Parallel()

	t.Run("ルートテンプレートとステータスクラスで集計すること", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.Use(Metrics())
		router.GET("/metrics-test/:id", func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		})

		labels := map[string]string{"method": "GET", "route": "/metrics-test/:id", "status": "2xx"}
		before := counterValue(t, "shiftkeeper_http_requests_total", labels)

		for _, id := range []string{"a", "b"} {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics-test/"+id, nil))
		}

		if got := counterValue(t, "shiftkeeper_http_requests_total", labels); got-before != 2 {
			t.Errorf("増分 = %v, want 2", got-before)
		}
	})

	t.Run("一致しないルートはunmatchedとして集計すること", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.Use(Metrics())

		labels := map[string]string{"method": "DELETE", "route": "unmatched", "status": "4xx"}
		before := counterValue(t, "shiftkeeper_http_requests_total", labels)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/nowhere", nil))

		if got := counterValue(t, "shiftkeeper_http_requests_total", labels); got-before != 1 {
			t.Errorf("増分 = %v, want 1", got-before)
		}
	})
}

// TestMetricsHandler はメトリクス公開ハンドラーを検証する。
func TestMetricsHandler(t *testing.T) {
	t.Parallel()

	AuthRejectionsTotal.WithLabelValues("no_token").Add(0)

	router := gin.New()
	router.GET("/metrics", MetricsHandler())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "shiftkeeper_auth_rejections_total") {
		t.Error("認証拒否のメトリクスが公開されていない")
	}
}
