package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestsTotal 按路径和状态码统计请求数
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "z2api_requests_total",
			Help: "Total number of requests processed",
		},
		[]string{"path", "status"},
	)

	// RequestDuration 请求耗时分布
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "z2api_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"path"},
	)

	// CredentialStatus 凭证池各状态的凭证数量
	CredentialStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "z2api_credential_status",
			Help: "Number of upstream credentials per health status",
		},
		[]string{"status"},
	)

	// RateLimitedTotal 被限流拒绝的请求数
	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "z2api_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
	)

	// UpstreamFailuresTotal 按失败类型统计上游调用失败数
	UpstreamFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "z2api_upstream_failures_total",
			Help: "Total number of upstream call failures by kind",
		},
		[]string{"kind"},
	)
)

// Handler 暴露/metrics端点
func Handler() http.Handler {
	return promhttp.Handler()
}

// SetCredentialStatus 更新凭证池状态gauge
func SetCredentialStatus(counts map[string]int) {
	for status, count := range counts {
		CredentialStatus.WithLabelValues(status).Set(float64(count))
	}
}
