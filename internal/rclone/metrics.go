package rclone

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// upstreamRequestsTotal — число запросов к внешнему API по операциям и результату.
	upstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transfer_portal_upstream_requests_total",
			Help: "Total number of requests to the rclone job API",
		},
		[]string{"operation", "result"},
	)

	// upstreamRequestDuration — длительность запросов к внешнему API.
	upstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "transfer_portal_upstream_request_duration_seconds",
			Help:    "Duration of requests to the rclone job API in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// observeUpstream записывает результат запроса: ok, rejected (success=false), error.
func observeUpstream(op string, err error, d time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
		var ue *UpstreamError
		if errors.As(err, &ue) && ue.Err == nil {
			result = "rejected"
		}
	}
	upstreamRequestsTotal.WithLabelValues(op, result).Inc()
	upstreamRequestDuration.WithLabelValues(op).Observe(d.Seconds())
}
