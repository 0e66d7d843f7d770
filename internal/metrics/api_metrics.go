package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// APIMetrics — метрики HTTP API серверных корзин.
type APIMetrics struct {
	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	published *prometheus.CounterVec
}

// NewAPIMetrics регистрирует метрики API в переданном реестре.
func NewAPIMetrics(registerer prometheus.Registerer) *APIMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	return &APIMetrics{
		requests: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_api_requests_total",
			Help: "Total number of cart API requests grouped by method, route and status.",
		}, []string{"method", "route", "status"}),
		latency: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "storefront_api_request_duration_seconds",
			Help:    "Cart API request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		published: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_cart_events_published_total",
			Help: "Total number of cart events handed to the broker grouped by result.",
		}, []string{"result"}),
	}
}

// RecordRequest учитывает обработанный запрос.
func (m *APIMetrics) RecordRequest(method, route string, status int, duration time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordPublish учитывает публикацию события корзины.
func (m *APIMetrics) RecordPublish(result string) {
	m.published.WithLabelValues(result).Inc()
}
