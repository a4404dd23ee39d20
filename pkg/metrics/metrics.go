package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry bundles the counters and histograms the API exposes on /metrics.
type Registry struct {
	requestDuration *prometheus.HistogramVec
	webhookEvents   *prometheus.CounterVec
	ordersCreated   *prometheus.CounterVec
	stockFailures   prometheus.Counter
}

// NewRegistry registers the platform metrics on the provided registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	if reg == nil {
		return &Registry{}
	}
	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhook_events_total",
		Help: "Payment webhook deliveries by outcome.",
	}, []string{"outcome"})
	ordersCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders created by payment method.",
	}, []string{"payment_method"})
	stockFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stock_reconciliation_failures_total",
		Help: "Stock deductions aborted for insufficient stock.",
	})
	reg.MustRegister(requestDuration, webhookEvents, ordersCreated, stockFailures)
	return &Registry{
		requestDuration: requestDuration,
		webhookEvents:   webhookEvents,
		ordersCreated:   ordersCreated,
		stockFailures:   stockFailures,
	}
}

// ObserveRequest records one HTTP request.
func (r *Registry) ObserveRequest(method, route, status string, duration time.Duration) {
	if r == nil || r.requestDuration == nil {
		return
	}
	r.requestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// IncWebhook counts a webhook delivery outcome (processed, duplicate, failed).
func (r *Registry) IncWebhook(outcome string) {
	if r == nil || r.webhookEvents == nil {
		return
	}
	r.webhookEvents.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncOrderCreated counts a created order by payment method.
func (r *Registry) IncOrderCreated(method string) {
	if r == nil || r.ordersCreated == nil {
		return
	}
	r.ordersCreated.WithLabelValues(normalizeLabel(method)).Inc()
}

// IncStockFailure counts a reconciliation abort.
func (r *Registry) IncStockFailure() {
	if r == nil || r.stockFailures == nil {
		return
	}
	r.stockFailures.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
