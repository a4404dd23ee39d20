package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			if matchLabels(metric, labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func matchLabels(metric *dto.Metric, labels map[string]string) bool {
	found := map[string]string{}
	for _, pair := range metric.GetLabel() {
		found[pair.GetName()] = pair.GetValue()
	}
	for k, v := range labels {
		if found[k] != v {
			return false
		}
	}
	return true
}

func TestRegistryCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRegistry(reg)

	m.IncWebhook("processed")
	m.IncWebhook("processed")
	m.IncWebhook("duplicate")
	m.IncOrderCreated("cod")
	m.IncStockFailure()
	m.ObserveRequest("POST", "/api/v1/orders", "201", 30*time.Millisecond)

	assert.Equal(t, float64(2), counterValue(t, reg, "payment_webhook_events_total", map[string]string{"outcome": "processed"}))
	assert.Equal(t, float64(1), counterValue(t, reg, "payment_webhook_events_total", map[string]string{"outcome": "duplicate"}))
	assert.Equal(t, float64(1), counterValue(t, reg, "orders_created_total", map[string]string{"payment_method": "cod"}))
	assert.Equal(t, float64(1), counterValue(t, reg, "stock_reconciliation_failures_total", nil))
}

func TestNilRegistryIsSafe(t *testing.T) {
	var m *Registry
	m.IncWebhook("processed")
	m.IncOrderCreated("online")
	m.IncStockFailure()
	m.ObserveRequest("GET", "/", "200", time.Millisecond)

	empty := NewRegistry(nil)
	empty.IncWebhook("")
}
