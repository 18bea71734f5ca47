package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics содержит метрики оформления заказов.
type CheckoutMetrics struct {
	ordersPlaced   *prometheus.CounterVec
	ordersRejected *prometheus.CounterVec
	itemsSold      prometheus.Counter
	revenue        prometheus.Counter
	duration       prometheus.Histogram
	inFlight       prometheus.Gauge
}

// NewCheckoutMetrics регистрирует метрики в registerer (nil — DefaultRegisterer).
func NewCheckoutMetrics(registerer prometheus.Registerer) *CheckoutMetrics {
	return &CheckoutMetrics{
		ordersPlaced: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_orders_placed_total",
			Help: "Total number of orders placed grouped by initial status.",
		}, []string{"status"}),
		ordersRejected: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_orders_rejected_total",
			Help: "Total number of rejected checkouts grouped by reason.",
		}, []string{"reason"}),
		itemsSold: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_items_sold_total",
			Help: "Total quantity of items sold.",
		}),
		revenue: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_revenue_total",
			Help: "Sum of order totals in the store currency.",
		}),
		duration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "storefront_checkout_duration_seconds",
			Help:    "Duration of checkout requests in seconds.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		inFlight: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "storefront_checkout_in_flight",
			Help: "Number of checkouts currently being processed.",
		}),
	}
}

// Start отмечает начало оформления и возвращает функцию завершения.
func (m *CheckoutMetrics) Start() func() {
	if m == nil {
		return func() {}
	}
	started := time.Now()
	m.inFlight.Inc()
	return func() {
		m.inFlight.Dec()
		m.duration.Observe(time.Since(started).Seconds())
	}
}

// RecordPlaced учитывает успешно созданный заказ.
func (m *CheckoutMetrics) RecordPlaced(status string, items int, total float64) {
	if m == nil {
		return
	}
	m.ordersPlaced.WithLabelValues(status).Inc()
	m.itemsSold.Add(float64(items))
	if total > 0 {
		m.revenue.Add(total)
	}
}

// RecordRejected учитывает отклонённое оформление.
func (m *CheckoutMetrics) RecordRejected(reason string) {
	if m == nil {
		return
	}
	m.ordersRejected.WithLabelValues(reason).Inc()
}
