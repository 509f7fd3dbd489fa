// Package metrics exposes the exchange's Prometheus instrumentation.
// All methods are nil-safe so the service can run without a registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	ordersTotal  *prometheus.CounterVec
	fillsTotal   prometheus.Counter
	cancelsTotal prometheus.Counter
	rejectsTotal *prometheus.CounterVec
	bookDepth    *prometheus.GaugeVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ordersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dex",
			Name:      "orders_total",
			Help:      "Orders admitted, by type and side.",
		}, []string{"type", "side"}),
		fillsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dex",
			Name:      "fills_total",
			Help:      "Matched fill legs.",
		}),
		cancelsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dex",
			Name:      "cancels_total",
			Help:      "Orders cancelled by traders.",
		}),
		rejectsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dex",
			Name:      "rejects_total",
			Help:      "Orders rejected, by reason.",
		}, []string{"reason"}),
		bookDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dex",
			Name:      "book_depth_orders",
			Help:      "Active resting orders per pair and side.",
		}, []string{"pair", "side"}),
	}
	reg.MustRegister(m.ordersTotal, m.fillsTotal, m.cancelsTotal, m.rejectsTotal, m.bookDepth)
	return m
}

func (m *Metrics) Order(otype, side string) {
	if m == nil {
		return
	}
	m.ordersTotal.WithLabelValues(otype, side).Inc()
}

func (m *Metrics) Fill() {
	if m == nil {
		return
	}
	m.fillsTotal.Inc()
}

func (m *Metrics) Cancel() {
	if m == nil {
		return
	}
	m.cancelsTotal.Inc()
}

func (m *Metrics) Reject(reason string) {
	if m == nil {
		return
	}
	m.rejectsTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) Depth(pair, side string, n int) {
	if m == nil {
		return
	}
	m.bookDepth.WithLabelValues(pair, side).Set(float64(n))
}
