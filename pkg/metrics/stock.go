package metrics

import "github.com/prometheus/client_golang/prometheus"

// StockMetrics tracks products at or below the low-stock threshold and the
// events the worker consumed to find them.
type StockMetrics struct {
	lowStock *prometheus.GaugeVec
	consumed *prometheus.CounterVec
}

func NewStockMetrics(reg prometheus.Registerer) *StockMetrics {
	if reg == nil {
		return &StockMetrics{}
	}
	m := &StockMetrics{
		lowStock: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bitetrack_low_stock_units",
			Help: "Current count of products at or below the low-stock threshold.",
		}, []string{"product_id"}),
		consumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bitetrack_events_consumed_total",
			Help: "Published domain events handled by the event worker.",
		}, []string{"event_type", "outcome"}),
	}
	reg.MustRegister(m.lowStock, m.consumed)
	return m
}

func (m *StockMetrics) SetLowStock(productID string, count int) {
	if m == nil || m.lowStock == nil {
		return
	}
	m.lowStock.WithLabelValues(normalizeLabel(productID)).Set(float64(count))
}

// ClearLowStock removes the series once a product is restocked.
func (m *StockMetrics) ClearLowStock(productID string) {
	if m == nil || m.lowStock == nil {
		return
	}
	m.lowStock.DeleteLabelValues(normalizeLabel(productID))
}

func (m *StockMetrics) IncConsumed(eventType, outcome string) {
	if m == nil || m.consumed == nil {
		return
	}
	m.consumed.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}
