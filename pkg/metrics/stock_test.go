package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestStockMetricsClearRemovesSeries(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewStockMetrics(reg)
	m.SetLowStock("p1", 2)
	m.SetLowStock("p2", 0)
	m.ClearLowStock("p1")
	m.IncConsumed("sale_created", "handled")
	m.IncConsumed("sale_created", "handled")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	low := findMetricFamily(mfs, "bitetrack_low_stock_units")
	if low == nil || len(low.GetMetric()) != 1 || !matchesLabel(low.GetMetric()[0].GetLabel(), "product_id", "p2") {
		t.Fatalf("expected only p2 to remain, got %v", low)
	}
	consumed := findMetricFamily(mfs, "bitetrack_events_consumed_total")
	if consumed == nil || consumed.GetMetric()[0].GetCounter().GetValue() != 2 {
		t.Fatalf("expected two consumed events, got %v", consumed)
	}
}

func TestStockMetricsNilSafe(t *testing.T) {
	var m *StockMetrics
	m.SetLowStock("p1", 1)
	m.ClearLowStock("p1")
	m.IncConsumed("x", "y")
}
