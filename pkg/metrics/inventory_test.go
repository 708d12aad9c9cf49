package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestInventoryMetricsCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewInventoryMetrics(reg)

	m.ObserveSale(OutcomeCommitted, 3)
	m.ObserveSale(OutcomeInsufficient, 5)
	m.ObserveDrop(OutcomeCommitted, "expired", 3, 6)
	m.ObserveDrop(OutcomeInsufficient, "expired", 9, 0)
	m.ObserveUndo(OutcomeWindowExpired)
	m.ObserveTxRetry()
	m.ObserveTxExhausted()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	checks := []struct {
		name, label, value string
		want               float64
	}{
		{"bitetrack_sales_total", "outcome", OutcomeCommitted, 1},
		{"bitetrack_sales_total", "outcome", OutcomeInsufficient, 1},
		{"bitetrack_units_dropped_total", "reason", "expired", 3},
		{"bitetrack_drop_value_lost_total", "reason", "expired", 6},
		{"bitetrack_drops_total", "outcome", OutcomeInsufficient, 1},
		{"bitetrack_drop_undos_total", "outcome", OutcomeWindowExpired, 1},
	}
	for _, c := range checks {
		got, err := fetchCounterValue(mfs, c.name, c.label, c.value)
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		if got != c.want {
			t.Fatalf("%s{%s=%s}: expected %v got %v", c.name, c.label, c.value, c.want, got)
		}
	}
	if mf := findMetricFamily(mfs, "bitetrack_units_sold_total"); mf == nil || mf.GetMetric()[0].GetCounter().GetValue() != 3 {
		t.Fatalf("expected 3 units sold")
	}
	if mf := findMetricFamily(mfs, "bitetrack_tx_retries_total"); mf == nil || mf.GetMetric()[0].GetCounter().GetValue() != 1 {
		t.Fatalf("expected one tx retry")
	}
}

func TestNilInventoryMetricsIsNoop(t *testing.T) {
	var m *InventoryMetrics
	m.ObserveSale(OutcomeCommitted, 1)
	m.ObserveDrop(OutcomeCommitted, "other", 1, 1)
	m.ObserveUndo(OutcomeCommitted)
	m.ObserveTxRetry()
	m.ObserveTxExhausted()

	unregistered := NewInventoryMetrics(nil)
	unregistered.ObserveSale(OutcomeCommitted, 1)
}

func TestOutboxMetricsCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)
	m.IncPublished("sale_created")
	m.IncFailed("sale_created")
	m.IncDLQ("inventory_dropped", "max_attempts")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "bitetrack_outbox_published_total", "event_type", "sale_created"); err != nil || got != 1 {
		t.Fatalf("published: got %v err %v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "bitetrack_outbox_dlq_total", "reason", "max_attempts"); err != nil || got != 1 {
		t.Fatalf("dlq: got %v err %v", got, err)
	}
}
