package metrics

import "github.com/prometheus/client_golang/prometheus"

// WasteMetrics exposes the latest rolling waste summary as gauges.
type WasteMetrics struct {
	units     *prometheus.GaugeVec
	valueLost *prometheus.GaugeVec
}

func NewWasteMetrics(reg prometheus.Registerer) *WasteMetrics {
	if reg == nil {
		return &WasteMetrics{}
	}
	m := &WasteMetrics{
		units: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bitetrack_waste_window_units",
			Help: "Units dropped and not undone in the last summary window.",
		}, []string{"reason"}),
		valueLost: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bitetrack_waste_window_value_lost",
			Help: "Value lost to drops not undone in the last summary window.",
		}, []string{"reason"}),
	}
	reg.MustRegister(m.units, m.valueLost)
	return m
}

// Reset clears reasons that may not appear in the next summary.
func (m *WasteMetrics) Reset() {
	if m == nil || m.units == nil {
		return
	}
	m.units.Reset()
	m.valueLost.Reset()
}

func (m *WasteMetrics) SetReason(reason string, units int64, valueLost float64) {
	if m == nil || m.units == nil {
		return
	}
	label := normalizeLabel(reason)
	m.units.WithLabelValues(label).Set(float64(units))
	m.valueLost.WithLabelValues(label).Set(valueLost)
}
