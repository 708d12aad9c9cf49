package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	pkgerrors "github.com/angelmondragon/bitetrack-backend/pkg/errors"
)

// Outcome labels shared by the inventory counters.
const (
	OutcomeCommitted     = "committed"
	OutcomeInsufficient  = "insufficient"
	OutcomeNotFound      = "not_found"
	OutcomeInvalid       = "invalid"
	OutcomeTransient     = "transient"
	OutcomeAlreadyUndone = "already_undone"
	OutcomeWindowExpired = "window_expired"
	OutcomeError         = "error"
)

// InventoryMetrics tracks sale, drop and undo outcomes plus coordinator
// retries. It satisfies db.TxObserver.
type InventoryMetrics struct {
	sales        *prometheus.CounterVec
	unitsSold    prometheus.Counter
	unitsDropped *prometheus.CounterVec
	valueLost    *prometheus.CounterVec
	drops        *prometheus.CounterVec
	undos        *prometheus.CounterVec
	txRetries    prometheus.Counter
	txExhausted  prometheus.Counter
}

// NewInventoryMetrics registers the inventory metrics on reg. A nil reg
// yields a no-op recorder.
func NewInventoryMetrics(reg prometheus.Registerer) *InventoryMetrics {
	if reg == nil {
		return &InventoryMetrics{}
	}
	m := &InventoryMetrics{
		sales: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bitetrack_sales_total",
			Help: "Sale attempts by outcome.",
		}, []string{"outcome"}),
		unitsSold: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bitetrack_units_sold_total",
			Help: "Units deducted by committed sales.",
		}),
		unitsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bitetrack_units_dropped_total",
			Help: "Units written off as waste by reason.",
		}, []string{"reason"}),
		valueLost: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bitetrack_drop_value_lost_total",
			Help: "Value written off as waste by reason.",
		}, []string{"reason"}),
		drops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bitetrack_drops_total",
			Help: "Drop attempts by outcome.",
		}, []string{"outcome"}),
		undos: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bitetrack_drop_undos_total",
			Help: "Undo attempts by outcome.",
		}, []string{"outcome"}),
		txRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bitetrack_tx_retries_total",
			Help: "Atomic scopes replayed after a transient conflict.",
		}),
		txExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bitetrack_tx_exhausted_total",
			Help: "Atomic scopes that ran out of retry attempts.",
		}),
	}
	reg.MustRegister(m.sales, m.unitsSold, m.unitsDropped, m.valueLost, m.drops, m.undos, m.txRetries, m.txExhausted)
	return m
}

func (m *InventoryMetrics) ObserveSale(outcome string, units int) {
	if m == nil || m.sales == nil {
		return
	}
	m.sales.WithLabelValues(outcome).Inc()
	if outcome == OutcomeCommitted && units > 0 {
		m.unitsSold.Add(float64(units))
	}
}

func (m *InventoryMetrics) ObserveDrop(outcome, reason string, units int, valueLost float64) {
	if m == nil || m.drops == nil {
		return
	}
	m.drops.WithLabelValues(outcome).Inc()
	if outcome != OutcomeCommitted {
		return
	}
	m.unitsDropped.WithLabelValues(normalizeLabel(reason)).Add(float64(units))
	if valueLost > 0 {
		m.valueLost.WithLabelValues(normalizeLabel(reason)).Add(valueLost)
	}
}

func (m *InventoryMetrics) ObserveUndo(outcome string) {
	if m == nil || m.undos == nil {
		return
	}
	m.undos.WithLabelValues(outcome).Inc()
}

// ObserveTxRetry implements db.TxObserver.
func (m *InventoryMetrics) ObserveTxRetry() {
	if m == nil || m.txRetries == nil {
		return
	}
	m.txRetries.Inc()
}

// ObserveTxExhausted implements db.TxObserver.
func (m *InventoryMetrics) ObserveTxExhausted() {
	if m == nil || m.txExhausted == nil {
		return
	}
	m.txExhausted.Inc()
}

// OutcomeForError maps a service error onto an outcome label.
func OutcomeForError(err error) string {
	if err == nil {
		return OutcomeCommitted
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		return OutcomeError
	}
	switch typed.Code() {
	case pkgerrors.CodeInsufficientInventory:
		return OutcomeInsufficient
	case pkgerrors.CodeNotFound:
		return OutcomeNotFound
	case pkgerrors.CodeValidation:
		return OutcomeInvalid
	case pkgerrors.CodeTransientConflict:
		return OutcomeTransient
	default:
		return OutcomeError
	}
}
