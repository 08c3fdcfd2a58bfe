package persistence

import (
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Write outcomes
const (
	writeResultOK       = "ok"
	writeResultQuota    = "quota_exceeded"
	writeResultError    = "error"
	writeResultRecovery = "recovered"
)

// Metrics exposes persistence health as Prometheus collectors
type Metrics struct {
	writes       *prometheus.CounterVec
	degradations *prometheus.CounterVec
	loadFailures *prometheus.CounterVec
	payloadBytes *prometheus.GaugeVec
	storedCount  *prometheus.GaugeVec
}

// NewMetrics registers the persistence collectors with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		writes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockledger_persistence_writes_total",
				Help: "Collection writes by outcome.",
			},
			[]string{"collection", "result"},
		),
		degradations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockledger_persistence_degradations_total",
				Help: "Degradations applied to persisted collections.",
			},
			[]string{"collection", "action"},
		),
		loadFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockledger_persistence_load_failures_total",
				Help: "Collections reset to empty because they could not be loaded.",
			},
			[]string{"collection"},
		),
		payloadBytes: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stockledger_persistence_payload_bytes",
				Help: "Size of the last persisted payload.",
			},
			[]string{"collection"},
		),
		storedCount: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stockledger_persistence_stored_records",
				Help: "Records in the last persisted payload.",
			},
			[]string{"collection"},
		),
	}
}

func (m *Metrics) recordWrite(c inventory.Collection, result string) {
	if m == nil {
		return
	}
	m.writes.WithLabelValues(string(c), result).Inc()
}

func (m *Metrics) recordStored(c inventory.Collection, bytes, records int) {
	if m == nil {
		return
	}
	m.payloadBytes.WithLabelValues(string(c)).Set(float64(bytes))
	m.storedCount.WithLabelValues(string(c)).Set(float64(records))
}

func (m *Metrics) recordDegradation(c inventory.Collection, action string) {
	if m == nil {
		return
	}
	m.degradations.WithLabelValues(string(c), action).Inc()
}

func (m *Metrics) recordLoadFailure(c inventory.Collection) {
	if m == nil {
		return
	}
	m.loadFailures.WithLabelValues(string(c)).Inc()
}
