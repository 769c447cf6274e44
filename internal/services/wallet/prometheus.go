package wallet

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics implements MetricsCollector on a Prometheus
// registry.
type PrometheusMetrics struct {
	operationDuration *prometheus.HistogramVec
	transactionTotal  *prometheus.CounterVec
	transactionVolume *prometheus.CounterVec
	errorTotal        *prometheus.CounterVec
}

// NewPrometheusMetrics creates and registers the wallet metric set.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	m := &PrometheusMetrics{
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lumapay",
			Subsystem: "wallet",
			Name:      "operation_duration_seconds",
			Help:      "Duration of wallet service operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		transactionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lumapay",
			Subsystem: "wallet",
			Name:      "transactions_total",
			Help:      "Completed ledger transactions by type.",
		}, []string{"type"}),
		transactionVolume: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lumapay",
			Subsystem: "wallet",
			Name:      "transaction_volume_kobo",
			Help:      "Total transacted volume in kobo by type.",
		}, []string{"type"}),
		errorTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lumapay",
			Subsystem: "wallet",
			Name:      "errors_total",
			Help:      "Wallet service errors by operation and kind.",
		}, []string{"operation", "kind"}),
	}
	reg.MustRegister(m.operationDuration, m.transactionTotal, m.transactionVolume, m.errorTotal)
	return m
}

func (m *PrometheusMetrics) RecordOperationDuration(operation string, duration time.Duration) {
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordTransaction(txType string, amountKobo int64) {
	m.transactionTotal.WithLabelValues(txType).Inc()
	if amountKobo < 0 {
		amountKobo = -amountKobo
	}
	m.transactionVolume.WithLabelValues(txType).Add(float64(amountKobo))
}

func (m *PrometheusMetrics) RecordError(operation, kind string) {
	m.errorTotal.WithLabelValues(operation, kind).Inc()
}
