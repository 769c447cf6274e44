package wallet

import "time"

// MetricsCollector records operational metrics for wallet operations.
type MetricsCollector interface {
	RecordOperationDuration(operation string, duration time.Duration)
	RecordTransaction(txType string, amountKobo int64)
	RecordError(operation, kind string)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordOperationDuration(string, time.Duration) {}
func (NoopMetricsCollector) RecordTransaction(string, int64)               {}
func (NoopMetricsCollector) RecordError(string, string)                    {}
