package credit

import "time"

type MetricsCollector interface {
	RecordSettlement(source, outcome string)
	RecordPurchase(gateway, result string)
	RecordGatewayCall(gateway, operation string, d time.Duration, err error)
	RecordReconcile(report *ReconcileReport)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector
type NoopMetricsCollector struct{}

func (n *NoopMetricsCollector) RecordSettlement(string, string)                        {}
func (n *NoopMetricsCollector) RecordPurchase(string, string)                          {}
func (n *NoopMetricsCollector) RecordGatewayCall(string, string, time.Duration, error) {}
func (n *NoopMetricsCollector) RecordReconcile(*ReconcileReport)                       {}
