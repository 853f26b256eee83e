package notification

// MetricsCollector observes the dispatcher queue.
type MetricsCollector interface {
	RecordEnqueued(kind string)
	RecordDropped(kind string)
	// RecordDelivery reports the final state of one notification:
	// delivered, stored, publish_failed or persist_failed.
	RecordDelivery(kind, result string)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector
type NoopMetricsCollector struct{}

func (n *NoopMetricsCollector) RecordEnqueued(string)         {}
func (n *NoopMetricsCollector) RecordDropped(string)          {}
func (n *NoopMetricsCollector) RecordDelivery(string, string) {}
