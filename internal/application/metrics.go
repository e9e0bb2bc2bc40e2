package application

// MetricsRecorder receives business metrics from the application layer.
// *metrics.Metrics implements it.
type MetricsRecorder interface {
	RecordPickDelta(delta int, result string)
	RecordScanResolution(outcome string)
	RecordCacheLookup(result string)
	RecordCompletion(result string)
	SetActiveSessions(count int)
}

// Pick delta results
const (
	deltaCommitted  = "committed"
	deltaRolledBack = "rolled_back"
	deltaRejected   = "rejected"
)

type noopMetrics struct{}

func (noopMetrics) RecordPickDelta(int, string) {}
func (noopMetrics) RecordScanResolution(string) {}
func (noopMetrics) RecordCacheLookup(string) {}
func (noopMetrics) RecordCompletion(string) {}
func (noopMetrics) SetActiveSessions(int) {}

func metricsOrNoop(m MetricsRecorder) MetricsRecorder {
	if m == nil {
		return noopMetrics{}
	}
	return m
}
