package output

import "time"

// MetricsCollector defines the secondary port for metrics collection.
type MetricsCollector interface {
	// IncQueryCount increments the statement execution counter.
	IncQueryCount(dialect string, success bool)

	// ObserveQueryDuration records statement execution duration.
	ObserveQueryDuration(dialect string, duration time.Duration)

	// AddRowsFetched counts records pulled from cursors.
	AddRowsFetched(source string, rows int)

	// IncCursorReplay counts cursor reset-and-replay operations.
	IncCursorReplay(rows int)

	// IncExportCount increments the export counter.
	IncExportCount(format string, success bool)

	// SetSessionsOpen sets the number of open sessions.
	SetSessionsOpen(count int)

	// IncStorageOperations increments storage operation counter.
	IncStorageOperations(operation string, success bool)

	// ObserveStorageDuration records storage operation duration.
	ObserveStorageDuration(operation string, duration time.Duration)
}

// NoOpMetrics is a no-op implementation of MetricsCollector.
type NoOpMetrics struct{}

// IncQueryCount implements MetricsCollector.
func (n *NoOpMetrics) IncQueryCount(_ string, _ bool) {}

// ObserveQueryDuration implements MetricsCollector.
func (n *NoOpMetrics) ObserveQueryDuration(_ string, _ time.Duration) {}

// AddRowsFetched implements MetricsCollector.
func (n *NoOpMetrics) AddRowsFetched(_ string, _ int) {}

// IncCursorReplay implements MetricsCollector.
func (n *NoOpMetrics) IncCursorReplay(_ int) {}

// IncExportCount implements MetricsCollector.
func (n *NoOpMetrics) IncExportCount(_ string, _ bool) {}

// SetSessionsOpen implements MetricsCollector.
func (n *NoOpMetrics) SetSessionsOpen(_ int) {}

// IncStorageOperations implements MetricsCollector.
func (n *NoOpMetrics) IncStorageOperations(_ string, _ bool) {}

// ObserveStorageDuration implements MetricsCollector.
func (n *NoOpMetrics) ObserveStorageDuration(_ string, _ time.Duration) {}
