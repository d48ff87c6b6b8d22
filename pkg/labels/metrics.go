package labels

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordParse is called after each c.e file has been read.
	RecordParse(records int, duration time.Duration, err error)

	// RecordBuild is called after each index build. rejected counts labels
	// dropped by validation.
	RecordBuild(labels, rejected int, duration time.Duration)

	// RecordQuery is called when a query result sequence has been consumed
	// or abandoned. results counts the labels handed to the caller.
	RecordQuery(results int, duration time.Duration)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordParse(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordBuild(int, int, time.Duration)   {}
func (NoopMetricsCollector) RecordQuery(int, time.Duration)        {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	ParseCount      atomic.Int64
	ParseErrors     atomic.Int64
	ParsedRecords   atomic.Int64
	BuildCount      atomic.Int64
	BuiltLabels     atomic.Int64
	RejectedLabels  atomic.Int64
	BuildTotalNanos atomic.Int64
	QueryCount      atomic.Int64
	QueryResults    atomic.Int64
	QueryTotalNanos atomic.Int64
}

// RecordParse implements MetricsCollector.
func (b *BasicMetricsCollector) RecordParse(records int, _ time.Duration, err error) {
	b.ParseCount.Add(1)
	b.ParsedRecords.Add(int64(records))
	if err != nil {
		b.ParseErrors.Add(1)
	}
}

// RecordBuild implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBuild(labels, rejected int, duration time.Duration) {
	b.BuildCount.Add(1)
	b.BuiltLabels.Add(int64(labels))
	b.RejectedLabels.Add(int64(rejected))
	b.BuildTotalNanos.Add(duration.Nanoseconds())
}

// RecordQuery implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQuery(results int, duration time.Duration) {
	b.QueryCount.Add(1)
	b.QueryResults.Add(int64(results))
	b.QueryTotalNanos.Add(duration.Nanoseconds())
}

// Stats is a point-in-time copy of BasicMetricsCollector counters.
type Stats struct {
	ParseCount     int64
	ParseErrors    int64
	BuildCount     int64
	BuiltLabels    int64
	RejectedLabels int64
	QueryCount     int64
	QueryResults   int64
	QueryAvgNanos  int64
}

// GetStats returns a snapshot of the collected metrics.
func (b *BasicMetricsCollector) GetStats() Stats {
	s := Stats{
		ParseCount:     b.ParseCount.Load(),
		ParseErrors:    b.ParseErrors.Load(),
		BuildCount:     b.BuildCount.Load(),
		BuiltLabels:    b.BuiltLabels.Load(),
		RejectedLabels: b.RejectedLabels.Load(),
		QueryCount:     b.QueryCount.Load(),
		QueryResults:   b.QueryResults.Load(),
	}
	if s.QueryCount > 0 {
		s.QueryAvgNanos = b.QueryTotalNanos.Load() / s.QueryCount
	}
	return s
}
