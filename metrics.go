package bitjit

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordParse is called after each Parse.
	RecordParse(duration time.Duration, err error)

	// RecordCompile is called after each compilation. codeBytes and spills
	// describe the emitted code; both are zero on error.
	RecordCompile(codeBytes, spills int, duration time.Duration, err error)

	// RecordExecute is called after each execution of compiled code.
	RecordExecute(matches int, duration time.Duration, err error)

	// RecordBatch is called after each pool batch.
	RecordBatch(count, failed int, duration time.Duration)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordParse(time.Duration, error)             {}
func (NoopMetricsCollector) RecordCompile(int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordExecute(int, time.Duration, error)      {}
func (NoopMetricsCollector) RecordBatch(int, int, time.Duration)          {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	ParseCount        atomic.Int64
	ParseErrors       atomic.Int64
	CompileCount      atomic.Int64
	CompileErrors     atomic.Int64
	CompileTotalNanos atomic.Int64
	CodeBytes         atomic.Int64
	Spills            atomic.Int64
	ExecuteCount      atomic.Int64
	ExecuteErrors     atomic.Int64
	ExecuteTotalNanos atomic.Int64
	Matches           atomic.Int64
	BatchCount        atomic.Int64
	BatchQueries      atomic.Int64
	BatchFailed       atomic.Int64
}

// RecordParse implements MetricsCollector.
func (b *BasicMetricsCollector) RecordParse(_ time.Duration, err error) {
	b.ParseCount.Add(1)
	if err != nil {
		b.ParseErrors.Add(1)
	}
}

// RecordCompile implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCompile(codeBytes, spills int, duration time.Duration, err error) {
	b.CompileCount.Add(1)
	b.CompileTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.CompileErrors.Add(1)
		return
	}
	b.CodeBytes.Add(int64(codeBytes))
	b.Spills.Add(int64(spills))
}

// RecordExecute implements MetricsCollector.
func (b *BasicMetricsCollector) RecordExecute(matches int, duration time.Duration, err error) {
	b.ExecuteCount.Add(1)
	b.ExecuteTotalNanos.Add(duration.Nanoseconds())
	b.Matches.Add(int64(matches))
	if err != nil {
		b.ExecuteErrors.Add(1)
	}
}

// RecordBatch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBatch(count, failed int, _ time.Duration) {
	b.BatchCount.Add(1)
	b.BatchQueries.Add(int64(count))
	b.BatchFailed.Add(int64(failed))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		ParseCount:      b.ParseCount.Load(),
		ParseErrors:     b.ParseErrors.Load(),
		CompileCount:    b.CompileCount.Load(),
		CompileErrors:   b.CompileErrors.Load(),
		CompileAvgNanos: avg(b.CompileTotalNanos.Load(), b.CompileCount.Load()),
		CodeBytes:       b.CodeBytes.Load(),
		Spills:          b.Spills.Load(),
		ExecuteCount:    b.ExecuteCount.Load(),
		ExecuteErrors:   b.ExecuteErrors.Load(),
		ExecuteAvgNanos: avg(b.ExecuteTotalNanos.Load(), b.ExecuteCount.Load()),
		Matches:         b.Matches.Load(),
		BatchCount:      b.BatchCount.Load(),
		BatchQueries:    b.BatchQueries.Load(),
		BatchFailed:     b.BatchFailed.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	ParseCount      int64
	ParseErrors     int64
	CompileCount    int64
	CompileErrors   int64
	CompileAvgNanos int64
	CodeBytes       int64
	Spills          int64
	ExecuteCount    int64
	ExecuteErrors   int64
	ExecuteAvgNanos int64
	Matches         int64
	BatchCount      int64
	BatchQueries    int64
	BatchFailed     int64
}
