package bitjit

import (
	"log/slog"

	"github.com/hupe1980/bitjit/resource"
)

type options struct {
	name             string
	metricsCollector MetricsCollector
	logger           *Logger
	diagnostics      DiagnosticStream
	controller       *resource.Controller
}

// Option configures engine construction.
type Option func(*options)

// WithName labels the engine in logs and arena errors.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &bitjit.BasicMetricsCollector{}
//	eng, _ := bitjit.New(idx, cfg, 1<<16, 1<<16, bitjit.WithMetricsCollector(metrics))
//	// ... use eng ...
//	stats := metrics.GetStats()
//	fmt.Printf("Compiles: %d, Avg latency: %dns\n", stats.CompileCount, stats.CompileAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := bitjit.NewJSONLogger(slog.LevelDebug)
//	eng, _ := bitjit.New(idx, cfg, 1<<16, 1<<16, bitjit.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithDiagnosticStream sets the stream that receives diagnostic output.
// Without it diagnostics are tracked but discarded.
func WithDiagnosticStream(ds DiagnosticStream) Option {
	return func(o *options) {
		o.diagnostics = ds
	}
}

// WithResourceController reserves the engine's buffers from rc. Arena
// budgets and code buffers count against rc's memory limit, and a Pool
// built on rc bounds its workers and query rate.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.controller = rc
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		name:             "bitjit",
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.diagnostics == nil {
		o.diagnostics = NewDiagnosticStream(nil)
	}
	return o
}
