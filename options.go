package rpforest

import "log/slog"

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	seed             *uint64
}

// Option configures Index construction.
type Option func(*options)

// WithLogger configures the diagnostics logger. Pass nil to keep the
// default stderr text logger. Advisory messages are only emitted while
// verbose mode is enabled; see Index.SetVerbose.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc != nil {
			o.metricsCollector = mc
		}
	}
}

// WithSeed seeds the build-time random source at construction.
// Equivalent to calling SetSeed before the first AddItem.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.seed = &seed
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		logger:           NewLogger(nil),
		metricsCollector: NoopMetricsCollector{},
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
