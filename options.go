package respool

import (
	"log/slog"
	"time"

	"github.com/hupe1980/respool/objectpool"
)

type options struct {
	metricsCollector MetricsCollector
	logger           *Logger
	now              func() time.Time
	objects          *objectpool.Pool
}

// Option configures Pool construction.
type Option func(*options)

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &respool.BasicMetricsCollector{}
//	p, _ := respool.New(respool.DefaultConfig(), respool.WithMetricsCollector(metrics))
//	// ... use p ...
//	stats := metrics.GetStats()
//	fmt.Printf("Loads: %d, Avg latency: %dns\n", stats.Loads, stats.LoadAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := respool.NewJSONLogger(slog.LevelInfo)
//	p, _ := respool.New(cfg, respool.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
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

// WithClock replaces time.Now as the source of access and idle timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithObjectPool attaches the wrapper pool whose per-kind counts are
// reported in Stats.PooledByKind. Without it New creates one from
// Config.ObjectPoolCaps, available via Pool.Objects.
func WithObjectPool(op *objectpool.Pool) Option {
	return func(o *options) {
		o.objects = op
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		now:              time.Now,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

// DefaultPriority is the priority of entries created without Priority.
const DefaultPriority = 1

type createOptions struct {
	priority int
	exempt   bool
}

// CreateOption configures a single GetOrCreate call. The options only apply
// when the call starts the creation; joiners and hits ignore them.
type CreateOption func(*createOptions)

// Priority sets the eviction priority of the created entry.
// Higher values are more resistant to eviction.
func Priority(p int) CreateOption {
	return func(o *createOptions) {
		o.priority = p
	}
}

// Exempt protects the created entry from pressure and entry-limit eviction.
// It is still removed by Dispose, Close and, if enabled, the hard sweep.
func Exempt() CreateOption {
	return func(o *createOptions) {
		o.exempt = true
	}
}

func applyCreateOptions(optFns []CreateOption) createOptions {
	o := createOptions{priority: DefaultPriority}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
