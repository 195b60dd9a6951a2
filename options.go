package recgo

import (
	"log/slog"
	"time"

	"github.com/hupe1980/recgo/codec"
	"github.com/hupe1980/recgo/download"
	"github.com/hupe1980/recgo/validate"
)

type options struct {
	codec            codec.Codec
	validator        validate.Validator
	downloader       download.Downloader
	metricsCollector MetricsCollector
	logger           *Logger
	clock            func() time.Time
}

// Option configures a Store.
type Option func(*options)

// WithCodec configures the codec used to encode and decode persisted payloads.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithValidator replaces the built-in validator.
//
// If nil is passed, validate.Default is used.
func WithValidator(v validate.Validator) Option {
	return func(o *options) {
		if v == nil {
			v = validate.Default{}
		}
		o.validator = v
	}
}

// WithDownloader configures the collaborator that loads the raw content of
// file fields during include resolution. Without a downloader, included
// file records carry no rawData.
func WithDownloader(d download.Downloader) Option {
	return func(o *options) {
		o.downloader = d
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &recgo.BasicMetricsCollector{}
//	store, _ := recgo.New(p, recgo.WithMetricsCollector(metrics))
//	// ... use store ...
//	stats := metrics.GetStats()
//	fmt.Printf("Lists: %d, index hits: %d\n", stats.ListCount, stats.IndexHits)
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
//	logger := recgo.NewJSONLogger(slog.LevelInfo)
//	store, _ := recgo.New(p, recgo.WithLogger(logger))
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

// WithClock sets the time source of createdAt and updatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now == nil {
			now = time.Now
		}
		o.clock = now
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		codec:            codec.Default,
		validator:        validate.Default{},
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		clock:            time.Now,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
