package pebble

import "go.uber.org/zap"

// DefaultPageSize is the page size used for total page counts when the
// query does not set a length.
const DefaultPageSize = 25

// Option configures Run.
type Option func(*runConfig)

type runConfig struct {
	concurrentCount bool
	pageSize        int64
	logger          *zap.Logger
}

func newRunConfig(opts []Option) *runConfig {
	c := &runConfig{pageSize: DefaultPageSize}
	for _, o := range opts {
		o(c)
	}
	return c
}

// WithConcurrentCount runs the data and count queries in parallel. The
// backend must tolerate two queries in flight on conn.
func WithConcurrentCount() Option {
	return func(c *runConfig) {
		c.concurrentCount = true
	}
}

// WithDefaultPageSize replaces DefaultPageSize. Non-positive values are ignored.
func WithDefaultPageSize(n int) Option {
	return func(c *runConfig) {
		if n > 0 {
			c.pageSize = int64(n)
		}
	}
}

// WithLogger logs compiled statements at debug level. Without it the
// logger carried by the context is used.
func WithLogger(l *zap.Logger) Option {
	return func(c *runConfig) {
		c.logger = l
	}
}
