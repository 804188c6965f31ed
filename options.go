package hprofstream

import "go.uber.org/zap"

// Option configures Read. The zero value of every option is inert: Read
// works correctly with no options at all.
type Option func(*config)

type config struct {
	logger *zap.Logger
}

// WithLogger attaches a structured logger Read uses for debug traces of
// the header and of each record frame. The default is zap.NewNop() —
// silent unless a caller opts in. Superclass-chain warnings come from
// aggregate.Aggregator, which takes its own logger (aggregate.WithLogger).
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

func newConfig(opts []Option) *config {
	c := &config{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
