package worker

import (
	"github.com/okian/kala/pkg/logger"
)

// settings are shared by a pool and the workers it creates.
type settings struct {
	name   string
	logger logger.Logger
}

// Option configures a pool and its workers.
type Option func(*settings)

// WithName sets the pool name used in logs. Workers log as "<name>.worker-<i>".
func WithName(name string) Option {
	return func(s *settings) {
		if name != "" {
			s.name = name
		}
	}
}

// WithLogger sets the logger the pool and workers derive their named loggers from.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

func newSettings(opts []Option) settings {
	s := settings{name: "dispatcher", logger: logger.Nop()}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
