package leaderboard

import (
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/okian/kala/internal/domain/keylock"
	"github.com/okian/kala/internal/domain/model"
	"github.com/okian/kala/pkg/logger"
)

// Option configures a Service.
type Option func(*Service)

// WithPageSizes sets the default and maximum page sizes for Leaderboard.
func WithPageSizes(defaultSize, maxSize int) Option {
	return func(s *Service) {
		if maxSize > 0 {
			s.maxPageSize = maxSize
		}
		if defaultSize > 0 {
			s.defaultPageSize = defaultSize
		}
		s.defaultPageSize = min(s.defaultPageSize, s.maxPageSize)
	}
}

// WithPublisher sets where score.recorded events go.
func WithPublisher(p model.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTracer sets the tracer used for spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithClock overrides time.Now for LastActive.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocker shares a per-key locker with other components.
func WithLocker(l *keylock.Locker) Option {
	return func(s *Service) {
		if l != nil {
			s.locks = l
		}
	}
}
