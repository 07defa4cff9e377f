package api

import (
	"net/http"
	"time"

	"github.com/okian/kala/internal/adapters/http/auth"
	"github.com/okian/kala/pkg/logger"
)

// Option configures a Server.
type Option func(*Server)

// WithLiveHandler mounts the websocket feed at /ws/leaderboard.
func WithLiveHandler(h http.Handler) Option {
	return func(s *Server) {
		s.live = h
	}
}

// WithRateLimiter bounds write requests per client IP.
func WithRateLimiter(l *auth.IPRateLimiter) Option {
	return func(s *Server) {
		s.limiter = l
	}
}

// WithCORSOrigins sets the allowed CORS origins.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.corsOrigins = origins
		}
	}
}

// WithLogger sets the server logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the time source used for export timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}
