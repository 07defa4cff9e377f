// Package api exposes the leaderboard and marketplace services over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/okian/kala/internal/adapters/http/auth"
	"github.com/okian/kala/internal/adapters/http/site"
	"github.com/okian/kala/internal/adapters/http/swagger"
	"github.com/okian/kala/internal/domain/apperr"
	"github.com/okian/kala/internal/domain/dedupe"
	"github.com/okian/kala/internal/domain/leaderboard"
	"github.com/okian/kala/internal/domain/model"
	"github.com/okian/kala/internal/domain/marketplace"
	"github.com/okian/kala/internal/domain/rating"
	"github.com/okian/kala/internal/domain/types"
	"github.com/okian/kala/pkg/logger"
	"github.com/okian/kala/pkg/metrics"
)

// IdempotencyHeader carries an optional client-chosen submission key.
const IdempotencyHeader = "Idempotency-Key"

const maxBodyBytes = 1 << 20

// LeaderboardService is what the leaderboard routes need.
type LeaderboardService interface {
	RecordScore(ctx context.Context, sub leaderboard.Submission) (model.Standing, error)
	Leaderboard(ctx context.Context, limit, offset int) (leaderboard.Page, error)
	PlayerRank(ctx context.Context, playerID string) (model.Standing, error)
	Snapshot(ctx context.Context, limit int) ([]model.Standing, error)
}

// OrderService is what the order routes need.
type OrderService interface {
	PlaceOrder(ctx context.Context, actor model.Actor, in marketplace.PlaceOrderInput) (model.Order, error)
	Order(ctx context.Context, actor model.Actor, orderID string) (model.Order, error)
	UpdateOrderStatus(ctx context.Context, actor model.Actor, orderID string, to model.OrderStatus) (model.Order, error)
}

// RatingService is what the review and artist routes need.
type RatingService interface {
	AttachReview(ctx context.Context, in rating.ReviewInput) (model.Review, model.ArtistRating, error)
	DeactivateReview(ctx context.Context, reviewID string) (model.ArtistRating, error)
	ReportReview(ctx context.Context, reviewID string) (model.Review, error)
	ArtistRating(ctx context.Context, artistID string) (model.ArtistRating, error)
	ListArtistReviews(ctx context.Context, artistID string, limit, offset int) (rating.ReviewPage, error)
	Distribution(ctx context.Context, artistID string) ([rating.MaxRating]int, error)
}

// StatsProvider reports service statistics for GET /stats.
type StatsProvider interface {
	GetStats(ctx context.Context) map[string]any
}

// Dependencies bundles the services behind the routes.
type Dependencies struct {
	Leaderboard LeaderboardService
	Orders      OrderService
	Ratings     RatingService
	Deduper     dedupe.Deduper
	Resolver    auth.Resolver
	Stats       StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps        Dependencies
	live        http.Handler
	limiter     *auth.IPRateLimiter
	corsOrigins []string
	logger      logger.Logger
	now         func() time.Time
}

// NewServer creates a server over deps.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		deps:        deps,
		corsOrigins: []string{"*"},
		logger:      logger.Nop(),
		now:         time.Now,
	}
	if s.deps.Resolver == nil {
		s.deps.Resolver = auth.HeaderResolver{}
	}
	if s.deps.Deduper == nil {
		s.deps.Deduper = dedupe.NewInMemoryDeduper()
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", IdempotencyHeader,
			auth.HeaderUserID, auth.HeaderUserName, auth.HeaderUserRole},
		MaxAge: 300,
	}).Handler)
	r.Use(MetricsMiddleware)
	r.Use(auth.Middleware(s.deps.Resolver, func(w http.ResponseWriter, _ *http.Request, err error) {
		writeError(w, WrapKind("api.auth", ErrUnauthorized, err))
	}))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, NewKind("api.route", apperr.ErrNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, types.ErrorResponse{Code: "method_not_allowed", Message: "method not allowed"})
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/stats", s.handleStats)
	if s.live != nil {
		r.Handle("/ws/leaderboard", s.live)
	}
	swagger.Register(r)
	site.Register(r)

	limited := auth.RateLimit(s.limiter, func(w http.ResponseWriter, r *http.Request) {
		metrics.RecordRateLimited(routePattern(r))
		writeError(w, NewKind("api.rate_limit", ErrRateLimited))
	})

	r.Route("/leaderboard", func(r chi.Router) {
		r.Get("/", s.handleGetLeaderboard)
		r.Get("/rank/{playerID}", s.handleGetRank)
		r.Get("/export.xlsx", s.handleExportLeaderboard)
		r.Group(func(r chi.Router) {
			r.Use(requireIdentity)
			r.Get("/me", s.handleGetMyRank)
			r.With(limited).Post("/submit-score", s.handleSubmitScore)
		})
	})

	r.Route("/marketplace", func(r chi.Router) {
		r.Get("/artists/{artistID}/rating", s.handleGetArtistRating)
		r.Get("/artists/{artistID}/reviews", s.handleListArtistReviews)
		r.Get("/artists/{artistID}/rating-chart.png", s.handleRatingChart)

		r.Group(func(r chi.Router) {
			r.Use(requireIdentity)
			r.Get("/orders/{orderID}", s.handleGetOrder)
			r.Group(func(r chi.Router) {
				r.Use(limited)
				r.Post("/orders", s.handlePlaceOrder)
				r.Patch("/orders/{orderID}/status", s.handleUpdateOrderStatus)
				r.Post("/reviews", s.handleCreateReview)
				r.Post("/reviews/{reviewID}/report", s.handleReportReview)
				r.With(requireAdmin).Post("/reviews/{reviewID}/deactivate", s.handleDeactivateReview)
			})
		})
	})
	return r
}

func requireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.FromContext(r.Context()); !ok {
			writeError(w, WrapKind("api.auth", ErrUnauthorized, auth.ErrMissingCredentials))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := auth.FromContext(r.Context())
		if !id.Actor().IsAdmin() {
			writeError(w, NewKind("api.auth", ErrForbidden))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// identity is only called behind requireIdentity.
func identity(r *http.Request) auth.Identity {
	id, _ := auth.FromContext(r.Context())
	return id
}

// claimSubmission records the request's idempotency key. It returns a release
// func to call when the submission fails, and false when the key was already used.
func (s *Server) claimSubmission(r *http.Request, scope string) (func(), bool) {
	key := r.Header.Get(IdempotencyHeader)
	if key == "" {
		return func() {}, true
	}
	id := scope + ":" + identity(r).UserID + ":" + key
	if s.deps.Deduper.SeenAndRecord(r.Context(), id) {
		metrics.RecordDuplicateSubmission(scope)
		return nil, false
	}
	return func() { s.deps.Deduper.Unrecord(r.Context(), id) }, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// pageParams reads limit and offset. Missing values are zero so the service applies its defaults.
func pageParams(r *http.Request) (int, int, error) {
	var limit, offset int
	var err error
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			return 0, 0, errors.New("limit must be an integer")
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if offset, err = strconv.Atoi(raw); err != nil {
			return 0, 0, errors.New("offset must be an integer")
		}
	}
	return limit, offset, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = http.StatusText(status)
	}
	writeJSON(w, status, types.ErrorResponse{Code: code, Message: msg})
}

// writeError logs server-side failures before answering.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if status, _ := classify(err); status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.String("requestId", chimw.GetReqID(r.Context())),
			logger.Error(err),
		)
	}
	writeError(w, err)
}

// classify maps an error to its HTTP status and response code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict, "duplicate_submission"
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	}
	switch apperr.Kind(err) {
	case apperr.ErrValidation:
		return http.StatusBadRequest, "validation_error"
	case apperr.ErrEligibility:
		return http.StatusBadRequest, "not_eligible"
	case apperr.ErrConflict:
		return http.StatusConflict, "conflict"
	case apperr.ErrNotFound:
		return http.StatusNotFound, "not_found"
	case apperr.ErrForbidden:
		return http.StatusForbidden, "forbidden"
	}
	return http.StatusInternalServerError, "internal_error"
}
