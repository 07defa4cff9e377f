// Package rating keeps each artist's displayed rating equal to the rounded
// mean of their active reviews.
//
// A review attaches to exactly one delivered order. Every attach and every
// deactivation recomputes the artist aggregate synchronously, under a
// per-artist lock, so readers never see a stale rating after a write returns.
package rating

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/kala/internal/domain/apperr"
	"github.com/okian/kala/internal/domain/keylock"
	"github.com/okian/kala/internal/domain/model"
	"github.com/okian/kala/pkg/logger"
	"github.com/okian/kala/pkg/metrics"
)

const (
	MinRating = 1
	MaxRating = 5

	maxTitleLen   = 120
	maxCommentLen = 2000
	maxImages     = 5

	defaultPageSize = 10
	maxPageSize     = 100
)

// ReviewInput is a customer's review of one order.
// ArtistID and ArtworkID are optional; when set they must match the order.
type ReviewInput struct {
	OrderID    string
	CustomerID string
	ArtistID   string
	ArtworkID  string
	Rating     int
	Title      string
	Comment    string
	Images     []string
}

func (in ReviewInput) validate() error {
	switch {
	case in.Rating < MinRating || in.Rating > MaxRating:
		return ErrInvalidRating
	case in.OrderID == "" || in.CustomerID == "":
		return ErrInvalidReview
	case len(in.Title) > maxTitleLen || len(in.Comment) > maxCommentLen || len(in.Images) > maxImages:
		return ErrReviewTooLarge
	}
	return nil
}

// ReviewPage is one slice of an artist's active reviews.
type ReviewPage struct {
	Reviews []model.Review
	Total   int
	Limit   int
	Offset  int
}

// Service attaches and moderates reviews and maintains artist aggregates.
type Service struct {
	store           Store
	locks           *keylock.Locker
	publisher       model.Publisher
	logger          logger.Logger
	tracer          trace.Tracer
	now             func() time.Time
	newID           func() string
	defaultPageSize int
	maxPageSize     int
}

// New creates a rating service over store.
func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:           store,
		locks:           keylock.New(0),
		logger:          logger.Nop(),
		tracer:          otel.Tracer("github.com/okian/kala/internal/domain/rating"),
		now:             time.Now,
		newID:           uuid.NewString,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func artistKey(artistID string) string { return "artist:" + artistID }

// AttachReview validates the review against its order, stores it and
// recomputes the artist rating. Checks run in order: input, order existence,
// eligibility, uniqueness. A failed check leaves the artist rating untouched.
func (s *Service) AttachReview(ctx context.Context, in ReviewInput) (model.Review, model.ArtistRating, error) {
	ctx, span := s.tracer.Start(ctx, "Rating.AttachReview",
		trace.WithAttributes(attribute.String("order_id", in.OrderID), attribute.Int("rating", in.Rating)))
	defer span.End()

	review, agg, err := s.attach(ctx, in)
	if err != nil {
		metrics.RecordReviewRejected(apperr.Label(err))
		span.SetStatus(codes.Error, err.Error())
		if apperr.Kind(err) == nil {
			span.RecordError(err)
			s.logger.Error(ctx, "attach review failed", logger.String("order_id", in.OrderID), logger.Error(err))
		}
		return model.Review{}, model.ArtistRating{}, err
	}

	metrics.RecordReviewAttached()
	s.logger.Info(ctx, "review attached",
		logger.String("review_id", review.ID),
		logger.String("artist_id", agg.ArtistID),
		logger.String("rating", agg.String()),
		logger.Int("total_reviews", agg.TotalReviews),
	)
	s.publishRating(ctx, agg, "review.attached")
	return review, agg, nil
}

func (s *Service) attach(ctx context.Context, in ReviewInput) (model.Review, model.ArtistRating, error) {
	if err := in.validate(); err != nil {
		return model.Review{}, model.ArtistRating{}, err
	}

	order, found, err := s.store.FindOrder(ctx, in.OrderID)
	if err != nil {
		return model.Review{}, model.ArtistRating{}, fmt.Errorf("find order %s: %w", in.OrderID, err)
	}
	if !found {
		return model.Review{}, model.ArtistRating{}, ErrOrderNotFound
	}
	if !eligible(order, in) {
		return model.Review{}, model.ArtistRating{}, ErrOrderNotEligible
	}

	var (
		review model.Review
		agg    model.ArtistRating
	)
	err = s.locks.Do(artistKey(order.ArtistID), func() error {
		if _, exists, err := s.store.FindReviewByOrder(ctx, order.ID); err != nil {
			return fmt.Errorf("find review for order %s: %w", order.ID, err)
		} else if exists {
			s.repair(ctx, order.ArtistID)
			return ErrReviewAlreadyExists
		}

		now := s.now()
		review = model.Review{
			ID:         s.newID(),
			OrderID:    order.ID,
			ArtistID:   order.ArtistID,
			ArtworkID:  order.ArtworkID,
			CustomerID: in.CustomerID,
			Rating:     in.Rating,
			Title:      in.Title,
			Comment:    in.Comment,
			Images:     append([]string(nil), in.Images...),
			IsActive:   true,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.store.InsertReview(ctx, review); err != nil {
			if errors.Is(err, apperr.ErrConflict) {
				s.repair(ctx, order.ArtistID)
				return ErrReviewAlreadyExists
			}
			return fmt.Errorf("insert review: %w", err)
		}

		// The review is stored even if this fails; a retry hits the
		// existing-review path, which rewrites the aggregate.
		updated, err := s.recompute(ctx, order.ArtistID)
		agg = updated
		return err
	})
	if err != nil {
		return model.Review{}, model.ArtistRating{}, err
	}
	return review, agg, nil
}

func eligible(order model.Order, in ReviewInput) bool {
	switch {
	case order.CustomerID != in.CustomerID:
		return false
	case order.Status != model.OrderDelivered:
		return false
	case in.ArtistID != "" && in.ArtistID != order.ArtistID:
		return false
	case in.ArtworkID != "" && in.ArtworkID != order.ArtworkID:
		return false
	}
	return true
}

// DeactivateReview hides a review from the aggregate and recomputes it.
// Deactivating an inactive review only recomputes.
func (s *Service) DeactivateReview(ctx context.Context, reviewID string) (model.ArtistRating, error) {
	ctx, span := s.tracer.Start(ctx, "Rating.DeactivateReview", trace.WithAttributes(attribute.String("review_id", reviewID)))
	defer span.End()

	review, found, err := s.store.FindReview(ctx, reviewID)
	if err != nil {
		span.RecordError(err)
		return model.ArtistRating{}, fmt.Errorf("find review %s: %w", reviewID, err)
	}
	if !found {
		return model.ArtistRating{}, ErrReviewNotFound
	}

	var agg model.ArtistRating
	err = s.locks.Do(artistKey(review.ArtistID), func() error {
		if err := s.store.SetReviewActive(ctx, reviewID, false, s.now()); err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return ErrReviewNotFound
			}
			return fmt.Errorf("deactivate review %s: %w", reviewID, err)
		}
		updated, err := s.recompute(ctx, review.ArtistID)
		agg = updated
		return err
	})
	if err != nil {
		span.RecordError(err)
		return model.ArtistRating{}, err
	}

	metrics.RecordReviewDeactivated()
	s.logger.Info(ctx, "review deactivated",
		logger.String("review_id", reviewID),
		logger.String("artist_id", agg.ArtistID),
		logger.String("rating", agg.String()),
	)
	s.publishRating(ctx, agg, "review.deactivated")
	return agg, nil
}

// ReportReview flags a review for moderation. The rating is unaffected.
func (s *Service) ReportReview(ctx context.Context, reviewID string) (model.Review, error) {
	ctx, span := s.tracer.Start(ctx, "Rating.ReportReview", trace.WithAttributes(attribute.String("review_id", reviewID)))
	defer span.End()

	if err := s.store.SetReviewReported(ctx, reviewID, s.now()); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return model.Review{}, ErrReviewNotFound
		}
		return model.Review{}, fmt.Errorf("report review %s: %w", reviewID, err)
	}
	review, found, err := s.store.FindReview(ctx, reviewID)
	if err != nil {
		return model.Review{}, fmt.Errorf("find review %s: %w", reviewID, err)
	}
	if !found {
		return model.Review{}, ErrReviewNotFound
	}
	metrics.RecordReviewReported()
	return review, nil
}

// ArtistRating returns the stored aggregate; artists without reviews rate 0.0 over 0 reviews.
func (s *Service) ArtistRating(ctx context.Context, artistID string) (model.ArtistRating, error) {
	agg, found, err := s.store.FindArtistRating(ctx, artistID)
	if err != nil {
		return model.ArtistRating{}, fmt.Errorf("find artist rating %s: %w", artistID, err)
	}
	if !found {
		return model.ArtistRating{ArtistID: artistID}, nil
	}
	return agg, nil
}

// ListArtistReviews pages through an artist's active reviews, newest first.
func (s *Service) ListArtistReviews(ctx context.Context, artistID string, limit, offset int) (ReviewPage, error) {
	if limit <= 0 {
		limit = s.defaultPageSize
	}
	limit = min(limit, s.maxPageSize)
	offset = max(offset, 0)

	reviews, total, err := s.store.ListActiveReviews(ctx, artistID, offset, limit)
	if err != nil {
		return ReviewPage{}, fmt.Errorf("list reviews for %s: %w", artistID, err)
	}
	if reviews == nil {
		reviews = []model.Review{}
	}
	return ReviewPage{Reviews: reviews, Total: total, Limit: limit, Offset: offset}, nil
}

// Distribution counts active reviews per star value; index 0 is one star.
func (s *Service) Distribution(ctx context.Context, artistID string) ([MaxRating]int, error) {
	var dist [MaxRating]int
	ratings, err := s.store.ActiveRatings(ctx, artistID)
	if err != nil {
		return dist, fmt.Errorf("active ratings for %s: %w", artistID, err)
	}
	for _, r := range ratings {
		if r >= MinRating && r <= MaxRating {
			dist[r-MinRating]++
		}
	}
	return dist, nil
}

// recompute must run under the artist lock.
func (s *Service) recompute(ctx context.Context, artistID string) (model.ArtistRating, error) {
	start := time.Now()
	ratings, err := s.store.ActiveRatings(ctx, artistID)
	if err != nil {
		return model.ArtistRating{}, fmt.Errorf("active ratings for %s: %w", artistID, err)
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	agg := model.ArtistRating{
		ArtistID:     artistID,
		Tenths:       RoundedTenths(sum, len(ratings)),
		TotalReviews: len(ratings),
	}
	if err := s.store.UpdateArtistRating(ctx, agg); err != nil {
		return model.ArtistRating{}, fmt.Errorf("update artist rating %s: %w", artistID, err)
	}
	metrics.RecordRatingRecompute(float64(time.Since(start).Microseconds()) / 1000)
	return agg, nil
}

// repair rewrites the aggregate from the active reviews so an earlier failed
// recompute does not stay visible. Must run under the artist lock.
func (s *Service) repair(ctx context.Context, artistID string) {
	if _, err := s.recompute(ctx, artistID); err != nil {
		s.logger.Warn(ctx, "artist rating repair failed", logger.String("artist_id", artistID), logger.Error(err))
	}
}

func (s *Service) publishRating(ctx context.Context, agg model.ArtistRating, cause string) {
	if s.publisher == nil {
		return
	}
	ev := model.Event{
		Topic:      model.TopicArtistRatingUpdated,
		Key:        agg.ArtistID,
		OccurredAt: s.now(),
		Data: model.ArtistRatingUpdated{
			ArtistID:     agg.ArtistID,
			Rating:       agg.Value(),
			TotalReviews: agg.TotalReviews,
			Cause:        cause,
		},
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn(ctx, "publish event failed", logger.String("topic", ev.Topic), logger.Error(err))
	}
}

// RoundedTenths is sum/count rounded half up to one decimal, returned in tenths.
// Zero reviews give 0.
func RoundedTenths(sum, count int) int {
	if count <= 0 {
		return 0
	}
	return (20*sum + count) / (2 * count)
}
