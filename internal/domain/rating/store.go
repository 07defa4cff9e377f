package rating

//go:generate mockgen -package=mocks -destination=mocks/mock_store.go github.com/okian/kala/internal/domain/rating Store

import (
	"context"
	"time"

	"github.com/okian/kala/internal/domain/model"
)

// Store persists orders, reviews and artist aggregates.
// Missing rows are reported through the bool results; write errors for
// missing rows wrap apperr.ErrNotFound and unique violations wrap apperr.ErrConflict.
type Store interface {
	FindOrder(ctx context.Context, orderID string) (model.Order, bool, error)
	FindReviewByOrder(ctx context.Context, orderID string) (model.Review, bool, error)
	FindReview(ctx context.Context, reviewID string) (model.Review, bool, error)
	// InsertReview fails with apperr.ErrConflict when the order already has a review.
	InsertReview(ctx context.Context, r model.Review) error
	SetReviewActive(ctx context.Context, reviewID string, active bool, at time.Time) error
	SetReviewReported(ctx context.Context, reviewID string, at time.Time) error
	// ActiveRatings returns the star values of every active review for the artist.
	ActiveRatings(ctx context.Context, artistID string) ([]int, error)
	// ListActiveReviews returns active reviews newest first, plus the active total.
	ListActiveReviews(ctx context.Context, artistID string, offset, limit int) ([]model.Review, int, error)
	UpdateArtistRating(ctx context.Context, r model.ArtistRating) error
	FindArtistRating(ctx context.Context, artistID string) (model.ArtistRating, bool, error)
}
