package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/okian/kala/internal/domain/apperr"
	"github.com/okian/kala/internal/domain/marketplace"
	"github.com/okian/kala/internal/domain/model"
	"github.com/okian/kala/internal/domain/rating"
)

var (
	_ rating.Store      = (*MarketplaceStore)(nil)
	_ marketplace.Store = (*MarketplaceStore)(nil)
)

// MarketplaceStore keeps orders, reviews and artist aggregates in maps.
// reviewsByOrder enforces at most one review per order.
type MarketplaceStore struct {
	mu              sync.RWMutex
	orders          map[string]model.Order
	reviews         map[string]model.Review
	reviewsByOrder  map[string]string
	reviewsByArtist map[string][]string
	ratings         map[string]model.ArtistRating
}

// NewMarketplaceStore returns an empty store.
func NewMarketplaceStore() *MarketplaceStore {
	return &MarketplaceStore{
		orders:          make(map[string]model.Order),
		reviews:         make(map[string]model.Review),
		reviewsByOrder:  make(map[string]string),
		reviewsByArtist: make(map[string][]string),
		ratings:         make(map[string]model.ArtistRating),
	}
}

func cloneReview(r model.Review) model.Review {
	r.Images = slices.Clone(r.Images)
	return r
}

// InsertOrder implements marketplace.Store.
func (s *MarketplaceStore) InsertOrder(_ context.Context, o model.Order) error {
	defer observe("insert_order", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[o.ID]; ok {
		return fmt.Errorf("order %s: %w", o.ID, apperr.ErrConflict)
	}
	s.orders[o.ID] = o
	return nil
}

// FindOrder implements rating.Store and marketplace.Store.
func (s *MarketplaceStore) FindOrder(_ context.Context, orderID string) (model.Order, bool, error) {
	defer observe("find_order", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[orderID]
	return o, ok, nil
}

// UpdateOrderStatus implements marketplace.Store.
func (s *MarketplaceStore) UpdateOrderStatus(_ context.Context, orderID string, from, to model.OrderStatus, at time.Time) (model.Order, error) {
	defer observe("update_order_status", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return model.Order{}, fmt.Errorf("order %s: %w", orderID, apperr.ErrNotFound)
	}
	if o.Status != from {
		return model.Order{}, fmt.Errorf("order %s is %s, not %s: %w", orderID, o.Status, from, apperr.ErrConflict)
	}
	o.Status = to
	o.UpdatedAt = at
	s.orders[orderID] = o
	return o, nil
}

// FindReviewByOrder implements rating.Store.
func (s *MarketplaceStore) FindReviewByOrder(_ context.Context, orderID string) (model.Review, bool, error) {
	defer observe("find_review_by_order", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.reviewsByOrder[orderID]
	if !ok {
		return model.Review{}, false, nil
	}
	return cloneReview(s.reviews[id]), true, nil
}

// FindReview implements rating.Store.
func (s *MarketplaceStore) FindReview(_ context.Context, reviewID string) (model.Review, bool, error) {
	defer observe("find_review", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reviews[reviewID]
	if !ok {
		return model.Review{}, false, nil
	}
	return cloneReview(r), true, nil
}

// InsertReview implements rating.Store.
func (s *MarketplaceStore) InsertReview(_ context.Context, r model.Review) error {
	defer observe("insert_review", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reviewsByOrder[r.OrderID]; ok {
		return fmt.Errorf("review for order %s: %w", r.OrderID, apperr.ErrConflict)
	}
	if _, ok := s.reviews[r.ID]; ok {
		return fmt.Errorf("review %s: %w", r.ID, apperr.ErrConflict)
	}
	s.reviews[r.ID] = cloneReview(r)
	s.reviewsByOrder[r.OrderID] = r.ID
	s.reviewsByArtist[r.ArtistID] = append(s.reviewsByArtist[r.ArtistID], r.ID)
	return nil
}

func (s *MarketplaceStore) mutateReview(reviewID string, fn func(*model.Review)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reviews[reviewID]
	if !ok {
		return fmt.Errorf("review %s: %w", reviewID, apperr.ErrNotFound)
	}
	fn(&r)
	s.reviews[reviewID] = r
	return nil
}

// SetReviewActive implements rating.Store.
func (s *MarketplaceStore) SetReviewActive(_ context.Context, reviewID string, active bool, at time.Time) error {
	defer observe("set_review_active", time.Now())
	return s.mutateReview(reviewID, func(r *model.Review) {
		r.IsActive = active
		r.UpdatedAt = at
	})
}

// SetReviewReported implements rating.Store.
func (s *MarketplaceStore) SetReviewReported(_ context.Context, reviewID string, at time.Time) error {
	defer observe("set_review_reported", time.Now())
	return s.mutateReview(reviewID, func(r *model.Review) {
		r.Reported = true
		r.UpdatedAt = at
	})
}

// ActiveRatings implements rating.Store.
func (s *MarketplaceStore) ActiveRatings(_ context.Context, artistID string) ([]int, error) {
	defer observe("active_ratings", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]int, 0, len(s.reviewsByArtist[artistID]))
	for _, id := range s.reviewsByArtist[artistID] {
		if r := s.reviews[id]; r.IsActive {
			out = append(out, r.Rating)
		}
	}
	return out, nil
}

// ListActiveReviews implements rating.Store.
func (s *MarketplaceStore) ListActiveReviews(_ context.Context, artistID string, offset, limit int) ([]model.Review, int, error) {
	defer observe("list_active_reviews", time.Now())
	s.mu.RLock()
	ids := s.reviewsByArtist[artistID]
	active := make([]model.Review, 0, len(ids))
	// Newest first: insertion order reversed, CreatedAt as the primary key.
	for i := len(ids) - 1; i >= 0; i-- {
		if r := s.reviews[ids[i]]; r.IsActive {
			active = append(active, cloneReview(r))
		}
	}
	s.mu.RUnlock()

	slices.SortStableFunc(active, func(a, b model.Review) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	total := len(active)
	if offset >= total {
		return []model.Review{}, total, nil
	}
	return active[offset:min(offset+limit, total)], total, nil
}

// UpdateArtistRating implements rating.Store.
func (s *MarketplaceStore) UpdateArtistRating(_ context.Context, r model.ArtistRating) error {
	defer observe("update_artist_rating", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ratings[r.ArtistID] = r
	return nil
}

// FindArtistRating implements rating.Store.
func (s *MarketplaceStore) FindArtistRating(_ context.Context, artistID string) (model.ArtistRating, bool, error) {
	defer observe("find_artist_rating", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.ratings[artistID]
	return r, ok, nil
}
