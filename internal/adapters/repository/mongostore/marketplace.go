package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/okian/kala/internal/domain/apperr"
	"github.com/okian/kala/internal/domain/marketplace"
	"github.com/okian/kala/internal/domain/model"
	"github.com/okian/kala/internal/domain/rating"
)

var (
	_ rating.Store      = (*MarketplaceStore)(nil)
	_ marketplace.Store = (*MarketplaceStore)(nil)
)

type orderDoc struct {
	ID         string    `bson:"_id"`
	CustomerID string    `bson:"customerId"`
	ArtistID   string    `bson:"artistId"`
	ArtworkID  string    `bson:"artworkId"`
	Status     string    `bson:"status"`
	Amount     int64     `bson:"amount"`
	CreatedAt  time.Time `bson:"createdAt"`
	UpdatedAt  time.Time `bson:"updatedAt"`
}

func (d orderDoc) model() model.Order {
	return model.Order{
		ID:         d.ID,
		CustomerID: d.CustomerID,
		ArtistID:   d.ArtistID,
		ArtworkID:  d.ArtworkID,
		Status:     model.OrderStatus(d.Status),
		Amount:     d.Amount,
		CreatedAt:  d.CreatedAt.UTC(),
		UpdatedAt:  d.UpdatedAt.UTC(),
	}
}

type reviewDoc struct {
	ID         string    `bson:"_id"`
	OrderID    string    `bson:"orderId"`
	ArtistID   string    `bson:"artistId"`
	ArtworkID  string    `bson:"artworkId"`
	CustomerID string    `bson:"customerId"`
	Rating     int       `bson:"rating"`
	Title      string    `bson:"title"`
	Comment    string    `bson:"comment"`
	Images     []string  `bson:"images"`
	IsActive   bool      `bson:"isActive"`
	Reported   bool      `bson:"reported"`
	CreatedAt  time.Time `bson:"createdAt"`
	UpdatedAt  time.Time `bson:"updatedAt"`
}

func reviewDocOf(r model.Review) reviewDoc {
	return reviewDoc{
		ID: r.ID, OrderID: r.OrderID, ArtistID: r.ArtistID, ArtworkID: r.ArtworkID,
		CustomerID: r.CustomerID, Rating: r.Rating, Title: r.Title, Comment: r.Comment,
		Images: r.Images, IsActive: r.IsActive, Reported: r.Reported,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func (d reviewDoc) model() model.Review {
	return model.Review{
		ID: d.ID, OrderID: d.OrderID, ArtistID: d.ArtistID, ArtworkID: d.ArtworkID,
		CustomerID: d.CustomerID, Rating: d.Rating, Title: d.Title, Comment: d.Comment,
		Images: d.Images, IsActive: d.IsActive, Reported: d.Reported,
		CreatedAt: d.CreatedAt.UTC(), UpdatedAt: d.UpdatedAt.UTC(),
	}
}

type artistRatingDoc struct {
	ArtistID     string `bson:"_id"`
	Tenths       int    `bson:"tenths"`
	TotalReviews int    `bson:"totalReviews"`
}

// MarketplaceStore implements rating.Store and marketplace.Store.
// The unique index on reviews.orderId enforces one review per order.
type MarketplaceStore struct {
	db *DB
}

func NewMarketplaceStore(db *DB) *MarketplaceStore {
	return &MarketplaceStore{db: db}
}

// InsertOrder implements marketplace.Store.
func (s *MarketplaceStore) InsertOrder(ctx context.Context, o model.Order) (err error) {
	defer observe("insert_order", time.Now(), &err)
	doc := orderDoc{
		ID: o.ID, CustomerID: o.CustomerID, ArtistID: o.ArtistID, ArtworkID: o.ArtworkID,
		Status: string(o.Status), Amount: o.Amount, CreatedAt: o.CreatedAt, UpdatedAt: o.UpdatedAt,
	}
	if _, err = s.db.Orders().InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("order %s: %w", o.ID, apperr.ErrConflict)
		}
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

// FindOrder implements rating.Store and marketplace.Store.
func (s *MarketplaceStore) FindOrder(ctx context.Context, orderID string) (_ model.Order, _ bool, err error) {
	defer observe("find_order", time.Now(), &err)
	var doc orderDoc
	err = s.db.Orders().FindOne(ctx, bson.M{"_id": orderID}).Decode(&doc)
	if notFound(err) {
		return model.Order{}, false, nil
	}
	if err != nil {
		return model.Order{}, false, fmt.Errorf("failed to find order: %w", err)
	}
	return doc.model(), true, nil
}

// UpdateOrderStatus implements marketplace.Store as a compare-and-set on status.
func (s *MarketplaceStore) UpdateOrderStatus(ctx context.Context, orderID string, from, to model.OrderStatus, at time.Time) (_ model.Order, err error) {
	defer observe("update_order_status", time.Now(), &err)
	var doc orderDoc
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err = s.db.Orders().FindOneAndUpdate(ctx,
		bson.M{"_id": orderID, "status": string(from)},
		bson.M{"$set": bson.M{"status": string(to), "updatedAt": at}},
		opts,
	).Decode(&doc)
	if notFound(err) {
		_, found, ferr := s.FindOrder(ctx, orderID)
		switch {
		case ferr != nil:
			return model.Order{}, ferr
		case !found:
			return model.Order{}, fmt.Errorf("order %s: %w", orderID, apperr.ErrNotFound)
		default:
			return model.Order{}, fmt.Errorf("order %s is not %s: %w", orderID, from, apperr.ErrConflict)
		}
	}
	if err != nil {
		return model.Order{}, fmt.Errorf("failed to update order: %w", err)
	}
	return doc.model(), nil
}

func (s *MarketplaceStore) findReview(ctx context.Context, filter bson.M) (model.Review, bool, error) {
	var doc reviewDoc
	err := s.db.Reviews().FindOne(ctx, filter).Decode(&doc)
	if notFound(err) {
		return model.Review{}, false, nil
	}
	if err != nil {
		return model.Review{}, false, fmt.Errorf("failed to find review: %w", err)
	}
	return doc.model(), true, nil
}

// FindReviewByOrder implements rating.Store.
func (s *MarketplaceStore) FindReviewByOrder(ctx context.Context, orderID string) (_ model.Review, _ bool, err error) {
	defer observe("find_review_by_order", time.Now(), &err)
	return s.findReview(ctx, bson.M{"orderId": orderID})
}

// FindReview implements rating.Store.
func (s *MarketplaceStore) FindReview(ctx context.Context, reviewID string) (_ model.Review, _ bool, err error) {
	defer observe("find_review", time.Now(), &err)
	return s.findReview(ctx, bson.M{"_id": reviewID})
}

// InsertReview implements rating.Store.
func (s *MarketplaceStore) InsertReview(ctx context.Context, r model.Review) (err error) {
	defer observe("insert_review", time.Now(), &err)
	if _, err = s.db.Reviews().InsertOne(ctx, reviewDocOf(r)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("review for order %s: %w", r.OrderID, apperr.ErrConflict)
		}
		return fmt.Errorf("failed to insert review: %w", err)
	}
	return nil
}

func (s *MarketplaceStore) setReview(ctx context.Context, reviewID string, set bson.M) error {
	res, err := s.db.Reviews().UpdateOne(ctx, bson.M{"_id": reviewID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update review: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("review %s: %w", reviewID, apperr.ErrNotFound)
	}
	return nil
}

// SetReviewActive implements rating.Store.
func (s *MarketplaceStore) SetReviewActive(ctx context.Context, reviewID string, active bool, at time.Time) (err error) {
	defer observe("set_review_active", time.Now(), &err)
	return s.setReview(ctx, reviewID, bson.M{"isActive": active, "updatedAt": at})
}

// SetReviewReported implements rating.Store.
func (s *MarketplaceStore) SetReviewReported(ctx context.Context, reviewID string, at time.Time) (err error) {
	defer observe("set_review_reported", time.Now(), &err)
	return s.setReview(ctx, reviewID, bson.M{"reported": true, "updatedAt": at})
}

// ActiveRatings implements rating.Store.
func (s *MarketplaceStore) ActiveRatings(ctx context.Context, artistID string) (_ []int, err error) {
	defer observe("active_ratings", time.Now(), &err)
	opts := options.Find().SetProjection(bson.M{"rating": 1})
	cursor, err := s.db.Reviews().Find(ctx, bson.M{"artistId": artistID, "isActive": true}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query ratings: %w", err)
	}
	var docs []struct {
		Rating int `bson:"rating"`
	}
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode ratings: %w", err)
	}
	out := make([]int, len(docs))
	for i, d := range docs {
		out[i] = d.Rating
	}
	return out, nil
}

// ListActiveReviews implements rating.Store.
func (s *MarketplaceStore) ListActiveReviews(ctx context.Context, artistID string, offset, limit int) (_ []model.Review, _ int, err error) {
	defer observe("list_active_reviews", time.Now(), &err)
	filter := bson.M{"artistId": artistID, "isActive": true}
	total, err := s.db.Reviews().CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count reviews: %w", err)
	}
	if int64(offset) >= total {
		return []model.Review{}, int(total), nil
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cursor, err := s.db.Reviews().Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reviews: %w", err)
	}
	var docs []reviewDoc
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("failed to decode reviews: %w", err)
	}
	out := make([]model.Review, len(docs))
	for i, d := range docs {
		out[i] = d.model()
	}
	return out, int(total), nil
}

// UpdateArtistRating implements rating.Store.
func (s *MarketplaceStore) UpdateArtistRating(ctx context.Context, r model.ArtistRating) (err error) {
	defer observe("update_artist_rating", time.Now(), &err)
	doc := artistRatingDoc{ArtistID: r.ArtistID, Tenths: r.Tenths, TotalReviews: r.TotalReviews}
	_, err = s.db.ArtistRatings().ReplaceOne(ctx, bson.M{"_id": r.ArtistID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save artist rating: %w", err)
	}
	return nil
}

// FindArtistRating implements rating.Store.
func (s *MarketplaceStore) FindArtistRating(ctx context.Context, artistID string) (_ model.ArtistRating, _ bool, err error) {
	defer observe("find_artist_rating", time.Now(), &err)
	var doc artistRatingDoc
	err = s.db.ArtistRatings().FindOne(ctx, bson.M{"_id": artistID}).Decode(&doc)
	if notFound(err) {
		return model.ArtistRating{}, false, nil
	}
	if err != nil {
		return model.ArtistRating{}, false, fmt.Errorf("failed to find artist rating: %w", err)
	}
	return model.ArtistRating{ArtistID: doc.ArtistID, Tenths: doc.Tenths, TotalReviews: doc.TotalReviews}, true, nil
}
