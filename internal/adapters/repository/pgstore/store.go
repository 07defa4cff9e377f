// Package pgstore keeps the marketplace in PostgreSQL through bun.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	pgmigrations "github.com/okian/kala/internal/adapters/repository/pgstore/migrations"
	"github.com/okian/kala/internal/domain/apperr"
	"github.com/okian/kala/internal/domain/marketplace"
	"github.com/okian/kala/internal/domain/model"
	"github.com/okian/kala/internal/domain/rating"
	"github.com/okian/kala/pkg/metrics"
)

const (
	backend             = "postgres"
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

var (
	_ rating.Store      = (*MarketplaceStore)(nil)
	_ marketplace.Store = (*MarketplaceStore)(nil)
)

// Open connects with pgdriver and pings the server.
func Open(ctx context.Context, dsn string) (*bun.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return db, nil
}

// NewMigrator returns a migrator over the marketplace migrations.
func NewMigrator(db *bun.DB) *migrate.Migrator {
	return migrate.NewMigrator(db, pgmigrations.Migrations)
}

// Migrate creates the migration tables if needed and applies pending migrations.
func Migrate(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	m := NewMigrator(db)
	if err := m.Init(ctx); err != nil {
		return nil, fmt.Errorf("init migrations: %w", err)
	}
	group, err := m.Migrate(ctx)
	if err != nil {
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return group, nil
}

func pgCode(err error) string {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C')
	}
	return ""
}

func observe(op string, start time.Time, err *error) {
	metrics.RecordStoreLatency(backend, op, float64(time.Since(start).Microseconds())/1000)
	if *err != nil && apperr.Kind(*err) == nil {
		metrics.RecordStoreError(backend, op)
	}
}

// MarketplaceStore implements rating.Store and marketplace.Store.
// reviews.order_id is UNIQUE, so a second review for an order fails in the database.
type MarketplaceStore struct {
	db bun.IDB
}

func NewMarketplaceStore(db bun.IDB) *MarketplaceStore {
	return &MarketplaceStore{db: db}
}

// InsertOrder implements marketplace.Store.
func (s *MarketplaceStore) InsertOrder(ctx context.Context, o model.Order) (err error) {
	defer observe("insert_order", time.Now(), &err)
	if _, err = s.db.NewInsert().Model(orderRowOf(o)).Exec(ctx); err != nil {
		if pgCode(err) == uniqueViolation {
			return fmt.Errorf("order %s: %w", o.ID, apperr.ErrConflict)
		}
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

// FindOrder implements rating.Store and marketplace.Store.
func (s *MarketplaceStore) FindOrder(ctx context.Context, orderID string) (_ model.Order, _ bool, err error) {
	defer observe("find_order", time.Now(), &err)
	row := new(orderRow)
	err = s.db.NewSelect().Model(row).Where("id = ?", orderID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Order{}, false, nil
	}
	if err != nil {
		return model.Order{}, false, fmt.Errorf("failed to find order: %w", err)
	}
	return row.model(), true, nil
}

// UpdateOrderStatus implements marketplace.Store as a compare-and-set on status.
func (s *MarketplaceStore) UpdateOrderStatus(ctx context.Context, orderID string, from, to model.OrderStatus, at time.Time) (_ model.Order, err error) {
	defer observe("update_order_status", time.Now(), &err)
	row := new(orderRow)
	err = s.db.NewUpdate().
		Model(row).
		Set("status = ?", string(to)).
		Set("updated_at = ?", at).
		Where("id = ?", orderID).
		Where("status = ?", string(from)).
		Returning("*").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
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
	return row.model(), nil
}

func (s *MarketplaceStore) findReview(ctx context.Context, column, value string) (model.Review, bool, error) {
	row := new(reviewRow)
	err := s.db.NewSelect().Model(row).Where("? = ?", bun.Ident(column), value).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Review{}, false, nil
	}
	if err != nil {
		return model.Review{}, false, fmt.Errorf("failed to find review: %w", err)
	}
	return row.model(), true, nil
}

// FindReviewByOrder implements rating.Store.
func (s *MarketplaceStore) FindReviewByOrder(ctx context.Context, orderID string) (_ model.Review, _ bool, err error) {
	defer observe("find_review_by_order", time.Now(), &err)
	return s.findReview(ctx, "order_id", orderID)
}

// FindReview implements rating.Store.
func (s *MarketplaceStore) FindReview(ctx context.Context, reviewID string) (_ model.Review, _ bool, err error) {
	defer observe("find_review", time.Now(), &err)
	return s.findReview(ctx, "id", reviewID)
}

// InsertReview implements rating.Store.
func (s *MarketplaceStore) InsertReview(ctx context.Context, r model.Review) (err error) {
	defer observe("insert_review", time.Now(), &err)
	if _, err = s.db.NewInsert().Model(reviewRowOf(r)).Exec(ctx); err != nil {
		switch pgCode(err) {
		case uniqueViolation:
			return fmt.Errorf("review for order %s: %w", r.OrderID, apperr.ErrConflict)
		case foreignKeyViolation:
			return fmt.Errorf("order %s: %w", r.OrderID, apperr.ErrNotFound)
		}
		return fmt.Errorf("failed to insert review: %w", err)
	}
	return nil
}

func (s *MarketplaceStore) updateReview(ctx context.Context, reviewID string, q *bun.UpdateQuery) error {
	res, err := q.Where("id = ?", reviewID).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update review: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("review %s: %w", reviewID, apperr.ErrNotFound)
	}
	return nil
}

// SetReviewActive implements rating.Store.
func (s *MarketplaceStore) SetReviewActive(ctx context.Context, reviewID string, active bool, at time.Time) (err error) {
	defer observe("set_review_active", time.Now(), &err)
	q := s.db.NewUpdate().Model((*reviewRow)(nil)).Set("is_active = ?", active).Set("updated_at = ?", at)
	return s.updateReview(ctx, reviewID, q)
}

// SetReviewReported implements rating.Store.
func (s *MarketplaceStore) SetReviewReported(ctx context.Context, reviewID string, at time.Time) (err error) {
	defer observe("set_review_reported", time.Now(), &err)
	q := s.db.NewUpdate().Model((*reviewRow)(nil)).Set("reported = TRUE").Set("updated_at = ?", at)
	return s.updateReview(ctx, reviewID, q)
}

// ActiveRatings implements rating.Store.
func (s *MarketplaceStore) ActiveRatings(ctx context.Context, artistID string) (_ []int, err error) {
	defer observe("active_ratings", time.Now(), &err)
	ratings := []int{}
	err = s.db.NewSelect().
		Model((*reviewRow)(nil)).
		Column("rating").
		Where("artist_id = ?", artistID).
		Where("is_active").
		Scan(ctx, &ratings)
	if err != nil {
		return nil, fmt.Errorf("failed to query ratings: %w", err)
	}
	return ratings, nil
}

// ListActiveReviews implements rating.Store.
func (s *MarketplaceStore) ListActiveReviews(ctx context.Context, artistID string, offset, limit int) (_ []model.Review, _ int, err error) {
	defer observe("list_active_reviews", time.Now(), &err)
	var rows []reviewRow
	total, err := s.db.NewSelect().
		Model(&rows).
		Where("artist_id = ?", artistID).
		Where("is_active").
		OrderExpr("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reviews: %w", err)
	}
	out := make([]model.Review, len(rows))
	for i := range rows {
		out[i] = rows[i].model()
	}
	return out, total, nil
}

// UpdateArtistRating implements rating.Store.
func (s *MarketplaceStore) UpdateArtistRating(ctx context.Context, r model.ArtistRating) (err error) {
	defer observe("update_artist_rating", time.Now(), &err)
	row := &artistRatingRow{ArtistID: r.ArtistID, Tenths: r.Tenths, TotalReviews: r.TotalReviews}
	_, err = s.db.NewInsert().
		Model(row).
		On("CONFLICT (artist_id) DO UPDATE").
		Set("tenths = EXCLUDED.tenths").
		Set("total_reviews = EXCLUDED.total_reviews").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to save artist rating: %w", err)
	}
	return nil
}

// FindArtistRating implements rating.Store.
func (s *MarketplaceStore) FindArtistRating(ctx context.Context, artistID string) (_ model.ArtistRating, _ bool, err error) {
	defer observe("find_artist_rating", time.Now(), &err)
	row := new(artistRatingRow)
	err = s.db.NewSelect().Model(row).Where("artist_id = ?", artistID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ArtistRating{}, false, nil
	}
	if err != nil {
		return model.ArtistRating{}, false, fmt.Errorf("failed to find artist rating: %w", err)
	}
	return model.ArtistRating{ArtistID: row.ArtistID, Tenths: row.Tenths, TotalReviews: row.TotalReviews}, true, nil
}
