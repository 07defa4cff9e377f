//go:build integration

package pgstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"

	"github.com/okian/kala/internal/domain/apperr"
	"github.com/okian/kala/internal/domain/marketplace"
	"github.com/okian/kala/internal/domain/model"
	"github.com/okian/kala/internal/domain/rating"
)

func setupPostgres(t *testing.T) *bun.DB {
	t.Helper()
	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("kala"),
		postgres.WithUsername("kala"),
		postgres.WithPassword("kala"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(45*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	group, err := Migrate(ctx, db)
	require.NoError(t, err)
	require.False(t, group.IsZero())
	return db
}

func TestPostgresMarketplace(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	store := NewMarketplaceStore(db)
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	customer := model.Actor{UserID: "c1", Role: model.RoleCustomer}
	artist := model.Actor{UserID: "a1", Role: model.RoleArtist}

	var n int
	orders := marketplace.New(store, marketplace.WithClock(clock), marketplace.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("o%d", n)
	}))
	ratings := rating.New(store, rating.WithClock(clock))

	t.Run("orders advance to delivered", func(t *testing.T) {
		for range 3 {
			o, err := orders.PlaceOrder(ctx, customer, marketplace.PlaceOrderInput{ArtistID: "a1", ArtworkID: "pattachitra-1", Amount: 2500})
			require.NoError(t, err)
			for _, to := range []model.OrderStatus{model.OrderConfirmed, model.OrderShipped, model.OrderDelivered} {
				_, err = orders.UpdateOrderStatus(ctx, artist, o.ID, to)
				require.NoError(t, err)
			}
		}
		_, err := store.UpdateOrderStatus(ctx, "o1", model.OrderPending, model.OrderCancelled, now)
		require.ErrorIs(t, err, apperr.ErrConflict)
		_, err = store.UpdateOrderStatus(ctx, "nope", model.OrderPending, model.OrderCancelled, now)
		require.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("reviews drive the artist rating", func(t *testing.T) {
		var last model.Review
		for i, stars := range []int{5, 4, 3} {
			r, agg, err := ratings.AttachReview(ctx, rating.ReviewInput{
				OrderID: fmt.Sprintf("o%d", i+1), CustomerID: "c1", Rating: stars, Images: []string{"front.jpg"},
			})
			require.NoError(t, err)
			last = r
			require.Equal(t, i+1, agg.TotalReviews)
		}
		agg, err := ratings.ArtistRating(ctx, "a1")
		require.NoError(t, err)
		require.Equal(t, 40, agg.Tenths)

		_, _, err = ratings.AttachReview(ctx, rating.ReviewInput{OrderID: "o1", CustomerID: "c1", Rating: 2})
		require.ErrorIs(t, err, rating.ErrReviewAlreadyExists)

		agg, err = ratings.DeactivateReview(ctx, last.ID)
		require.NoError(t, err)
		require.Equal(t, 45, agg.Tenths)
		require.Equal(t, 2, agg.TotalReviews)

		page, err := ratings.ListArtistReviews(ctx, "a1", 1, 0)
		require.NoError(t, err)
		require.Equal(t, 2, page.Total)
		require.Len(t, page.Reviews, 1)
		require.Equal(t, []string{"front.jpg"}, page.Reviews[0].Images)

		reported, err := ratings.ReportReview(ctx, page.Reviews[0].ID)
		require.NoError(t, err)
		require.True(t, reported.Reported)
	})
}
