package pgmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS orders (
					id          TEXT PRIMARY KEY,
					customer_id TEXT NOT NULL,
					artist_id   TEXT NOT NULL,
					artwork_id  TEXT NOT NULL,
					status      TEXT NOT NULL,
					amount      BIGINT NOT NULL CHECK (amount > 0),
					created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
				CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders(customer_id, created_at DESC);
				CREATE INDEX IF NOT EXISTS idx_orders_artist ON orders(artist_id, created_at DESC);

				CREATE TABLE IF NOT EXISTS reviews (
					id          TEXT PRIMARY KEY,
					order_id    TEXT NOT NULL UNIQUE REFERENCES orders(id),
					artist_id   TEXT NOT NULL,
					artwork_id  TEXT NOT NULL,
					customer_id TEXT NOT NULL,
					rating      SMALLINT NOT NULL CHECK (rating BETWEEN 1 AND 5),
					title       TEXT NOT NULL DEFAULT '',
					comment     TEXT NOT NULL DEFAULT '',
					images      TEXT[] NOT NULL DEFAULT '{}',
					is_active   BOOLEAN NOT NULL DEFAULT TRUE,
					reported    BOOLEAN NOT NULL DEFAULT FALSE,
					created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
				CREATE INDEX IF NOT EXISTS idx_reviews_artist_active ON reviews(artist_id, is_active, created_at DESC);

				CREATE TABLE IF NOT EXISTS artist_ratings (
					artist_id     TEXT PRIMARY KEY,
					tenths        INTEGER NOT NULL DEFAULT 0,
					total_reviews INTEGER NOT NULL DEFAULT 0
				);
			`); err != nil {
				return fmt.Errorf("failed to create marketplace tables: %w", err)
			}
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				DROP TABLE IF EXISTS artist_ratings;
				DROP TABLE IF EXISTS reviews;
				DROP TABLE IF EXISTS orders;
			`); err != nil {
				return fmt.Errorf("failed to drop marketplace tables: %w", err)
			}
			return nil
		})
	})
}
