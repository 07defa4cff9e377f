// Package seed loads demo orders and scores from a YAML catalog.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/okian/kala/internal/domain/apperr"
	"github.com/okian/kala/internal/domain/leaderboard"
	"github.com/okian/kala/internal/domain/marketplace"
	"github.com/okian/kala/internal/domain/model"
)

var ErrInvalidCatalog = errors.New("invalid seed catalog")

// Order is a demo order. Status defaults to Delivered so it can be reviewed.
type Order struct {
	ID         string `yaml:"id"`
	CustomerID string `yaml:"customerId"`
	ArtistID   string `yaml:"artistId"`
	ArtworkID  string `yaml:"artworkId"`
	Status     string `yaml:"status"`
	Amount     int64  `yaml:"amount"`
}

// Score is a demo game result.
type Score struct {
	PlayerID    string `yaml:"playerId"`
	DisplayName string `yaml:"displayName"`
	GameID      string `yaml:"gameId"`
	Score       int64  `yaml:"score"`
}

// Catalog is the decoded seed file.
type Catalog struct {
	Orders []Order `yaml:"orders"`
	Scores []Score `yaml:"scores"`
}

// Result counts what Apply wrote.
type Result struct {
	Orders         int
	SkippedOrders  int
	ScoresRecorded int
}

// Load reads and validates a catalog file.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates a catalog.
func Parse(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	for i := range c.Orders {
		o := &c.Orders[i]
		if o.Status == "" {
			o.Status = string(model.OrderDelivered)
		}
		if o.ID == "" || o.CustomerID == "" || o.ArtistID == "" || o.ArtworkID == "" {
			return nil, fmt.Errorf("%w: order %d is missing an id", ErrInvalidCatalog, i)
		}
		if !model.OrderStatus(o.Status).Valid() {
			return nil, fmt.Errorf("%w: order %s has unknown status %q", ErrInvalidCatalog, o.ID, o.Status)
		}
		if o.Amount <= 0 {
			return nil, fmt.Errorf("%w: order %s must have a positive amount", ErrInvalidCatalog, o.ID)
		}
	}
	for i, s := range c.Scores {
		if s.PlayerID == "" || s.Score < 0 {
			return nil, fmt.Errorf("%w: score %d needs a player id and a non-negative score", ErrInvalidCatalog, i)
		}
	}
	return &c, nil
}

// Apply inserts the orders and records the scores. Orders that already exist are skipped.
func Apply(ctx context.Context, c *Catalog, orders marketplace.Store, scores *leaderboard.Service, now time.Time) (Result, error) {
	var res Result
	for _, o := range c.Orders {
		err := orders.InsertOrder(ctx, model.Order{
			ID:         o.ID,
			CustomerID: o.CustomerID,
			ArtistID:   o.ArtistID,
			ArtworkID:  o.ArtworkID,
			Status:     model.OrderStatus(o.Status),
			Amount:     o.Amount,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		switch {
		case errors.Is(err, apperr.ErrConflict):
			res.SkippedOrders++
		case err != nil:
			return res, fmt.Errorf("seed order %s: %w", o.ID, err)
		default:
			res.Orders++
		}
	}
	if scores == nil {
		return res, nil
	}
	for _, s := range c.Scores {
		_, err := scores.RecordScore(ctx, leaderboard.Submission{
			PlayerID:    s.PlayerID,
			DisplayName: s.DisplayName,
			GameID:      s.GameID,
			Score:       s.Score,
		})
		if err != nil {
			return res, fmt.Errorf("seed score for %s: %w", s.PlayerID, err)
		}
		res.ScoresRecorded++
	}
	return res, nil
}
