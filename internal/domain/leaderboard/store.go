package leaderboard

//go:generate mockgen -package=mocks -destination=mocks/mock_store.go github.com/okian/kala/internal/domain/leaderboard Store

import (
	"context"

	"github.com/okian/kala/internal/domain/model"
)

// Store persists player aggregates and answers ordered queries over them.
// Order is TotalScore descending, then Seq ascending.
type Store interface {
	// FindPlayerScore returns the stored aggregate and whether it exists.
	FindPlayerScore(ctx context.Context, playerID string) (model.PlayerScore, bool, error)
	// UpsertPlayerScore writes ps. On first insert the store assigns Seq and returns the stored value.
	UpsertPlayerScore(ctx context.Context, ps model.PlayerScore) (model.PlayerScore, error)
	// Rank returns the 1-based position of playerID, or an apperr.ErrNotFound error.
	Rank(ctx context.Context, playerID string) (int, error)
	// Range returns up to limit aggregates starting at the 0-based position offset.
	Range(ctx context.Context, offset, limit int) ([]model.PlayerScore, error)
	// Count returns the number of distinct players.
	Count(ctx context.Context) (int, error)
}
