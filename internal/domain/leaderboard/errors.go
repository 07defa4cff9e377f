package leaderboard

import (
	"fmt"

	"github.com/okian/kala/internal/domain/apperr"
)

// Sentinel errors. Each wraps an apperr kind.
var (
	ErrInvalidPlayer    = fmt.Errorf("%w: player id is required", apperr.ErrValidation)
	ErrInvalidScore     = fmt.Errorf("%w: score must not be negative", apperr.ErrValidation)
	ErrInvalidTimeSpent = fmt.Errorf("%w: time spent must not be negative", apperr.ErrValidation)
	ErrScoreOverflow    = fmt.Errorf("%w: total score would overflow", apperr.ErrValidation)
	ErrPlayerNotFound   = fmt.Errorf("player %w", apperr.ErrNotFound)
)
