// Package loadgen drives the leaderboard API with generated players and then
// checks the ranking it reads back.
package loadgen

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid loadgen config")

// Config holds configuration for a load run.
type Config struct {
	BaseURL string
	// Players is the number of distinct fake players.
	Players int
	// GamesPerPlayer is the number of scores each player submits.
	GamesPerPlayer int
	// MaxScore bounds each generated score.
	MaxScore int
	Workers  int
	Timeout  time.Duration
	// JWTSecret switches identity from X-User-* headers to signed bearer tokens.
	JWTSecret string
	// Seed makes the generated population reproducible; zero picks one from the clock.
	Seed    uint64
	Verbose bool
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: base url must not be empty", ErrInvalidConfig)
	case c.Players <= 0 || c.GamesPerPlayer <= 0:
		return fmt.Errorf("%w: players and games per player must be positive", ErrInvalidConfig)
	case c.MaxScore < 0:
		return fmt.Errorf("%w: max score must not be negative", ErrInvalidConfig)
	case c.Workers <= 0:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	}
	return nil
}

// Stats holds run statistics.
type Stats struct {
	Players           int
	Submitted         int
	Successful        int
	Failed            int
	RankLookups       int
	LeaderboardChecks int
	Violations        int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
