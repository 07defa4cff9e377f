package loadgen

import (
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/okian/kala/internal/adapters/http/auth"
	"github.com/okian/kala/internal/domain/leaderboard"
	"github.com/okian/kala/internal/domain/model"
)

const maxTimeSpentSeconds = 900

// Player is one generated identity.
type Player struct {
	Identity auth.Identity
}

// Submission is one generated game result for a player.
type Submission struct {
	Player    *Player
	GameID    string
	Score     int64
	TimeSpent int64
}

// Expected is the aggregate the service should report for a player
// once all of its submissions succeeded.
type Expected struct {
	TotalScore   int64
	GamesPlayed  int64
	AverageScore int64
}

// Population is the generated workload.
type Population struct {
	Players     []*Player
	Submissions []Submission
}

// generate builds cfg.Players players with cfg.GamesPerPlayer submissions each.
// Submissions are interleaved across players so that rank changes are exercised.
func generate(cfg *Config) *Population {
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	faker := gofakeit.New(seed)
	games := []string{"warli-match", "madhubani-quiz", "gond-puzzle", "kalamkari-trace"}

	pop := &Population{Players: make([]*Player, cfg.Players)}
	for i := range pop.Players {
		pop.Players[i] = &Player{Identity: auth.Identity{
			UserID:      faker.UUID(),
			DisplayName: faker.Name(),
			Role:        model.RoleCustomer,
		}}
	}
	pop.Submissions = make([]Submission, 0, cfg.Players*cfg.GamesPerPlayer)
	for range cfg.GamesPerPlayer {
		for _, p := range pop.Players {
			pop.Submissions = append(pop.Submissions, Submission{
				Player:    p,
				GameID:    games[faker.Number(0, len(games)-1)],
				Score:     int64(faker.Number(0, cfg.MaxScore)),
				TimeSpent: int64(faker.Number(1, maxTimeSpentSeconds)),
			})
		}
	}
	return pop
}

// expected folds the successful submissions into per-player aggregates.
func expected(subs []Submission, ok []bool) map[string]Expected {
	out := make(map[string]Expected)
	for i, s := range subs {
		if !ok[i] {
			continue
		}
		e := out[s.Player.Identity.UserID]
		e.TotalScore += s.Score
		e.GamesPlayed++
		out[s.Player.Identity.UserID] = e
	}
	for id, e := range out {
		e.AverageScore = leaderboard.RoundedAverage(e.TotalScore, e.GamesPlayed)
		out[id] = e
	}
	return out
}
