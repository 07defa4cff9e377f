package loadgen

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/kala/internal/domain/leaderboard"
	"github.com/okian/kala/internal/domain/types"
	"github.com/okian/kala/pkg/logger"
)

const (
	pageSize       = 100
	progressPeriod = time.Second
	maxReported    = 20
)

// ErrViolations is returned when the ranking read back breaks an invariant.
var ErrViolations = errors.New("leaderboard verification failed")

// Run submits the generated workload, reads the ranking back and verifies it.
// The service must not receive other score traffic while it runs.
func Run(ctx context.Context, cfg *Config, log logger.Logger) (*Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	stats := &Stats{StartTime: time.Now(), Players: cfg.Players}
	client := NewClient(cfg.BaseURL, cfg.Timeout, cfg.JWTSecret)

	log.Info(ctx, "starting leaderboard load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("players", cfg.Players),
		logger.Int("gamesPerPlayer", cfg.GamesPerPlayer),
		logger.Int("workers", cfg.Workers),
		logger.Bool("jwt", cfg.JWTSecret != ""),
	)

	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Baseline so the run tolerates players already on the board.
	before, err := client.FullLeaderboard(ctx, pageSize)
	if err != nil {
		return stats, fmt.Errorf("read baseline leaderboard: %w", err)
	}

	pop := generate(cfg)
	ok := submitAll(ctx, client, cfg, pop.Submissions, stats, log)
	if err := ctx.Err(); err != nil {
		return stats, err
	}
	want := expected(pop.Submissions, ok)

	board, err := client.FullLeaderboard(ctx, pageSize)
	if err != nil {
		return stats, fmt.Errorf("read leaderboard: %w", err)
	}
	stats.LeaderboardChecks = len(board)

	violations := verifyLeaderboard(board, withBaseline(want, before))
	if len(board) != len(before)+countNew(want, before) {
		violations = append(violations, Violation{Reason: fmt.Sprintf("leaderboard has %d players, want %d", len(board), len(before)+countNew(want, before))})
	}
	for _, p := range pop.Players {
		got, err := client.Rank(ctx, p.Identity.UserID)
		if err != nil {
			if _, submitted := want[p.Identity.UserID]; submitted {
				violations = append(violations, Violation{p.Identity.UserID, "rank lookup failed: " + err.Error()})
			}
			continue
		}
		stats.RankLookups++
		violations = append(violations, verifyRank(got, board)...)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	stats.Violations = len(violations)
	report(ctx, log, stats, board)

	if len(violations) > 0 {
		for i, v := range violations {
			if i == maxReported {
				log.Warn(ctx, "more violations omitted", logger.Int("remaining", len(violations)-maxReported))
				break
			}
			log.Warn(ctx, "ranking violation", logger.String("detail", v.String()))
		}
		return stats, fmt.Errorf("%w: %d violations", ErrViolations, len(violations))
	}
	log.Info(ctx, "leaderboard verified")
	return stats, nil
}

// submitAll posts every submission over cfg.Workers goroutines and reports which succeeded.
func submitAll(ctx context.Context, client *Client, cfg *Config, subs []Submission, stats *Stats, log logger.Logger) []bool {
	ok := make([]bool, len(subs))
	var submitted, failed atomic.Int64

	jobs := make(chan int, cfg.Workers*2)
	var wg sync.WaitGroup
	for range cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				_, err := client.SubmitScore(ctx, subs[i])
				submitted.Add(1)
				if err != nil {
					failed.Add(1)
					if cfg.Verbose {
						log.Warn(ctx, "submission failed",
							logger.String("playerId", subs[i].Player.Identity.UserID),
							logger.Error(err),
						)
					}
					continue
				}
				ok[i] = true
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(progressPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				log.Info(ctx, "submission progress",
					logger.Int64("submitted", submitted.Load()),
					logger.Int("total", len(subs)),
					logger.Int64("failed", failed.Load()),
				)
			}
		}
	}()

feed:
	for i := range subs {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()
	close(done)

	stats.Submitted = int(submitted.Load())
	stats.Failed = int(failed.Load())
	stats.Successful = stats.Submitted - stats.Failed
	return ok
}

// withBaseline adds pre-existing aggregates to the expected totals of returning players.
func withBaseline(want map[string]Expected, before []types.Standing) map[string]Expected {
	prior := make(map[string]types.Standing, len(before))
	for _, s := range before {
		prior[s.PlayerID] = s
	}
	out := make(map[string]Expected, len(want))
	for id, e := range want {
		if p, ok := prior[id]; ok {
			e.TotalScore += p.TotalScore
			e.GamesPlayed += p.GamesPlayed
			e.AverageScore = leaderboard.RoundedAverage(e.TotalScore, e.GamesPlayed)
		}
		out[id] = e
	}
	return out
}

func countNew(want map[string]Expected, before []types.Standing) int {
	prior := make(map[string]bool, len(before))
	for _, s := range before {
		prior[s.PlayerID] = true
	}
	n := 0
	for id := range want {
		if !prior[id] {
			n++
		}
	}
	return n
}

func report(ctx context.Context, log logger.Logger, stats *Stats, board []types.Standing) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("players", stats.Players),
		logger.Int("submitted", stats.Submitted),
		logger.Int("successful", stats.Successful),
		logger.Int("failed", stats.Failed),
		logger.Int("rankLookups", stats.RankLookups),
		logger.Int("leaderboardEntries", stats.LeaderboardChecks),
		logger.Int("violations", stats.Violations),
		logger.Duration("duration", stats.Duration),
		logger.Float64("submissionsPerSecond", perSecond),
	)
	for i := 0; i < len(board) && i < 5; i++ {
		s := board[i]
		log.Info(ctx, "top player",
			logger.Int("rank", s.Rank),
			logger.String("playerId", s.PlayerID),
			logger.String("displayName", s.DisplayName),
			logger.Int64("totalScore", s.TotalScore),
		)
	}
}
