// Package leaderboard ranks learning-game players by cumulative score.
//
// Ranks are dense 1..N over all players, ordered by total score descending
// with ties going to whoever submitted first. Writes for the same player are
// serialized; ranks are read back from the store after each write.
package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/kala/internal/domain/apperr"
	"github.com/okian/kala/internal/domain/keylock"
	"github.com/okian/kala/internal/domain/model"
	"github.com/okian/kala/pkg/logger"
	"github.com/okian/kala/pkg/metrics"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Submission is one finished game session.
type Submission struct {
	PlayerID string
	// DisplayName is used only when the player is new.
	DisplayName string
	Score       int64
	GameID      string
	TimeSpent   time.Duration
}

func (s Submission) validate() error {
	switch {
	case s.PlayerID == "":
		return ErrInvalidPlayer
	case s.Score < 0:
		return ErrInvalidScore
	case s.TimeSpent < 0:
		return ErrInvalidTimeSpent
	}
	return nil
}

// Page is one slice of the ranked list.
type Page struct {
	Entries []model.Standing
	Total   int
	Limit   int
	Offset  int
}

// Service implements score recording and ranked reads over a Store.
type Service struct {
	store           Store
	locks           *keylock.Locker
	publisher       model.Publisher
	logger          logger.Logger
	tracer          trace.Tracer
	now             func() time.Time
	defaultPageSize int
	maxPageSize     int
}

// New creates a leaderboard service over store.
func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:           store,
		locks:           keylock.New(0),
		logger:          logger.Nop(),
		tracer:          otel.Tracer("github.com/okian/kala/internal/domain/leaderboard"),
		now:             time.Now,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordScore adds one game's score to the player's aggregate and returns the new standing.
// Invalid submissions are rejected before the store is touched.
func (s *Service) RecordScore(ctx context.Context, sub Submission) (model.Standing, error) {
	ctx, span := s.tracer.Start(ctx, "Leaderboard.RecordScore",
		trace.WithAttributes(attribute.String("player_id", sub.PlayerID), attribute.Int64("score", sub.Score)))
	defer span.End()
	start := time.Now()

	if err := sub.validate(); err != nil {
		metrics.RecordScoreRejected(apperr.Label(err))
		span.SetStatus(codes.Error, err.Error())
		return model.Standing{}, err
	}

	standing, created, err := s.apply(ctx, sub)
	if err != nil {
		if errors.Is(err, ErrScoreOverflow) {
			metrics.RecordScoreRejected(apperr.Label(err))
		} else {
			metrics.RecordErrorByComponent("leaderboard", apperr.Label(err))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error(ctx, "record score failed", logger.String("player_id", sub.PlayerID), logger.Error(err))
		return model.Standing{}, err
	}

	metrics.RecordScoreRecorded(float64(time.Since(start).Microseconds()) / 1000)
	if created {
		if n, cerr := s.store.Count(ctx); cerr == nil {
			metrics.UpdatePlayersTotal(n)
		}
	}
	span.SetAttributes(attribute.Int("rank", standing.Rank))
	s.logger.Debug(ctx, "score recorded",
		logger.String("player_id", standing.PlayerID),
		logger.Int64("total_score", standing.TotalScore),
		logger.Int("rank", standing.Rank),
	)

	s.publish(ctx, model.Event{
		Topic:      model.TopicScoreRecorded,
		Key:        standing.PlayerID,
		OccurredAt: standing.LastActive,
		Data: model.ScoreRecorded{
			PlayerID:     standing.PlayerID,
			DisplayName:  standing.DisplayName,
			Rank:         standing.Rank,
			TotalScore:   standing.TotalScore,
			GamesPlayed:  standing.GamesPlayed,
			AverageScore: standing.AverageScore,
			GameID:       sub.GameID,
			Score:        sub.Score,
		},
	})
	return standing, nil
}

// apply runs the read-modify-write and the rank read under the player's lock.
func (s *Service) apply(ctx context.Context, sub Submission) (model.Standing, bool, error) {
	var (
		standing model.Standing
		created  bool
	)
	err := s.locks.Do(sub.PlayerID, func() error {
		ps, found, err := s.store.FindPlayerScore(ctx, sub.PlayerID)
		if err != nil {
			return fmt.Errorf("find player %s: %w", sub.PlayerID, err)
		}
		if !found {
			ps = model.PlayerScore{PlayerID: sub.PlayerID, DisplayName: sub.DisplayName}
			if ps.DisplayName == "" {
				ps.DisplayName = sub.PlayerID
			}
		}
		if ps.TotalScore > math.MaxInt64-sub.Score {
			return ErrScoreOverflow
		}

		ps.TotalScore += sub.Score
		ps.GamesPlayed++
		ps.AverageScore = RoundedAverage(ps.TotalScore, ps.GamesPlayed)
		ps.LastActive = s.now()

		stored, err := s.store.UpsertPlayerScore(ctx, ps)
		if err != nil {
			return fmt.Errorf("upsert player %s: %w", sub.PlayerID, err)
		}
		rank, err := s.store.Rank(ctx, sub.PlayerID)
		if err != nil {
			return fmt.Errorf("rank player %s: %w", sub.PlayerID, err)
		}
		standing, created = model.StandingOf(stored, rank), !found
		return nil
	})
	if err != nil {
		return model.Standing{}, false, err
	}
	return standing, created, nil
}

// Leaderboard returns a page of the ranked list. Out-of-range offsets yield an empty page.
// Total and the entries are two store reads; Total is raised to cover the entries
// when players join in between.
func (s *Service) Leaderboard(ctx context.Context, limit, offset int) (Page, error) {
	ctx, span := s.tracer.Start(ctx, "Leaderboard.Leaderboard")
	defer span.End()

	limit, offset = s.normalize(limit, offset)
	total, err := s.store.Count(ctx)
	if err != nil {
		span.RecordError(err)
		return Page{}, fmt.Errorf("count players: %w", err)
	}
	page := Page{Entries: []model.Standing{}, Total: total, Limit: limit, Offset: offset}
	if offset >= total {
		return page, nil
	}

	scores, err := s.store.Range(ctx, offset, limit)
	if err != nil {
		span.RecordError(err)
		return Page{}, fmt.Errorf("range players: %w", err)
	}
	for i, ps := range scores {
		page.Entries = append(page.Entries, model.StandingOf(ps, offset+i+1))
	}
	page.Total = max(page.Total, offset+len(page.Entries))
	return page, nil
}

// PlayerRank returns the standing of a player who has submitted at least once.
// The aggregate and rank are read under the player's lock, so the rank always
// belongs to the returned total; other players may move right after.
func (s *Service) PlayerRank(ctx context.Context, playerID string) (model.Standing, error) {
	ctx, span := s.tracer.Start(ctx, "Leaderboard.PlayerRank", trace.WithAttributes(attribute.String("player_id", playerID)))
	defer span.End()

	if playerID == "" {
		return model.Standing{}, ErrInvalidPlayer
	}
	var standing model.Standing
	err := s.locks.Do(playerID, func() error {
		ps, found, err := s.store.FindPlayerScore(ctx, playerID)
		if err != nil {
			return fmt.Errorf("find player %s: %w", playerID, err)
		}
		if !found {
			return ErrPlayerNotFound
		}
		rank, err := s.store.Rank(ctx, playerID)
		if errors.Is(err, apperr.ErrNotFound) {
			return ErrPlayerNotFound
		}
		if err != nil {
			return fmt.Errorf("rank player %s: %w", playerID, err)
		}
		standing = model.StandingOf(ps, rank)
		return nil
	})
	if err != nil {
		return model.Standing{}, err
	}
	return standing, nil
}

// Snapshot returns up to limit standings from the top, paging through the store.
// limit <= 0 means every player.
func (s *Service) Snapshot(ctx context.Context, limit int) ([]model.Standing, error) {
	total, err := s.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count players: %w", err)
	}
	if limit <= 0 || limit > total {
		limit = total
	}
	out := make([]model.Standing, 0, limit)
	for offset := 0; offset < limit; offset += s.maxPageSize {
		scores, err := s.store.Range(ctx, offset, min(s.maxPageSize, limit-offset))
		if err != nil {
			return nil, fmt.Errorf("range players: %w", err)
		}
		if len(scores) == 0 {
			break
		}
		for i, ps := range scores {
			out = append(out, model.StandingOf(ps, offset+i+1))
		}
	}
	return out, nil
}

// Players returns the number of ranked players.
func (s *Service) Players(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}

func (s *Service) normalize(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = s.defaultPageSize
	}
	limit = min(limit, s.maxPageSize)
	return limit, max(offset, 0)
}

func (s *Service) publish(ctx context.Context, ev model.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn(ctx, "publish event failed", logger.String("topic", ev.Topic), logger.Error(err))
	}
}

// RoundedAverage is total/games rounded half up, computed on integers. Zero games give 0.
func RoundedAverage(total, games int64) int64 {
	if games <= 0 {
		return 0
	}
	q, r := total/games, total%games
	if 2*r >= games {
		q++
	}
	return q
}
