// Package redisstore keeps the learning leaderboard in Redis.
//
// Each player is a hash under {prefix}player:{id}. The ranking is one sorted
// set scored by total; members are "{MaxInt64-seq zero padded}:{id}" so that
// ZREVRANGE orders equal totals by first insertion.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/kala/internal/domain/apperr"
	"github.com/okian/kala/internal/domain/leaderboard"
	"github.com/okian/kala/internal/domain/model"
	"github.com/okian/kala/pkg/metrics"
)

const (
	backend       = "redis"
	defaultPrefix = "lb:"
	seqWidth      = 19

	// MaxTotal is the largest total a sorted-set score (a float64) holds exactly.
	MaxTotal = 1 << 53
)

var _ leaderboard.Store = (*LeaderboardStore)(nil)

// Config holds configuration for the Redis leaderboard store.
type Config struct {
	Client *redis.Client
	// KeyPrefix namespaces every key; defaults to "lb:".
	KeyPrefix string
}

// LeaderboardStore implements leaderboard.Store on Redis.
type LeaderboardStore struct {
	client *redis.Client
	prefix string
}

// NewLeaderboardStore validates cfg and pings the server.
func NewLeaderboardStore(ctx context.Context, cfg *Config) (*LeaderboardStore, error) {
	if cfg == nil || cfg.Client == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	if err := cfg.Client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &LeaderboardStore{client: cfg.Client, prefix: prefix}, nil
}

func (s *LeaderboardStore) playerKey(id string) string { return s.prefix + "player:" + id }
func (s *LeaderboardStore) rankingKey() string        { return s.prefix + "ranking" }
func (s *LeaderboardStore) seqKey() string            { return s.prefix + "seq" }

func member(seq int64, id string) string {
	return fmt.Sprintf("%0*d:%s", seqWidth, math.MaxInt64-seq, id)
}

func memberID(m string) string {
	_, id, _ := strings.Cut(m, ":")
	return id
}

func observe(op string, start time.Time, err *error) {
	metrics.RecordStoreLatency(backend, op, float64(time.Since(start).Microseconds())/1000)
	if *err != nil && apperr.Kind(*err) == nil {
		metrics.RecordStoreError(backend, op)
	}
}

func decode(id string, h map[string]string) (model.PlayerScore, error) {
	ps := model.PlayerScore{PlayerID: id, DisplayName: h["name"]}
	var err error
	parse := func(field string) int64 {
		if err != nil {
			return 0
		}
		var v int64
		v, err = strconv.ParseInt(h[field], 10, 64)
		return v
	}
	ps.TotalScore = parse("total")
	ps.GamesPlayed = parse("games")
	ps.AverageScore = parse("avg")
	ps.Seq = parse("seq")
	last := parse("last")
	if err != nil {
		return model.PlayerScore{}, fmt.Errorf("decode player %s: %w", id, err)
	}
	ps.LastActive = time.Unix(0, last).UTC()
	return ps, nil
}

// FindPlayerScore implements leaderboard.Store.
func (s *LeaderboardStore) FindPlayerScore(ctx context.Context, playerID string) (ps model.PlayerScore, found bool, err error) {
	defer observe("find_player", time.Now(), &err)
	h, err := s.client.HGetAll(ctx, s.playerKey(playerID)).Result()
	if err != nil {
		return model.PlayerScore{}, false, fmt.Errorf("failed to get player: %w", err)
	}
	if len(h) == 0 {
		return model.PlayerScore{}, false, nil
	}
	ps, err = decode(playerID, h)
	if err != nil {
		return model.PlayerScore{}, false, err
	}
	return ps, true, nil
}

// UpsertPlayerScore implements leaderboard.Store. A player without a Seq
// gets the next value of the sequence counter.
func (s *LeaderboardStore) UpsertPlayerScore(ctx context.Context, ps model.PlayerScore) (_ model.PlayerScore, err error) {
	defer observe("upsert_player", time.Now(), &err)
	if ps.TotalScore > MaxTotal {
		return model.PlayerScore{}, fmt.Errorf("total %d exceeds redis limit %d: %w", ps.TotalScore, int64(MaxTotal), leaderboard.ErrScoreOverflow)
	}
	if ps.Seq == 0 {
		seq, err := s.client.HGet(ctx, s.playerKey(ps.PlayerID), "seq").Int64()
		switch {
		case errors.Is(err, redis.Nil):
			if seq, err = s.client.Incr(ctx, s.seqKey()).Result(); err != nil {
				return model.PlayerScore{}, fmt.Errorf("failed to allocate seq: %w", err)
			}
		case err != nil:
			return model.PlayerScore{}, fmt.Errorf("failed to read seq: %w", err)
		}
		ps.Seq = seq
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.playerKey(ps.PlayerID),
			"name", ps.DisplayName,
			"total", ps.TotalScore,
			"games", ps.GamesPlayed,
			"avg", ps.AverageScore,
			"last", ps.LastActive.UnixNano(),
			"seq", ps.Seq,
		)
		pipe.ZAdd(ctx, s.rankingKey(), redis.Z{Score: float64(ps.TotalScore), Member: member(ps.Seq, ps.PlayerID)})
		return nil
	})
	if err != nil {
		return model.PlayerScore{}, fmt.Errorf("failed to save player: %w", err)
	}
	return ps, nil
}

// Rank implements leaderboard.Store.
func (s *LeaderboardStore) Rank(ctx context.Context, playerID string) (_ int, err error) {
	defer observe("rank", time.Now(), &err)
	seq, err := s.client.HGet(ctx, s.playerKey(playerID), "seq").Int64()
	if errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("player %s: %w", playerID, apperr.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read seq: %w", err)
	}
	idx, err := s.client.ZRevRank(ctx, s.rankingKey(), member(seq, playerID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("player %s: %w", playerID, apperr.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to rank player: %w", err)
	}
	return int(idx) + 1, nil
}

// Range implements leaderboard.Store.
func (s *LeaderboardStore) Range(ctx context.Context, offset, limit int) (_ []model.PlayerScore, err error) {
	defer observe("range", time.Now(), &err)
	if offset < 0 || limit <= 0 {
		return []model.PlayerScore{}, nil
	}
	members, err := s.client.ZRevRange(ctx, s.rankingKey(), int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read ranking: %w", err)
	}
	if len(members) == 0 {
		return []model.PlayerScore{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(members))
	for i, m := range members {
		cmds[i] = pipe.HGetAll(ctx, s.playerKey(memberID(m)))
	}
	if _, err = pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to load players: %w", err)
	}

	out := make([]model.PlayerScore, 0, len(members))
	for i, m := range members {
		ps, err := decode(memberID(m), cmds[i].Val())
		if err != nil {
			return nil, err
		}
		out = append(out, ps)
	}
	return out, nil
}

// Count implements leaderboard.Store.
func (s *LeaderboardStore) Count(ctx context.Context) (_ int, err error) {
	defer observe("count", time.Now(), &err)
	n, err := s.client.ZCard(ctx, s.rankingKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count players: %w", err)
	}
	return int(n), nil
}
