// Package memory holds the in-process stores used by default and in tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/kala/internal/domain/apperr"
	"github.com/okian/kala/internal/domain/leaderboard"
	"github.com/okian/kala/internal/domain/model"
	"github.com/okian/kala/pkg/metrics"
)

const backend = "memory"

var _ leaderboard.Store = (*LeaderboardStore)(nil)

// LeaderboardStore keeps player aggregates in a map and their order in a treap.
type LeaderboardStore struct {
	mu    sync.RWMutex
	order *treap
	byID  map[string]model.PlayerScore
	seq   int64
}

// NewLeaderboardStore returns an empty store.
func NewLeaderboardStore() *LeaderboardStore {
	return &LeaderboardStore{
		order: newTreap(uint64(time.Now().UnixNano())),
		byID:  make(map[string]model.PlayerScore),
	}
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(backend, op, float64(time.Since(start).Microseconds())/1000)
}

func keyOf(ps model.PlayerScore) rankKey {
	return rankKey{total: ps.TotalScore, seq: ps.Seq}
}

// FindPlayerScore implements leaderboard.Store.
func (s *LeaderboardStore) FindPlayerScore(_ context.Context, playerID string) (model.PlayerScore, bool, error) {
	defer observe("find_player", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	ps, ok := s.byID[playerID]
	return ps, ok, nil
}

// UpsertPlayerScore implements leaderboard.Store. The first write for a player assigns its Seq.
func (s *LeaderboardStore) UpsertPlayerScore(_ context.Context, ps model.PlayerScore) (model.PlayerScore, error) {
	defer observe("upsert_player", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.byID[ps.PlayerID]; ok {
		ps.Seq = old.Seq
		s.order.delete(keyOf(old))
	} else {
		s.seq++
		ps.Seq = s.seq
	}
	s.byID[ps.PlayerID] = ps
	s.order.insert(keyOf(ps), ps.PlayerID)
	return ps, nil
}

// Rank implements leaderboard.Store.
func (s *LeaderboardStore) Rank(_ context.Context, playerID string) (int, error) {
	defer observe("rank", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	ps, ok := s.byID[playerID]
	if !ok {
		return 0, fmt.Errorf("player %s: %w", playerID, apperr.ErrNotFound)
	}
	return s.order.rank(keyOf(ps)), nil
}

// Range implements leaderboard.Store.
func (s *LeaderboardStore) Range(_ context.Context, offset, limit int) ([]model.PlayerScore, error) {
	defer observe("range", time.Now())
	if offset < 0 || limit <= 0 {
		return []model.PlayerScore{}, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.order.slice(offset, limit)
	out := make([]model.PlayerScore, len(ids))
	for i, id := range ids {
		out[i] = s.byID[id]
	}
	return out, nil
}

// Count implements leaderboard.Store.
func (s *LeaderboardStore) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID), nil
}
