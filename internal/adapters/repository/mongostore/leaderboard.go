package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/okian/kala/internal/domain/apperr"
	"github.com/okian/kala/internal/domain/leaderboard"
	"github.com/okian/kala/internal/domain/model"
)

var _ leaderboard.Store = (*LeaderboardStore)(nil)

type playerDoc struct {
	PlayerID     string    `bson:"_id"`
	DisplayName  string    `bson:"displayName"`
	TotalScore   int64     `bson:"totalScore"`
	GamesPlayed  int64     `bson:"gamesPlayed"`
	AverageScore int64     `bson:"averageScore"`
	LastActive   time.Time `bson:"lastActive"`
	Seq          int64     `bson:"seq"`
}

func (d playerDoc) model() model.PlayerScore {
	return model.PlayerScore{
		PlayerID:     d.PlayerID,
		DisplayName:  d.DisplayName,
		TotalScore:   d.TotalScore,
		GamesPlayed:  d.GamesPlayed,
		AverageScore: d.AverageScore,
		LastActive:   d.LastActive.UTC(),
		Seq:          d.Seq,
	}
}

// LeaderboardStore implements leaderboard.Store on the players collection.
type LeaderboardStore struct {
	db *DB
}

func NewLeaderboardStore(db *DB) *LeaderboardStore {
	return &LeaderboardStore{db: db}
}

var rankingSort = bson.D{{Key: "totalScore", Value: -1}, {Key: "seq", Value: 1}}

// FindPlayerScore implements leaderboard.Store.
func (s *LeaderboardStore) FindPlayerScore(ctx context.Context, playerID string) (_ model.PlayerScore, _ bool, err error) {
	defer observe("find_player", time.Now(), &err)
	var doc playerDoc
	err = s.db.Players().FindOne(ctx, bson.M{"_id": playerID}).Decode(&doc)
	if notFound(err) {
		return model.PlayerScore{}, false, nil
	}
	if err != nil {
		return model.PlayerScore{}, false, fmt.Errorf("failed to find player: %w", err)
	}
	return doc.model(), true, nil
}

// UpsertPlayerScore implements leaderboard.Store.
func (s *LeaderboardStore) UpsertPlayerScore(ctx context.Context, ps model.PlayerScore) (_ model.PlayerScore, err error) {
	defer observe("upsert_player", time.Now(), &err)
	if ps.Seq == 0 {
		existing, found, err := s.FindPlayerScore(ctx, ps.PlayerID)
		if err != nil {
			return model.PlayerScore{}, err
		}
		if found {
			ps.Seq = existing.Seq
		} else if ps.Seq, err = s.db.nextSeq(ctx, "players"); err != nil {
			return model.PlayerScore{}, err
		}
	}
	doc := playerDoc{
		PlayerID:     ps.PlayerID,
		DisplayName:  ps.DisplayName,
		TotalScore:   ps.TotalScore,
		GamesPlayed:  ps.GamesPlayed,
		AverageScore: ps.AverageScore,
		LastActive:   ps.LastActive,
		Seq:          ps.Seq,
	}
	_, err = s.db.Players().ReplaceOne(ctx, bson.M{"_id": ps.PlayerID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return model.PlayerScore{}, fmt.Errorf("failed to save player: %w", err)
	}
	return ps, nil
}

// Rank implements leaderboard.Store: one plus the number of players ahead.
func (s *LeaderboardStore) Rank(ctx context.Context, playerID string) (_ int, err error) {
	defer observe("rank", time.Now(), &err)
	var doc playerDoc
	err = s.db.Players().FindOne(ctx, bson.M{"_id": playerID}).Decode(&doc)
	if notFound(err) {
		return 0, fmt.Errorf("player %s: %w", playerID, apperr.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to find player: %w", err)
	}
	ahead, err := s.db.Players().CountDocuments(ctx, bson.M{"$or": bson.A{
		bson.M{"totalScore": bson.M{"$gt": doc.TotalScore}},
		bson.M{"totalScore": doc.TotalScore, "seq": bson.M{"$lt": doc.Seq}},
	}})
	if err != nil {
		return 0, fmt.Errorf("failed to rank player: %w", err)
	}
	return int(ahead) + 1, nil
}

// Range implements leaderboard.Store.
func (s *LeaderboardStore) Range(ctx context.Context, offset, limit int) (_ []model.PlayerScore, err error) {
	defer observe("range", time.Now(), &err)
	if offset < 0 || limit <= 0 {
		return []model.PlayerScore{}, nil
	}
	opts := options.Find().SetSort(rankingSort).SetSkip(int64(offset)).SetLimit(int64(limit))
	cursor, err := s.db.Players().Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to read ranking: %w", err)
	}
	var docs []playerDoc
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode ranking: %w", err)
	}
	out := make([]model.PlayerScore, len(docs))
	for i, d := range docs {
		out[i] = d.model()
	}
	return out, nil
}

// Count implements leaderboard.Store.
func (s *LeaderboardStore) Count(ctx context.Context) (_ int, err error) {
	defer observe("count", time.Now(), &err)
	n, err := s.db.Players().CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count players: %w", err)
	}
	return int(n), nil
}
