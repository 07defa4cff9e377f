// Package model contains domain models passed between layers.
package model

import "time"

// PlayerScore is a player's aggregate on the learning leaderboard.
// Rank is derived on read and never persisted authoritatively.
type PlayerScore struct {
	PlayerID     string
	DisplayName  string
	TotalScore   int64
	GamesPlayed  int64
	AverageScore int64
	LastActive   time.Time
	// Seq is the first-insertion sequence assigned by the store; it breaks score ties.
	Seq int64
}

// Standing is a player's score together with the rank derived for it.
type Standing struct {
	PlayerID     string
	DisplayName  string
	Rank         int
	TotalScore   int64
	GamesPlayed  int64
	AverageScore int64
	LastActive   time.Time
}

// StandingOf pairs a score with its rank.
func StandingOf(ps PlayerScore, rank int) Standing {
	return Standing{
		PlayerID:     ps.PlayerID,
		DisplayName:  ps.DisplayName,
		Rank:         rank,
		TotalScore:   ps.TotalScore,
		GamesPlayed:  ps.GamesPlayed,
		AverageScore: ps.AverageScore,
		LastActive:   ps.LastActive,
	}
}

// Outranks reports whether a sits above b: higher total first, earlier insertion on ties.
func (a PlayerScore) Outranks(b PlayerScore) bool {
	if a.TotalScore != b.TotalScore {
		return a.TotalScore > b.TotalScore
	}
	return a.Seq < b.Seq
}
