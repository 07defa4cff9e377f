package loadgen

import (
	"fmt"

	"github.com/okian/kala/internal/domain/types"
)

// Violation is one broken ranking property.
type Violation struct {
	PlayerID string
	Reason   string
}

func (v Violation) String() string {
	if v.PlayerID == "" {
		return v.Reason
	}
	return v.PlayerID + ": " + v.Reason
}

// verifyLeaderboard checks the full ranked list against the expected aggregates:
// ranks are exactly 1..N, totals never increase down the list, every expected
// player appears once, and each aggregate matches what was submitted.
func verifyLeaderboard(board []types.Standing, want map[string]Expected) []Violation {
	var out []Violation
	seen := make(map[string]bool, len(board))

	for i, s := range board {
		if s.Rank != i+1 {
			out = append(out, Violation{s.PlayerID, fmt.Sprintf("rank %d at position %d", s.Rank, i+1)})
		}
		if i > 0 && s.TotalScore > board[i-1].TotalScore {
			out = append(out, Violation{s.PlayerID, fmt.Sprintf("total %d above previous %d", s.TotalScore, board[i-1].TotalScore)})
		}
		if seen[s.PlayerID] {
			out = append(out, Violation{s.PlayerID, "listed twice"})
		}
		seen[s.PlayerID] = true

		e, ok := want[s.PlayerID]
		if !ok {
			continue
		}
		if s.TotalScore != e.TotalScore || s.GamesPlayed != e.GamesPlayed || s.AverageScore != e.AverageScore {
			out = append(out, Violation{s.PlayerID, fmt.Sprintf(
				"got total=%d games=%d avg=%d, want total=%d games=%d avg=%d",
				s.TotalScore, s.GamesPlayed, s.AverageScore, e.TotalScore, e.GamesPlayed, e.AverageScore)})
		}
	}
	for id := range want {
		if !seen[id] {
			out = append(out, Violation{id, "missing from leaderboard"})
		}
	}
	return out
}

// verifyRank checks that a single rank lookup agrees with the full list.
func verifyRank(got types.Standing, board []types.Standing) []Violation {
	if got.Rank < 1 || got.Rank > len(board) {
		return []Violation{{got.PlayerID, fmt.Sprintf("rank %d outside 1..%d", got.Rank, len(board))}}
	}
	listed := board[got.Rank-1]
	if listed.PlayerID != got.PlayerID || listed.TotalScore != got.TotalScore {
		return []Violation{{got.PlayerID, fmt.Sprintf("rank %d lists %s", got.Rank, listed.PlayerID)}}
	}
	return nil
}
