package api

import (
	"bytes"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/okian/kala/internal/domain/leaderboard"
	"github.com/okian/kala/internal/domain/types"
	"github.com/okian/kala/internal/export"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// handleSubmitScore handles POST /leaderboard/submit-score.
func (s *Server) handleSubmitScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_score"
	var req types.SubmitScoreRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}

	release, ok := s.claimSubmission(r, "score")
	if !ok {
		s.writeError(w, r, NewKind(op, ErrDuplicate))
		return
	}
	id := identity(r)
	standing, err := s.deps.Leaderboard.RecordScore(r.Context(), leaderboard.Submission{
		PlayerID:    id.UserID,
		DisplayName: id.Name(),
		Score:       req.Score,
		GameID:      req.GameID,
		TimeSpent:   time.Duration(req.TimeSpent) * time.Second,
	})
	if err != nil {
		release()
		s.writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.FromStanding(standing))
}

// handleGetLeaderboard handles GET /leaderboard?limit=N&offset=M.
func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	limit, offset, err := pageParams(r)
	if err != nil {
		s.writeError(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	page, err := s.deps.Leaderboard.Leaderboard(r.Context(), limit, offset)
	if err != nil {
		s.writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.LeaderboardResponse{
		Entries: types.FromStandings(page.Entries),
		Total:   page.Total,
		Limit:   page.Limit,
		Offset:  page.Offset,
	})
}

// handleGetRank handles GET /leaderboard/rank/{playerID}.
func (s *Server) handleGetRank(w http.ResponseWriter, r *http.Request) {
	s.writeRank(w, r, "api.get_rank", chi.URLParam(r, "playerID"))
}

// handleGetMyRank handles GET /leaderboard/me.
func (s *Server) handleGetMyRank(w http.ResponseWriter, r *http.Request) {
	s.writeRank(w, r, "api.get_my_rank", identity(r).UserID)
}

func (s *Server) writeRank(w http.ResponseWriter, r *http.Request, op, playerID string) {
	standing, err := s.deps.Leaderboard.PlayerRank(r.Context(), playerID)
	if err != nil {
		s.writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.FromStanding(standing))
}

// handleExportLeaderboard handles GET /leaderboard/export.xlsx.
func (s *Server) handleExportLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.export_leaderboard"
	entries, err := s.deps.Leaderboard.Snapshot(r.Context(), 0)
	if err != nil {
		s.writeError(w, r, Wrap(op, err))
		return
	}
	var buf bytes.Buffer
	if err := export.LeaderboardXLSX(&buf, entries, s.now()); err != nil {
		s.writeError(w, r, Wrap(op, err))
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="leaderboard.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
