package api

import (
	"bytes"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/kala/internal/domain/rating"
	"github.com/okian/kala/internal/domain/types"
	"github.com/okian/kala/internal/export"
)

// handleCreateReview handles POST /marketplace/reviews.
func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_review"
	var req types.CreateReviewRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	stars, ok := wholeStars(req.Rating)
	if !ok {
		s.writeError(w, r, Wrap(op, rating.ErrInvalidRating))
		return
	}

	release, ok := s.claimSubmission(r, "review")
	if !ok {
		s.writeError(w, r, NewKind(op, ErrDuplicate))
		return
	}
	review, agg, err := s.deps.Ratings.AttachReview(r.Context(), rating.ReviewInput{
		OrderID:    req.OrderID,
		CustomerID: identity(r).UserID,
		ArtistID:   req.ArtistID,
		ArtworkID:  req.ArtworkID,
		Rating:     stars,
		Title:      req.Title,
		Comment:    req.Comment,
		Images:     req.Images,
	})
	if err != nil {
		release()
		s.writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, types.CreateReviewResponse{
		Review:       types.FromReview(review),
		ArtistRating: types.FromArtistRating(agg),
	})
}

// wholeStars accepts integral ratings only; range checks happen in the rating service.
func wholeStars(v float64) (int, bool) {
	if v != math.Trunc(v) || math.Abs(v) > math.MaxInt32 {
		return 0, false
	}
	return int(v), true
}

// handleReportReview handles POST /marketplace/reviews/{reviewID}/report.
func (s *Server) handleReportReview(w http.ResponseWriter, r *http.Request) {
	const op = "api.report_review"
	review, err := s.deps.Ratings.ReportReview(r.Context(), chi.URLParam(r, "reviewID"))
	if err != nil {
		s.writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.FromReview(review))
}

// handleDeactivateReview handles POST /marketplace/reviews/{reviewID}/deactivate. Admin only.
func (s *Server) handleDeactivateReview(w http.ResponseWriter, r *http.Request) {
	const op = "api.deactivate_review"
	agg, err := s.deps.Ratings.DeactivateReview(r.Context(), chi.URLParam(r, "reviewID"))
	if err != nil {
		s.writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.FromArtistRating(agg))
}

// handleGetArtistRating handles GET /marketplace/artists/{artistID}/rating.
func (s *Server) handleGetArtistRating(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_artist_rating"
	agg, err := s.deps.Ratings.ArtistRating(r.Context(), chi.URLParam(r, "artistID"))
	if err != nil {
		s.writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.FromArtistRating(agg))
}

// handleListArtistReviews handles GET /marketplace/artists/{artistID}/reviews.
func (s *Server) handleListArtistReviews(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_artist_reviews"
	limit, offset, err := pageParams(r)
	if err != nil {
		s.writeError(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	page, err := s.deps.Ratings.ListArtistReviews(r.Context(), chi.URLParam(r, "artistID"), limit, offset)
	if err != nil {
		s.writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.ReviewListResponse{
		Reviews: types.FromReviews(page.Reviews),
		Total:   page.Total,
		Limit:   page.Limit,
		Offset:  page.Offset,
	})
}

// handleRatingChart handles GET /marketplace/artists/{artistID}/rating-chart.png.
func (s *Server) handleRatingChart(w http.ResponseWriter, r *http.Request) {
	const op = "api.rating_chart"
	artistID := chi.URLParam(r, "artistID")
	dist, err := s.deps.Ratings.Distribution(r.Context(), artistID)
	if err != nil {
		s.writeError(w, r, Wrap(op, err))
		return
	}
	var buf bytes.Buffer
	if err := export.RatingChartPNG(&buf, artistID, dist[:]); err != nil {
		s.writeError(w, r, Wrap(op, err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
