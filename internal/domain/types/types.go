// Package types holds the JSON shapes exchanged over HTTP and the live feed.
package types

import (
	"time"

	"github.com/okian/kala/internal/domain/model"
)

// SubmitScoreRequest is the body of POST /leaderboard/submit-score.
type SubmitScoreRequest struct {
	GameID string `json:"gameId"`
	Score  int64  `json:"score"`
	// TimeSpent is in seconds.
	TimeSpent int64 `json:"timeSpent"`
}

// Standing is one ranked player.
type Standing struct {
	Rank         int       `json:"rank"`
	PlayerID     string    `json:"playerId"`
	DisplayName  string    `json:"displayName"`
	TotalScore   int64     `json:"totalScore"`
	GamesPlayed  int64     `json:"gamesPlayed"`
	AverageScore int64     `json:"averageScore"`
	LastActive   time.Time `json:"lastActive"`
}

// LeaderboardResponse is one page of the ranking.
type LeaderboardResponse struct {
	Entries []Standing `json:"entries"`
	Total   int        `json:"total"`
	Limit   int        `json:"limit"`
	Offset  int        `json:"offset"`
}

// PlaceOrderRequest is the body of POST /marketplace/orders.
type PlaceOrderRequest struct {
	ArtistID  string `json:"artistId"`
	ArtworkID string `json:"artworkId"`
	Amount    int64  `json:"amount"`
}

// UpdateOrderStatusRequest is the body of PATCH /marketplace/orders/{id}/status.
type UpdateOrderStatusRequest struct {
	Status string `json:"status"`
}

// Order is an order as seen by its participants.
type Order struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customerId"`
	ArtistID   string    `json:"artistId"`
	ArtworkID  string    `json:"artworkId"`
	Status     string    `json:"status"`
	Amount     int64     `json:"amount"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// CreateReviewRequest is the body of POST /marketplace/reviews.
type CreateReviewRequest struct {
	OrderID   string   `json:"orderId"`
	ArtistID  string   `json:"artistId,omitempty"`
	ArtworkID string   `json:"artworkId,omitempty"`
	// Rating is decoded as a number so fractional stars reach validation.
	Rating    float64  `json:"rating"`
	Title     string   `json:"title"`
	Comment   string   `json:"comment"`
	Images    []string `json:"images"`
}

// Review is a public review.
type Review struct {
	ID         string    `json:"id"`
	OrderID    string    `json:"orderId"`
	ArtistID   string    `json:"artistId"`
	ArtworkID  string    `json:"artworkId"`
	CustomerID string    `json:"customerId"`
	Rating     int       `json:"rating"`
	Title      string    `json:"title"`
	Comment    string    `json:"comment"`
	Images     []string  `json:"images"`
	IsActive   bool      `json:"isActive"`
	Reported   bool      `json:"reported"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ArtistRating is an artist's displayed aggregate.
type ArtistRating struct {
	ArtistID     string  `json:"artistId"`
	Rating       float64 `json:"rating"`
	TotalReviews int     `json:"totalReviews"`
}

// CreateReviewResponse pairs the stored review with the artist's new rating.
type CreateReviewResponse struct {
	Review       Review       `json:"review"`
	ArtistRating ArtistRating `json:"artistRating"`
}

// ReviewListResponse is one page of an artist's active reviews.
type ReviewListResponse struct {
	Reviews []Review `json:"reviews"`
	Total   int      `json:"total"`
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// LiveEvent is a frame on the websocket feed.
type LiveEvent struct {
	Topic      string    `json:"topic"`
	Key        string    `json:"key"`
	OccurredAt time.Time `json:"occurredAt"`
	Data       any       `json:"data"`
}

func FromStanding(s model.Standing) Standing {
	return Standing{
		Rank:         s.Rank,
		PlayerID:     s.PlayerID,
		DisplayName:  s.DisplayName,
		TotalScore:   s.TotalScore,
		GamesPlayed:  s.GamesPlayed,
		AverageScore: s.AverageScore,
		LastActive:   s.LastActive,
	}
}

func FromStandings(in []model.Standing) []Standing {
	out := make([]Standing, len(in))
	for i, s := range in {
		out[i] = FromStanding(s)
	}
	return out
}

func FromOrder(o model.Order) Order {
	return Order{
		ID:         o.ID,
		CustomerID: o.CustomerID,
		ArtistID:   o.ArtistID,
		ArtworkID:  o.ArtworkID,
		Status:     string(o.Status),
		Amount:     o.Amount,
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}
}

func FromReview(r model.Review) Review {
	images := r.Images
	if images == nil {
		images = []string{}
	}
	return Review{
		ID:         r.ID,
		OrderID:    r.OrderID,
		ArtistID:   r.ArtistID,
		ArtworkID:  r.ArtworkID,
		CustomerID: r.CustomerID,
		Rating:     r.Rating,
		Title:      r.Title,
		Comment:    r.Comment,
		Images:     images,
		IsActive:   r.IsActive,
		Reported:   r.Reported,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func FromReviews(in []model.Review) []Review {
	out := make([]Review, len(in))
	for i, r := range in {
		out[i] = FromReview(r)
	}
	return out
}

func FromArtistRating(r model.ArtistRating) ArtistRating {
	return ArtistRating{ArtistID: r.ArtistID, Rating: r.Value(), TotalReviews: r.TotalReviews}
}

func FromEvent(ev model.Event) LiveEvent {
	return LiveEvent{Topic: ev.Topic, Key: ev.Key, OccurredAt: ev.OccurredAt, Data: ev.Data}
}
