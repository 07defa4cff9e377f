package model

import (
	"context"
	"time"
)

// Event topics.
const (
	TopicScoreRecorded       = "score.recorded"
	TopicArtistRatingUpdated = "artist.rating.updated"
	TopicOrderStatusChanged  = "order.status.changed"
)

// Event is a domain fact emitted after a successful write.
type Event struct {
	Topic string
	// Key is the aggregate the event is about: a player, artist or order id.
	Key        string
	OccurredAt time.Time
	Data       any
}

// Publisher delivers domain events. Implementations must not block on slow consumers.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// ScoreRecorded is the payload of TopicScoreRecorded.
type ScoreRecorded struct {
	PlayerID     string `json:"playerId"`
	DisplayName  string `json:"displayName"`
	Rank         int    `json:"rank"`
	TotalScore   int64  `json:"totalScore"`
	GamesPlayed  int64  `json:"gamesPlayed"`
	AverageScore int64  `json:"averageScore"`
	GameID       string `json:"gameId,omitempty"`
	Score        int64  `json:"score"`
}

// ArtistRatingUpdated is the payload of TopicArtistRatingUpdated.
type ArtistRatingUpdated struct {
	ArtistID     string  `json:"artistId"`
	Rating       float64 `json:"rating"`
	TotalReviews int     `json:"totalReviews"`
	Cause        string  `json:"cause"`
}

// OrderStatusChanged is the payload of TopicOrderStatusChanged.
type OrderStatusChanged struct {
	OrderID string      `json:"orderId"`
	From    OrderStatus `json:"from"`
	To      OrderStatus `json:"to"`
}
