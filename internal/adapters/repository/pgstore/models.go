package pgstore

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/okian/kala/internal/domain/model"
)

type orderRow struct {
	bun.BaseModel `bun:"table:orders,alias:o"`
	ID            string    `bun:"id,pk"`
	CustomerID    string    `bun:"customer_id,notnull"`
	ArtistID      string    `bun:"artist_id,notnull"`
	ArtworkID     string    `bun:"artwork_id,notnull"`
	Status        string    `bun:"status,notnull"`
	Amount        int64     `bun:"amount,notnull"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
	UpdatedAt     time.Time `bun:"updated_at,notnull"`
}

func orderRowOf(o model.Order) *orderRow {
	return &orderRow{
		ID: o.ID, CustomerID: o.CustomerID, ArtistID: o.ArtistID, ArtworkID: o.ArtworkID,
		Status: string(o.Status), Amount: o.Amount, CreatedAt: o.CreatedAt, UpdatedAt: o.UpdatedAt,
	}
}

func (r *orderRow) model() model.Order {
	return model.Order{
		ID: r.ID, CustomerID: r.CustomerID, ArtistID: r.ArtistID, ArtworkID: r.ArtworkID,
		Status: model.OrderStatus(r.Status), Amount: r.Amount,
		CreatedAt: r.CreatedAt.UTC(), UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type reviewRow struct {
	bun.BaseModel `bun:"table:reviews,alias:r"`
	ID            string    `bun:"id,pk"`
	OrderID       string    `bun:"order_id,notnull"`
	ArtistID      string    `bun:"artist_id,notnull"`
	ArtworkID     string    `bun:"artwork_id,notnull"`
	CustomerID    string    `bun:"customer_id,notnull"`
	Rating        int       `bun:"rating,notnull"`
	Title         string    `bun:"title,notnull"`
	Comment       string    `bun:"comment,notnull"`
	Images        []string  `bun:"images,array,notnull"`
	IsActive      bool      `bun:"is_active,notnull"`
	Reported      bool      `bun:"reported,notnull"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
	UpdatedAt     time.Time `bun:"updated_at,notnull"`
}

func reviewRowOf(r model.Review) *reviewRow {
	images := r.Images
	if images == nil {
		images = []string{}
	}
	return &reviewRow{
		ID: r.ID, OrderID: r.OrderID, ArtistID: r.ArtistID, ArtworkID: r.ArtworkID,
		CustomerID: r.CustomerID, Rating: r.Rating, Title: r.Title, Comment: r.Comment,
		Images: images, IsActive: r.IsActive, Reported: r.Reported,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func (r *reviewRow) model() model.Review {
	return model.Review{
		ID: r.ID, OrderID: r.OrderID, ArtistID: r.ArtistID, ArtworkID: r.ArtworkID,
		CustomerID: r.CustomerID, Rating: r.Rating, Title: r.Title, Comment: r.Comment,
		Images: r.Images, IsActive: r.IsActive, Reported: r.Reported,
		CreatedAt: r.CreatedAt.UTC(), UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type artistRatingRow struct {
	bun.BaseModel `bun:"table:artist_ratings,alias:ar"`
	ArtistID      string `bun:"artist_id,pk"`
	Tenths        int    `bun:"tenths,notnull"`
	TotalReviews  int    `bun:"total_reviews,notnull"`
}
