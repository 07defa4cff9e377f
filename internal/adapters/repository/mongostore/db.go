// Package mongostore keeps the leaderboard and the marketplace in MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/okian/kala/internal/domain/apperr"
	"github.com/okian/kala/pkg/metrics"
)

const backend = "mongo"

// DB wraps a connected client and the service database.
type DB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// Open connects, pings and ensures indexes.
func Open(ctx context.Context, uri, database string) (*DB, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(200).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(5 * time.Minute)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := &DB{Client: client, Database: client.Database(database)}
	if err := db.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return db, nil
}

func (m *DB) ensureIndexes(ctx context.Context) error {
	indexes := []struct {
		collection string
		models     []mongo.IndexModel
	}{
		{
			"players",
			[]mongo.IndexModel{
				{Keys: bson.D{{Key: "totalScore", Value: -1}, {Key: "seq", Value: 1}}},
				{Keys: bson.D{{Key: "seq", Value: 1}}, Options: options.Index().SetUnique(true)},
			},
		},
		{
			"orders",
			[]mongo.IndexModel{
				{Keys: bson.D{{Key: "customerId", Value: 1}, {Key: "createdAt", Value: -1}}},
				{Keys: bson.D{{Key: "artistId", Value: 1}, {Key: "createdAt", Value: -1}}},
			},
		},
		{
			"reviews",
			[]mongo.IndexModel{
				{Keys: bson.D{{Key: "orderId", Value: 1}}, Options: options.Index().SetUnique(true)},
				{Keys: bson.D{{Key: "artistId", Value: 1}, {Key: "isActive", Value: 1}, {Key: "createdAt", Value: -1}}},
			},
		},
	}
	for _, idx := range indexes {
		if _, err := m.Database.Collection(idx.collection).Indexes().CreateMany(ctx, idx.models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", idx.collection, err)
		}
	}
	return nil
}

// Close disconnects the client.
func (m *DB) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}

func (m *DB) Players() *mongo.Collection       { return m.Database.Collection("players") }
func (m *DB) Counters() *mongo.Collection      { return m.Database.Collection("counters") }
func (m *DB) Orders() *mongo.Collection        { return m.Database.Collection("orders") }
func (m *DB) Reviews() *mongo.Collection       { return m.Database.Collection("reviews") }
func (m *DB) ArtistRatings() *mongo.Collection { return m.Database.Collection("artist_ratings") }

// nextSeq atomically increments and returns the named counter.
func (m *DB) nextSeq(ctx context.Context, name string) (int64, error) {
	var doc struct {
		Value int64 `bson:"value"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := m.Counters().FindOneAndUpdate(ctx, bson.M{"_id": name}, bson.M{"$inc": bson.M{"value": 1}}, opts).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("failed to increment counter %s: %w", name, err)
	}
	return doc.Value, nil
}

func observe(op string, start time.Time, err *error) {
	metrics.RecordStoreLatency(backend, op, float64(time.Since(start).Microseconds())/1000)
	if *err != nil && apperr.Kind(*err) == nil {
		metrics.RecordStoreError(backend, op)
	}
}

func notFound(err error) bool { return errors.Is(err, mongo.ErrNoDocuments) }
