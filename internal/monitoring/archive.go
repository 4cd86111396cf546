package monitoring

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Archive stores raw monitoring payloads for later reprocessing. Nil-safe:
// a nil *Archive drops everything, so the service runs without Mongo wired.
type Archive struct {
	collection *mongo.Collection
}

func NewArchive(ctx context.Context, uri, database, collection string) (*Archive, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, fmt.Errorf("mongo unreachable: %w", err)
	}
	if database == "" {
		database = "carbonchain"
	}
	if collection == "" {
		collection = "monitoring_raw"
	}
	return &Archive{collection: client.Database(database).Collection(collection)}, nil
}

func (a *Archive) Store(ctx context.Context, kind string, payload interface{}) error {
	if a == nil {
		return nil
	}
	_, err := a.collection.InsertOne(ctx, bson.M{
		"kind":        kind,
		"payload":     payload,
		"archived_at": time.Now().UTC(),
	})
	return err
}
