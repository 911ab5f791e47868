package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const IntegrationsCollection = "integrations" // one record per (user_id, provider)

// EnsureIndexes creates the unique compound index that backs the
// merge-upsert conflict key.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(IntegrationsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "provider", Value: 1},
		},
		Options: options.Index().SetUnique(true).SetName("user_provider_unique"),
	})
	return err
}
