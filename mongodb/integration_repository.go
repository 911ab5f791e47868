package mongodb

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/monthwrap/integrations/domain"
	ierrors "github.com/monthwrap/integrations/errors"
)

type IntegrationRepository struct {
	coll *mongo.Collection
}

func NewIntegrationRepository(db *mongo.Database) domain.IntegrationRepository {
	return &IntegrationRepository{
		coll: db.Collection(IntegrationsCollection),
	}
}

func (r *IntegrationRepository) Get(ctx context.Context, userID string, provider domain.Provider) (*domain.IntegrationRecord, error) {
	var record domain.IntegrationRecord
	err := r.coll.FindOne(ctx, bson.M{"user_id": userID, "provider": provider}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, ierrors.NewStore(provider.String(), "get", err)
	}
	return &record, nil
}

// Upsert reads the current record, merges the incoming fields over it
// and replaces the document. A refresh response that omits
// refresh_token therefore never clobbers the stored one.
func (r *IntegrationRepository) Upsert(ctx context.Context, record *domain.IntegrationRecord) error {
	existing, err := r.Get(ctx, record.UserID, record.Provider)
	if err != nil {
		return err
	}
	merged := domain.MergeRecords(existing, record)

	filter := bson.M{"user_id": merged.UserID, "provider": merged.Provider}
	_, err = r.coll.ReplaceOne(ctx, filter, merged, options.Replace().SetUpsert(true))
	if err != nil {
		log.Error().Err(err).
			Str("user_id", merged.UserID).
			Str("provider", merged.Provider.String()).
			Msg("Failed to upsert integration record")
		return ierrors.NewStore(merged.Provider.String(), "upsert", err)
	}
	return nil
}

func (r *IntegrationRepository) Delete(ctx context.Context, userID string, provider domain.Provider) (bool, error) {
	result, err := r.coll.DeleteOne(ctx, bson.M{"user_id": userID, "provider": provider})
	if err != nil {
		return false, ierrors.NewStore(provider.String(), "delete", err)
	}
	return result.DeletedCount > 0, nil
}
