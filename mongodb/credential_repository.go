package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/decagraff/twitch-developer-hub/domain"
	serrors "github.com/decagraff/twitch-developer-hub/errors"
)

// CredentialRepository implements domain.CredentialRepository on MongoDB.
type CredentialRepository struct {
	credentials *mongo.Collection
}

// NewCredentialRepository creates the repository and ensures its indexes.
func NewCredentialRepository(ctx context.Context, db *mongo.Database) (*CredentialRepository, error) {
	coll := db.Collection(CredentialSetsCollection)

	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "client_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "owner_id", Value: 1}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating credential_sets indexes: %w", err)
	}

	return &CredentialRepository{credentials: coll}, nil
}

func (r *CredentialRepository) Create(ctx context.Context, cred *domain.CredentialSet) error {
	_, err := r.credentials.InsertOne(ctx, cred)
	return err
}

func (r *CredentialRepository) GetByID(ctx context.Context, id string) (*domain.CredentialSet, error) {
	var result domain.CredentialSet
	err := r.credentials.FindOne(ctx, bson.M{"_id": id}).Decode(&result)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, serrors.ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

func (r *CredentialRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.CredentialSet, error) {
	cursor, err := r.credentials.Find(ctx, bson.M{"owner_id": ownerID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []*domain.CredentialSet
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *CredentialRepository) Update(ctx context.Context, cred *domain.CredentialSet) error {
	update := bson.M{"$set": bson.M{
		"name":                    cred.Name,
		"encrypted_client_secret": cred.EncryptedClientSecret,
		"updated_at":              cred.UpdatedAt,
	}}
	result, err := r.credentials.UpdateOne(ctx, bson.M{"_id": cred.ID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return serrors.ErrNotFound
	}
	return nil
}

func (r *CredentialRepository) Delete(ctx context.Context, id string) error {
	result, err := r.credentials.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return serrors.ErrNotFound
	}
	return nil
}

func (r *CredentialRepository) CountByOwnerAndClientID(ctx context.Context, ownerID, clientID string) (int64, error) {
	return r.credentials.CountDocuments(ctx, bson.M{"owner_id": ownerID, "client_id": clientID})
}
