package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/decagraff/twitch-developer-hub/domain"
	serrors "github.com/decagraff/twitch-developer-hub/errors"
)

// TokenRepository implements domain.TokenRepository on MongoDB.
type TokenRepository struct {
	tokens *mongo.Collection
}

// NewTokenRepository creates the repository and ensures its indexes.
func NewTokenRepository(ctx context.Context, db *mongo.Database) (*TokenRepository, error) {
	coll := db.Collection(TokenRecordsCollection)

	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "kind", Value: 1}}},
		{Keys: bson.D{{Key: "credential_set_id", Value: 1}}},
	})
	if err != nil {
		return nil, fmt.Errorf("creating token_records indexes: %w", err)
	}

	return &TokenRepository{tokens: coll}, nil
}

func (r *TokenRepository) Create(ctx context.Context, token *domain.TokenRecord) error {
	_, err := r.tokens.InsertOne(ctx, token)
	return err
}

func (r *TokenRepository) GetByID(ctx context.Context, id string) (*domain.TokenRecord, error) {
	var result domain.TokenRecord
	err := r.tokens.FindOne(ctx, bson.M{"_id": id}).Decode(&result)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, serrors.ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

func (r *TokenRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.TokenRecord, error) {
	cursor, err := r.tokens.Find(ctx, bson.M{"owner_id": ownerID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []*domain.TokenRecord
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// Update replaces secrets, scopes and expiry in a single $set so the refresh
// path stays atomic per record. It never upserts.
func (r *TokenRepository) Update(ctx context.Context, id string, update *domain.TokenUpdate) error {
	set := bson.M{
		"encrypted_access_token":  update.EncryptedAccessToken,
		"encrypted_refresh_token": update.EncryptedRefreshToken,
		"scopes":                  update.Scopes,
		"expires_at":              update.ExpiresAt,
		"updated_at":              time.Now().UTC(),
	}
	result, err := r.tokens.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return serrors.ErrNotFound
	}
	return nil
}

func (r *TokenRepository) Delete(ctx context.Context, id string) error {
	result, err := r.tokens.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return serrors.ErrNotFound
	}
	return nil
}

// FindFirstByKind returns the first matching token or (nil, nil) when none
// exists; absence is an expected outcome for the callers, not an error.
func (r *TokenRepository) FindFirstByKind(ctx context.Context, ownerID string, kind domain.TokenKind, credentialSetID string) (*domain.TokenRecord, error) {
	filter := bson.M{"owner_id": ownerID, "kind": kind}
	if credentialSetID != "" {
		filter["credential_set_id"] = credentialSetID
	}

	var result domain.TokenRecord
	err := r.tokens.FindOne(ctx, filter).Decode(&result)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *TokenRepository) CountByCredentialSet(ctx context.Context, credentialSetID string) (int64, error) {
	return r.tokens.CountDocuments(ctx, bson.M{"credential_set_id": credentialSetID})
}
