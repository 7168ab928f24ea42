package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/decagraff/twitch-developer-hub/domain"
	serrors "github.com/decagraff/twitch-developer-hub/errors"
)

// WebhookRepository implements domain.WebhookRepository on MongoDB.
type WebhookRepository struct {
	webhooks *mongo.Collection
}

// NewWebhookRepository creates the repository and ensures its indexes. The
// provider subscription id carries a unique index: it is the record's real
// identity, globally unique per Twitch's contract.
func NewWebhookRepository(ctx context.Context, db *mongo.Database) (*WebhookRepository, error) {
	coll := db.Collection(WebhooksCollection)

	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "subscription_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "owner_id", Value: 1}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating webhook_subscriptions indexes: %w", err)
	}

	return &WebhookRepository{webhooks: coll}, nil
}

func (r *WebhookRepository) Create(ctx context.Context, sub *domain.WebhookSubscription) error {
	_, err := r.webhooks.InsertOne(ctx, sub)
	return err
}

func (r *WebhookRepository) GetByID(ctx context.Context, id string) (*domain.WebhookSubscription, error) {
	var result domain.WebhookSubscription
	err := r.webhooks.FindOne(ctx, bson.M{"_id": id}).Decode(&result)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, serrors.ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

func (r *WebhookRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.WebhookSubscription, error) {
	cursor, err := r.webhooks.Find(ctx, bson.M{"owner_id": ownerID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []*domain.WebhookSubscription
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *WebhookRepository) UpdateBySubscriptionID(ctx context.Context, subscriptionID, status string, condition map[string]string, cost int) error {
	update := bson.M{"$set": bson.M{
		"status":     status,
		"condition":  condition,
		"cost":       cost,
		"updated_at": time.Now().UTC(),
	}}
	result, err := r.webhooks.UpdateOne(ctx, bson.M{"subscription_id": subscriptionID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return serrors.ErrNotFound
	}
	return nil
}

func (r *WebhookRepository) DeleteByID(ctx context.Context, id string) error {
	result, err := r.webhooks.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return serrors.ErrNotFound
	}
	return nil
}

func (r *WebhookRepository) DeleteBySubscriptionID(ctx context.Context, subscriptionID string) error {
	result, err := r.webhooks.DeleteOne(ctx, bson.M{"subscription_id": subscriptionID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return serrors.ErrNotFound
	}
	return nil
}
