package domain

import "context"

// CredentialRepository persists credential sets.
type CredentialRepository interface {
	Create(ctx context.Context, cred *CredentialSet) error
	GetByID(ctx context.Context, id string) (*CredentialSet, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*CredentialSet, error)
	Update(ctx context.Context, cred *CredentialSet) error
	Delete(ctx context.Context, id string) error
	// CountByOwnerAndClientID backs the (owner, client id) uniqueness check.
	CountByOwnerAndClientID(ctx context.Context, ownerID, clientID string) (int64, error)
}

// TokenRepository persists token records.
type TokenRepository interface {
	Create(ctx context.Context, token *TokenRecord) error
	GetByID(ctx context.Context, id string) (*TokenRecord, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*TokenRecord, error)
	// Update replaces secrets, scopes and expiry of an existing record in a
	// single write; it never inserts.
	Update(ctx context.Context, id string, update *TokenUpdate) error
	Delete(ctx context.Context, id string) error
	// FindFirstByKind returns the first token of the given kind owned by
	// ownerID, optionally restricted to one credential set (empty string
	// means any). A nil record with nil error means none exists.
	FindFirstByKind(ctx context.Context, ownerID string, kind TokenKind, credentialSetID string) (*TokenRecord, error)
	CountByCredentialSet(ctx context.Context, credentialSetID string) (int64, error)
}

// WebhookRepository persists the local EventSub subscription cache.
type WebhookRepository interface {
	Create(ctx context.Context, sub *WebhookSubscription) error
	GetByID(ctx context.Context, id string) (*WebhookSubscription, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*WebhookSubscription, error)
	// UpdateBySubscriptionID overwrites status, condition and cost from the
	// provider's copy.
	UpdateBySubscriptionID(ctx context.Context, subscriptionID, status string, condition map[string]string, cost int) error
	DeleteByID(ctx context.Context, id string) error
	DeleteBySubscriptionID(ctx context.Context, subscriptionID string) error
}
