package domain

import "time"

// WebhookSubscription is the local cache of a Twitch EventSub subscription.
// SubscriptionID is the provider's id and the real identity of the record;
// the local primary key is incidental. The cache is only authoritative as of
// the most recent sync pass.
type WebhookSubscription struct {
	ID              string            `bson:"_id" json:"id"`
	OwnerID         string            `bson:"owner_id" json:"owner_id"`
	CredentialSetID string            `bson:"credential_set_id" json:"credential_set_id"`
	SubscriptionID  string            `bson:"subscription_id" json:"subscription_id"`
	Type            string            `bson:"type" json:"type"`
	Version         string            `bson:"version" json:"version"`
	Condition       map[string]string `bson:"condition" json:"condition"`
	CallbackURL     string            `bson:"callback_url" json:"callback_url"`
	// Status is whatever string the provider reports (enabled,
	// webhook_callback_verification_pending, ...). Treated as opaque.
	Status    string    `bson:"status" json:"status"`
	Cost      int       `bson:"cost" json:"cost"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
