package domain

import "time"

// CredentialSet pairs a Twitch application's public client id with its
// confidential secret, owned by exactly one user. The secret is only ever
// stored encrypted.
type CredentialSet struct {
	ID                    string    `bson:"_id" json:"id"`
	OwnerID               string    `bson:"owner_id" json:"owner_id"`
	Name                  string    `bson:"name" json:"name"`
	ClientID              string    `bson:"client_id" json:"client_id"`
	EncryptedClientSecret string    `bson:"encrypted_client_secret" json:"-"`
	CreatedAt             time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt             time.Time `bson:"updated_at" json:"updated_at"`
}
