package domain

import "time"

// TokenKind distinguishes app-access tokens (client credentials grant) from
// user-access tokens (device or authorization-code grant).
type TokenKind string

const (
	TokenKindApp  TokenKind = "app"
	TokenKindUser TokenKind = "user"
)

// TokenRecord is a persisted OAuth token minted for a CredentialSet. Access
// and refresh tokens are stored encrypted. Refresh overwrites the secrets,
// scopes and expiry of the same record; it never creates a sibling.
type TokenRecord struct {
	ID                    string    `bson:"_id" json:"id"`
	OwnerID               string    `bson:"owner_id" json:"owner_id"`
	CredentialSetID       string    `bson:"credential_set_id" json:"credential_set_id"`
	Kind                  TokenKind `bson:"kind" json:"kind"`
	EncryptedAccessToken  string    `bson:"encrypted_access_token" json:"-"`
	EncryptedRefreshToken string    `bson:"encrypted_refresh_token,omitempty" json:"-"`
	Scopes                []string  `bson:"scopes" json:"scopes"`

	// Subject identity, resolved via token validation. Only user tokens
	// carry these.
	TwitchUserID string `bson:"twitch_user_id,omitempty" json:"twitch_user_id,omitempty"`
	TwitchLogin  string `bson:"twitch_login,omitempty" json:"twitch_login,omitempty"`
	DisplayName  string `bson:"display_name,omitempty" json:"display_name,omitempty"`

	// ExpiresAt is absolute; provider-relative expires_in values are
	// converted at the moment of receipt. Nil means the provider reported
	// no expiry, which is not assumed for app tokens.
	ExpiresAt *time.Time `bson:"expires_at,omitempty" json:"expires_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// TokenUpdate carries the fields replaced in place by a refresh. All of them
// are applied in a single update.
type TokenUpdate struct {
	EncryptedAccessToken  string
	EncryptedRefreshToken string
	Scopes                []string
	ExpiresAt             *time.Time
}
