package services

import (
	"context"

	"github.com/decagraff/twitch-developer-hub/twitch"
)

// IdentityProvider is the slice of the Twitch client the services depend on.
// Tests substitute it with a mock; production wires *twitch.Client.
type IdentityProvider interface {
	ClientCredentials(ctx context.Context, clientID, clientSecret string) (*twitch.TokenResult, error)
	StartDeviceAuthorization(ctx context.Context, clientID string, scopes []string) (*twitch.DeviceAuthorizationResponse, error)
	PollDeviceAuthorization(ctx context.Context, clientID, deviceCode string) (*twitch.TokenResult, error)
	AuthorizationURL(clientID, redirectURI string, scopes []string, state string, forceVerify bool) string
	ExchangeCode(ctx context.Context, clientID, clientSecret, code, redirectURI string) (*twitch.TokenResult, error)
	Refresh(ctx context.Context, clientID, clientSecret, refreshToken string) (*twitch.TokenResult, error)
	Validate(ctx context.Context, accessToken string) (*twitch.Validation, error)
	Revoke(ctx context.Context, clientID, accessToken string) error
	ListSubscriptions(ctx context.Context, appToken, clientID string) ([]twitch.Subscription, error)
	CreateSubscription(ctx context.Context, appToken, clientID string, sub twitch.SubscriptionRequest) (*twitch.Subscription, error)
	DeleteSubscription(ctx context.Context, appToken, clientID, subscriptionID string) error
}

// SecretCodec is the encrypt/decrypt contract of the secret codec.
type SecretCodec interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(encoded string) (string, error)
}
