package services

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/decagraff/twitch-developer-hub/domain"
	"github.com/decagraff/twitch-developer-hub/log"
	"github.com/decagraff/twitch-developer-hub/twitch"
)

// --- Mock Implementations ---

type MockCredentialRepository struct {
	mock.Mock
}

func (m *MockCredentialRepository) Create(ctx context.Context, cred *domain.CredentialSet) error {
	args := m.Called(ctx, cred)
	return args.Error(0)
}

func (m *MockCredentialRepository) GetByID(ctx context.Context, id string) (*domain.CredentialSet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CredentialSet), args.Error(1)
}

func (m *MockCredentialRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.CredentialSet, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.CredentialSet), args.Error(1)
}

func (m *MockCredentialRepository) Update(ctx context.Context, cred *domain.CredentialSet) error {
	args := m.Called(ctx, cred)
	return args.Error(0)
}

func (m *MockCredentialRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCredentialRepository) CountByOwnerAndClientID(ctx context.Context, ownerID, clientID string) (int64, error) {
	args := m.Called(ctx, ownerID, clientID)
	return args.Get(0).(int64), args.Error(1)
}

type MockTokenRepository struct {
	mock.Mock
}

func (m *MockTokenRepository) Create(ctx context.Context, token *domain.TokenRecord) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockTokenRepository) GetByID(ctx context.Context, id string) (*domain.TokenRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TokenRecord), args.Error(1)
}

func (m *MockTokenRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.TokenRecord, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.TokenRecord), args.Error(1)
}

func (m *MockTokenRepository) Update(ctx context.Context, id string, update *domain.TokenUpdate) error {
	args := m.Called(ctx, id, update)
	return args.Error(0)
}

func (m *MockTokenRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTokenRepository) FindFirstByKind(ctx context.Context, ownerID string, kind domain.TokenKind, credentialSetID string) (*domain.TokenRecord, error) {
	args := m.Called(ctx, ownerID, kind, credentialSetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TokenRecord), args.Error(1)
}

func (m *MockTokenRepository) CountByCredentialSet(ctx context.Context, credentialSetID string) (int64, error) {
	args := m.Called(ctx, credentialSetID)
	return args.Get(0).(int64), args.Error(1)
}

type MockWebhookRepository struct {
	mock.Mock
}

func (m *MockWebhookRepository) Create(ctx context.Context, sub *domain.WebhookSubscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *MockWebhookRepository) GetByID(ctx context.Context, id string) (*domain.WebhookSubscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WebhookSubscription), args.Error(1)
}

func (m *MockWebhookRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.WebhookSubscription, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.WebhookSubscription), args.Error(1)
}

func (m *MockWebhookRepository) UpdateBySubscriptionID(ctx context.Context, subscriptionID, status string, condition map[string]string, cost int) error {
	args := m.Called(ctx, subscriptionID, status, condition, cost)
	return args.Error(0)
}

func (m *MockWebhookRepository) DeleteByID(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockWebhookRepository) DeleteBySubscriptionID(ctx context.Context, subscriptionID string) error {
	args := m.Called(ctx, subscriptionID)
	return args.Error(0)
}

type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) ClientCredentials(ctx context.Context, clientID, clientSecret string) (*twitch.TokenResult, error) {
	args := m.Called(ctx, clientID, clientSecret)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*twitch.TokenResult), args.Error(1)
}

func (m *MockIdentityProvider) StartDeviceAuthorization(ctx context.Context, clientID string, scopes []string) (*twitch.DeviceAuthorizationResponse, error) {
	args := m.Called(ctx, clientID, scopes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*twitch.DeviceAuthorizationResponse), args.Error(1)
}

func (m *MockIdentityProvider) PollDeviceAuthorization(ctx context.Context, clientID, deviceCode string) (*twitch.TokenResult, error) {
	args := m.Called(ctx, clientID, deviceCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*twitch.TokenResult), args.Error(1)
}

func (m *MockIdentityProvider) AuthorizationURL(clientID, redirectURI string, scopes []string, state string, forceVerify bool) string {
	args := m.Called(clientID, redirectURI, scopes, state, forceVerify)
	return args.String(0)
}

func (m *MockIdentityProvider) ExchangeCode(ctx context.Context, clientID, clientSecret, code, redirectURI string) (*twitch.TokenResult, error) {
	args := m.Called(ctx, clientID, clientSecret, code, redirectURI)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*twitch.TokenResult), args.Error(1)
}

func (m *MockIdentityProvider) Refresh(ctx context.Context, clientID, clientSecret, refreshToken string) (*twitch.TokenResult, error) {
	args := m.Called(ctx, clientID, clientSecret, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*twitch.TokenResult), args.Error(1)
}

func (m *MockIdentityProvider) Validate(ctx context.Context, accessToken string) (*twitch.Validation, error) {
	args := m.Called(ctx, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*twitch.Validation), args.Error(1)
}

func (m *MockIdentityProvider) Revoke(ctx context.Context, clientID, accessToken string) error {
	args := m.Called(ctx, clientID, accessToken)
	return args.Error(0)
}

func (m *MockIdentityProvider) ListSubscriptions(ctx context.Context, appToken, clientID string) ([]twitch.Subscription, error) {
	args := m.Called(ctx, appToken, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]twitch.Subscription), args.Error(1)
}

func (m *MockIdentityProvider) CreateSubscription(ctx context.Context, appToken, clientID string, sub twitch.SubscriptionRequest) (*twitch.Subscription, error) {
	args := m.Called(ctx, appToken, clientID, sub)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*twitch.Subscription), args.Error(1)
}

func (m *MockIdentityProvider) DeleteSubscription(ctx context.Context, appToken, clientID, subscriptionID string) error {
	args := m.Called(ctx, appToken, clientID, subscriptionID)
	return args.Error(0)
}

// noopLogger discards everything; the service tests assert behavior, not log
// output.
type noopLogger struct{}

func (noopLogger) Debug(context.Context, string, ...map[string]any)        {}
func (noopLogger) Info(context.Context, string, ...map[string]any)         {}
func (noopLogger) Warn(context.Context, string, ...map[string]any)         {}
func (noopLogger) Error(context.Context, string, error, ...map[string]any) {}
func (noopLogger) Fatal(context.Context, string, error, ...map[string]any) {}
func (noopLogger) With(map[string]any) log.Logger                          { return noopLogger{} }
