package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/decagraff/twitch-developer-hub/cache"
	"github.com/decagraff/twitch-developer-hub/domain"
	serrors "github.com/decagraff/twitch-developer-hub/errors"
	"github.com/decagraff/twitch-developer-hub/log"
	"github.com/decagraff/twitch-developer-hub/twitch"
)

// DeviceFlowState is the caller-visible outcome of a single device-flow poll.
type DeviceFlowState string

const (
	DeviceFlowPending    DeviceFlowState = "pending"
	DeviceFlowAuthorized DeviceFlowState = "authorized"
	DeviceFlowDenied     DeviceFlowState = "denied"
	DeviceFlowExpired    DeviceFlowState = "expired"
)

// DeviceFlowStatus reports one poll. Token is set only when State is
// authorized.
type DeviceFlowStatus struct {
	State DeviceFlowState     `json:"state"`
	Token *domain.TokenRecord `json:"token,omitempty"`
}

// AuthorizationRedirect is the first leg of the authorization-code flow.
type AuthorizationRedirect struct {
	URL   string `json:"url"`
	State string `json:"state"`
}

// TokenValidation is the outcome of validating a stored token. An invalid
// token is an expected steady state, reported here rather than as an error.
type TokenValidation struct {
	Valid     bool       `json:"valid"`
	ClientID  string     `json:"client_id,omitempty"`
	Login     string     `json:"login,omitempty"`
	UserID    string     `json:"user_id,omitempty"`
	Scopes    []string   `json:"scopes,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// TokenService drives the three OAuth grant flows against Twitch and owns the
// persisted token records. It performs no retries, no background work and no
// timers: every operation is one synchronous unit of work, and the device
// flow's polling cadence belongs entirely to the caller.
type TokenService struct {
	credentials domain.CredentialRepository
	tokens      domain.TokenRepository
	provider    IdentityProvider
	codec       SecretCodec
	states      cache.StateStore
	logger      log.Logger
}

// NewTokenService wires a TokenService.
func NewTokenService(
	credentials domain.CredentialRepository,
	tokens domain.TokenRepository,
	provider IdentityProvider,
	codec SecretCodec,
	states cache.StateStore,
	logger log.Logger,
) *TokenService {
	return &TokenService{
		credentials: credentials,
		tokens:      tokens,
		provider:    provider,
		codec:       codec,
		states:      states,
		logger:      logger,
	}
}

// credentialForOwner loads a credential set and enforces the resource guard:
// existence is checked before ownership, so missing rows always read as
// not-found and forbidden only ever means "exists, but not yours".
func (s *TokenService) credentialForOwner(ctx context.Context, ownerID, credentialSetID string) (*domain.CredentialSet, error) {
	cred, err := s.credentials.GetByID(ctx, credentialSetID)
	if err != nil {
		return nil, err
	}
	if cred.OwnerID != ownerID {
		return nil, serrors.ErrForbidden
	}
	return cred, nil
}

// tokenForOwner applies the same guard to token records.
func (s *TokenService) tokenForOwner(ctx context.Context, ownerID, tokenID string) (*domain.TokenRecord, error) {
	token, err := s.tokens.GetByID(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if token.OwnerID != ownerID {
		return nil, serrors.ErrForbidden
	}
	return token, nil
}

// MintAppToken runs the client-credentials grant and persists a new app-kind
// token record. Every call mints an independent record; there is no dedup.
func (s *TokenService) MintAppToken(ctx context.Context, ownerID, credentialSetID string) (*domain.TokenRecord, error) {
	cred, err := s.credentialForOwner(ctx, ownerID, credentialSetID)
	if err != nil {
		return nil, err
	}

	clientSecret, err := s.codec.Decrypt(cred.EncryptedClientSecret)
	if err != nil {
		return nil, fmt.Errorf("decrypting client secret: %w", err)
	}

	result, err := s.provider.ClientCredentials(ctx, cred.ClientID, clientSecret)
	if err != nil {
		return nil, err
	}

	encryptedAccess, err := s.codec.Encrypt(result.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("encrypting access token: %w", err)
	}

	now := time.Now().UTC()
	record := &domain.TokenRecord{
		ID:                   uuid.NewString(),
		OwnerID:              ownerID,
		CredentialSetID:      cred.ID,
		Kind:                 domain.TokenKindApp,
		EncryptedAccessToken: encryptedAccess,
		Scopes:               []string{},
		ExpiresAt:            absoluteExpiry(now, result.ExpiresIn),
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.tokens.Create(ctx, record); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "minted app access token", map[string]any{
		"owner_id":          ownerID,
		"credential_set_id": cred.ID,
		"token_id":          record.ID,
	})
	return record, nil
}

// StartDeviceFlow begins a device authorization and hands the provider's
// session descriptor back verbatim. Nothing is persisted: the device code the
// caller threads through subsequent polls is the whole session.
func (s *TokenService) StartDeviceFlow(ctx context.Context, ownerID, credentialSetID string, scopes []string) (*domain.DeviceAuthorization, error) {
	cred, err := s.credentialForOwner(ctx, ownerID, credentialSetID)
	if err != nil {
		return nil, err
	}

	resp, err := s.provider.StartDeviceAuthorization(ctx, cred.ClientID, scopes)
	if err != nil {
		return nil, err
	}

	return &domain.DeviceAuthorization{
		DeviceCode:      resp.DeviceCode,
		UserCode:        resp.UserCode,
		VerificationURI: resp.VerificationURI,
		ExpiresIn:       resp.ExpiresIn,
		Interval:        resp.Interval,
	}, nil
}

// PollDeviceFlow performs one poll of a pending device authorization. Pending
// is a normal outcome, not an error. On success the subject identity is
// resolved via token validation and exactly one user-kind record is persisted,
// no matter how many polls preceded it.
func (s *TokenService) PollDeviceFlow(ctx context.Context, ownerID, credentialSetID, deviceCode string) (*DeviceFlowStatus, error) {
	cred, err := s.credentialForOwner(ctx, ownerID, credentialSetID)
	if err != nil {
		return nil, err
	}

	result, err := s.provider.PollDeviceAuthorization(ctx, cred.ClientID, deviceCode)
	switch {
	case err == nil && result == nil:
		return &DeviceFlowStatus{State: DeviceFlowPending}, nil
	case serrors.IsAccessDenied(err):
		return &DeviceFlowStatus{State: DeviceFlowDenied}, nil
	case serrors.IsDeviceCodeExpired(err):
		return &DeviceFlowStatus{State: DeviceFlowExpired}, nil
	case err != nil:
		return nil, err
	}

	record, err := s.persistUserToken(ctx, ownerID, cred.ID, result)
	if err != nil {
		return nil, err
	}
	return &DeviceFlowStatus{State: DeviceFlowAuthorized, Token: record}, nil
}

// BeginAuthorizationFlow builds the authorization URL and parks the flow
// under a fresh random state value until the callback returns.
func (s *TokenService) BeginAuthorizationFlow(ctx context.Context, ownerID, credentialSetID, redirectURI string, scopes []string, forceVerify bool) (*AuthorizationRedirect, error) {
	cred, err := s.credentialForOwner(ctx, ownerID, credentialSetID)
	if err != nil {
		return nil, err
	}

	state, err := newStateValue()
	if err != nil {
		return nil, err
	}

	pending := &cache.PendingAuthorization{
		OwnerID:         ownerID,
		CredentialSetID: cred.ID,
		RedirectURI:     redirectURI,
		Scopes:          scopes,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.states.Put(ctx, state, pending); err != nil {
		return nil, fmt.Errorf("storing oauth state: %w", err)
	}

	url := s.provider.AuthorizationURL(cred.ClientID, redirectURI, scopes, state, forceVerify)
	return &AuthorizationRedirect{URL: url, State: state}, nil
}

// CompleteAuthorizationFlow finishes the authorization-code flow after the
// callback. The state is single-use; an unknown or replayed state fails
// before anything reaches Twitch.
func (s *TokenService) CompleteAuthorizationFlow(ctx context.Context, code, state string) (*domain.TokenRecord, error) {
	pending, err := s.states.Consume(ctx, state)
	if err != nil {
		return nil, err
	}

	cred, err := s.credentialForOwner(ctx, pending.OwnerID, pending.CredentialSetID)
	if err != nil {
		return nil, err
	}

	clientSecret, err := s.codec.Decrypt(cred.EncryptedClientSecret)
	if err != nil {
		return nil, fmt.Errorf("decrypting client secret: %w", err)
	}

	result, err := s.provider.ExchangeCode(ctx, cred.ClientID, clientSecret, code, pending.RedirectURI)
	if err != nil {
		return nil, err
	}

	return s.persistUserToken(ctx, pending.OwnerID, cred.ID, result)
}

// Refresh redeems the stored refresh token and overwrites the record's
// secrets, scopes and expiry in a single update. The record keeps its
// identity; refresh never appends a sibling.
func (s *TokenService) Refresh(ctx context.Context, ownerID, tokenID string) (*domain.TokenRecord, error) {
	token, err := s.tokenForOwner(ctx, ownerID, tokenID)
	if err != nil {
		return nil, err
	}
	if token.Kind != domain.TokenKindUser || token.EncryptedRefreshToken == "" {
		return nil, serrors.ErrNotRefreshable
	}

	cred, err := s.credentials.GetByID(ctx, token.CredentialSetID)
	if err != nil {
		return nil, fmt.Errorf("loading owning credential set: %w", err)
	}

	refreshToken, err := s.codec.Decrypt(token.EncryptedRefreshToken)
	if err != nil {
		return nil, fmt.Errorf("decrypting refresh token: %w", err)
	}
	clientSecret, err := s.codec.Decrypt(cred.EncryptedClientSecret)
	if err != nil {
		return nil, fmt.Errorf("decrypting client secret: %w", err)
	}

	result, err := s.provider.Refresh(ctx, cred.ClientID, clientSecret, refreshToken)
	if err != nil {
		// invalid_grant here means the stored record is dead; the caller
		// decides whether to delete it or start a new flow.
		return nil, err
	}

	encryptedAccess, err := s.codec.Encrypt(result.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("encrypting access token: %w", err)
	}
	encryptedRefresh := token.EncryptedRefreshToken
	if result.RefreshToken != "" {
		encryptedRefresh, err = s.codec.Encrypt(result.RefreshToken)
		if err != nil {
			return nil, fmt.Errorf("encrypting refresh token: %w", err)
		}
	}

	now := time.Now().UTC()
	update := &domain.TokenUpdate{
		EncryptedAccessToken:  encryptedAccess,
		EncryptedRefreshToken: encryptedRefresh,
		Scopes:                normalizeScopes(result.Scopes),
		ExpiresAt:             absoluteExpiry(now, result.ExpiresIn),
	}
	if err := s.tokens.Update(ctx, token.ID, update); err != nil {
		return nil, err
	}

	token.EncryptedAccessToken = update.EncryptedAccessToken
	token.EncryptedRefreshToken = update.EncryptedRefreshToken
	token.Scopes = update.Scopes
	token.ExpiresAt = update.ExpiresAt
	token.UpdatedAt = now
	return token, nil
}

// Validate checks a stored token against Twitch. A provider invalid_token
// answer is translated into Valid:false; it is a common steady state, not an
// exception.
func (s *TokenService) Validate(ctx context.Context, ownerID, tokenID string) (*TokenValidation, error) {
	token, err := s.tokenForOwner(ctx, ownerID, tokenID)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.codec.Decrypt(token.EncryptedAccessToken)
	if err != nil {
		return nil, fmt.Errorf("decrypting access token: %w", err)
	}

	v, err := s.provider.Validate(ctx, accessToken)
	if err != nil {
		if serrors.IsInvalidToken(err) {
			return &TokenValidation{Valid: false}, nil
		}
		return nil, err
	}

	return &TokenValidation{
		Valid:     true,
		ClientID:  v.ClientID,
		Login:     v.Login,
		UserID:    v.UserID,
		Scopes:    v.Scopes,
		ExpiresAt: absoluteExpiry(time.Now().UTC(), v.ExpiresIn),
	}, nil
}

// ListTokens returns the owner's token records.
func (s *TokenService) ListTokens(ctx context.Context, ownerID string) ([]*domain.TokenRecord, error) {
	return s.tokens.ListByOwner(ctx, ownerID)
}

// DeleteToken revokes the token at Twitch on a best-effort basis, then
// deletes the record. A failed revocation is logged, not fatal: the record is
// being destroyed either way and Twitch expires orphans on its own.
func (s *TokenService) DeleteToken(ctx context.Context, ownerID, tokenID string) error {
	token, err := s.tokenForOwner(ctx, ownerID, tokenID)
	if err != nil {
		return err
	}

	cred, err := s.credentials.GetByID(ctx, token.CredentialSetID)
	if err == nil {
		if accessToken, decErr := s.codec.Decrypt(token.EncryptedAccessToken); decErr == nil {
			if revErr := s.provider.Revoke(ctx, cred.ClientID, accessToken); revErr != nil {
				s.logger.Warn(ctx, "token revocation failed, deleting record anyway", map[string]any{
					"token_id": token.ID,
					"error":    revErr.Error(),
				})
			}
		}
	}

	return s.tokens.Delete(ctx, token.ID)
}

// persistUserToken is the shared success path of the device and
// authorization-code flows: resolve the subject via validation, encrypt both
// secrets, persist one user-kind record.
func (s *TokenService) persistUserToken(ctx context.Context, ownerID, credentialSetID string, result *twitch.TokenResult) (*domain.TokenRecord, error) {
	// The grant response carries no subject identity; the validate
	// endpoint does.
	v, err := s.provider.Validate(ctx, result.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("resolving token subject: %w", err)
	}

	encryptedAccess, err := s.codec.Encrypt(result.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("encrypting access token: %w", err)
	}
	encryptedRefresh := ""
	if result.RefreshToken != "" {
		encryptedRefresh, err = s.codec.Encrypt(result.RefreshToken)
		if err != nil {
			return nil, fmt.Errorf("encrypting refresh token: %w", err)
		}
	}

	now := time.Now().UTC()
	record := &domain.TokenRecord{
		ID:                    uuid.NewString(),
		OwnerID:               ownerID,
		CredentialSetID:       credentialSetID,
		Kind:                  domain.TokenKindUser,
		EncryptedAccessToken:  encryptedAccess,
		EncryptedRefreshToken: encryptedRefresh,
		Scopes:                normalizeScopes(result.Scopes),
		TwitchUserID:          v.UserID,
		TwitchLogin:           v.Login,
		DisplayName:           v.Login,
		ExpiresAt:             absoluteExpiry(now, result.ExpiresIn),
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := s.tokens.Create(ctx, record); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "minted user access token", map[string]any{
		"owner_id":          ownerID,
		"credential_set_id": credentialSetID,
		"token_id":          record.ID,
		"twitch_login":      v.Login,
	})
	return record, nil
}

// absoluteExpiry converts a provider-relative expires_in to an absolute
// timestamp at the moment of receipt. Zero or negative means the provider
// reported no expiry.
func absoluteExpiry(now time.Time, expiresIn int) *time.Time {
	if expiresIn <= 0 {
		return nil
	}
	t := now.Add(time.Duration(expiresIn) * time.Second)
	return &t
}

func normalizeScopes(scopes []string) []string {
	if scopes == nil {
		return []string{}
	}
	return scopes
}

// newStateValue generates the CSRF state for the authorization-code flow:
// 32 random bytes, hex encoded.
func newStateValue() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating state: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
