package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/decagraff/twitch-developer-hub/domain"
	serrors "github.com/decagraff/twitch-developer-hub/errors"
	"github.com/decagraff/twitch-developer-hub/log"
	"github.com/decagraff/twitch-developer-hub/twitch"
)

// SyncReport aggregates one reconciliation pass across every credential set
// it processed.
type SyncReport struct {
	Imported int `json:"imported"`
	Updated  int `json:"updated"`
	Removed  int `json:"removed"`
	Total    int `json:"total"`
	// SyncedCredentials names every credential set that completed; failed
	// ones are skipped and logged, not listed.
	SyncedCredentials []string `json:"synced_credentials"`
}

// WebhookService keeps the local EventSub subscription cache reconciled
// against Twitch's authoritative list, and proxies subscription create and
// delete calls.
type WebhookService struct {
	credentials domain.CredentialRepository
	tokens      domain.TokenRepository
	webhooks    domain.WebhookRepository
	provider    IdentityProvider
	codec       SecretCodec
	logger      log.Logger
}

// NewWebhookService wires a WebhookService.
func NewWebhookService(
	credentials domain.CredentialRepository,
	tokens domain.TokenRepository,
	webhooks domain.WebhookRepository,
	provider IdentityProvider,
	codec SecretCodec,
	logger log.Logger,
) *WebhookService {
	return &WebhookService{
		credentials: credentials,
		tokens:      tokens,
		webhooks:    webhooks,
		provider:    provider,
		codec:       codec,
		logger:      logger,
	}
}

// Sync reconciles the local cache against Twitch. With an empty
// credentialSetID every credential set of the owner is a candidate; otherwise
// only the named one. Each candidate needs an app-kind token; candidates
// without one are skipped, and if none has one the whole pass fails with
// ErrNoUsableCredential instead of silently reporting zeros.
//
// A failure against one credential set (revoked token, unreadable stored
// token, network trouble) is logged and that set is skipped; the pass
// continues with the rest.
func (s *WebhookService) Sync(ctx context.Context, ownerID, credentialSetID string) (*SyncReport, error) {
	candidates, err := s.candidates(ctx, ownerID, credentialSetID)
	if err != nil {
		return nil, err
	}

	report := &SyncReport{SyncedCredentials: []string{}}
	usable := 0

	// Fetch phase: one authoritative remote list per usable credential set.
	var fetched []fetchedList
	syncedSets := make(map[string]struct{})

	for _, cred := range candidates {
		appToken, err := s.usableAppToken(ctx, ownerID, cred.ID)
		if err != nil {
			// A set whose stored token cannot be read is no more fatal
			// than one whose token Twitch rejects: skip it, keep going.
			s.logger.Warn(ctx, "skipping credential set with unreadable app token", map[string]any{
				"credential_set_id": cred.ID,
				"name":              cred.Name,
				"error":             err.Error(),
			})
			continue
		}
		if appToken == "" {
			continue
		}
		usable++

		remote, err := s.provider.ListSubscriptions(ctx, appToken, cred.ClientID)
		if err != nil {
			s.logger.Warn(ctx, "skipping credential set after sync failure", map[string]any{
				"credential_set_id": cred.ID,
				"name":              cred.Name,
				"error":             err.Error(),
			})
			continue
		}

		fetched = append(fetched, fetchedList{cred: cred, subs: remote})
		syncedSets[cred.ID] = struct{}{}
		report.SyncedCredentials = append(report.SyncedCredentials, cred.Name)
	}

	if usable == 0 {
		return nil, serrors.ErrNoUsableCredential
	}

	if err := s.merge(ctx, ownerID, fetched, syncedSets, report); err != nil {
		return nil, err
	}

	report.Total = report.Imported + report.Updated
	return report, nil
}

// fetchedList pairs a credential set with the remote subscriptions its app
// token could see.
type fetchedList struct {
	cred *domain.CredentialSet
	subs []twitch.Subscription
}

// merge applies the fetched remote lists to the local cache in one pass.
// Local records are partitioned by owner only; provider subscription ids are
// globally unique per Twitch's contract, so the lists can be merged flat.
func (s *WebhookService) merge(ctx context.Context, ownerID string, fetched []fetchedList, syncedSets map[string]struct{}, report *SyncReport) error {
	local, err := s.webhooks.ListByOwner(ctx, ownerID)
	if err != nil {
		return err
	}
	localByProviderID := make(map[string]*domain.WebhookSubscription, len(local))
	for _, sub := range local {
		localByProviderID[sub.SubscriptionID] = sub
	}

	remoteIDs := make(map[string]struct{})
	now := time.Now().UTC()

	for _, list := range fetched {
		for _, sub := range list.subs {
			remoteIDs[sub.ID] = struct{}{}

			if _, exists := localByProviderID[sub.ID]; exists {
				// A matching id always counts as updated, even when
				// the remote copy is byte-for-byte identical.
				if err := s.webhooks.UpdateBySubscriptionID(ctx, sub.ID, sub.Status, sub.Condition, sub.Cost); err != nil {
					return err
				}
				report.Updated++
				continue
			}

			record := &domain.WebhookSubscription{
				ID:              uuid.NewString(),
				OwnerID:         ownerID,
				CredentialSetID: list.cred.ID,
				SubscriptionID:  sub.ID,
				Type:            sub.Type,
				Version:         sub.Version,
				Condition:       sub.Condition,
				CallbackURL:     sub.Transport.Callback,
				Status:          sub.Status,
				Cost:            sub.Cost,
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			if err := s.webhooks.Create(ctx, record); err != nil {
				return err
			}
			report.Imported++
		}
	}

	// Full sync, not additive: anything Twitch no longer reports is stale
	// and purged. Records attributed to a set that failed or was not part
	// of this pass are left alone; their authoritative list was not seen.
	for providerID, sub := range localByProviderID {
		if _, live := remoteIDs[providerID]; live {
			continue
		}
		if _, synced := syncedSets[sub.CredentialSetID]; !synced {
			continue
		}
		if err := s.webhooks.DeleteByID(ctx, sub.ID); err != nil {
			return err
		}
		report.Removed++
	}

	return nil
}

func (s *WebhookService) candidates(ctx context.Context, ownerID, credentialSetID string) ([]*domain.CredentialSet, error) {
	if credentialSetID == "" {
		return s.credentials.ListByOwner(ctx, ownerID)
	}

	cred, err := s.credentials.GetByID(ctx, credentialSetID)
	if err != nil {
		return nil, err
	}
	if cred.OwnerID != ownerID {
		return nil, serrors.ErrForbidden
	}
	return []*domain.CredentialSet{cred}, nil
}

// usableAppToken returns the decrypted app access token for the credential
// set, or empty when none is stored.
func (s *WebhookService) usableAppToken(ctx context.Context, ownerID, credentialSetID string) (string, error) {
	record, err := s.tokens.FindFirstByKind(ctx, ownerID, domain.TokenKindApp, credentialSetID)
	if err != nil {
		return "", err
	}
	if record == nil {
		return "", nil
	}

	token, err := s.codec.Decrypt(record.EncryptedAccessToken)
	if err != nil {
		return "", fmt.Errorf("decrypting app token: %w", err)
	}
	return token, nil
}

// List returns the owner's cached subscriptions. The cache is authoritative
// only as of the last sync pass.
func (s *WebhookService) List(ctx context.Context, ownerID string) ([]*domain.WebhookSubscription, error) {
	return s.webhooks.ListByOwner(ctx, ownerID)
}

// Create registers a subscription at Twitch through the credential set's app
// token and caches the result locally.
func (s *WebhookService) Create(ctx context.Context, ownerID, credentialSetID string, req twitch.SubscriptionRequest) (*domain.WebhookSubscription, error) {
	cred, err := s.credentials.GetByID(ctx, credentialSetID)
	if err != nil {
		return nil, err
	}
	if cred.OwnerID != ownerID {
		return nil, serrors.ErrForbidden
	}

	appToken, err := s.usableAppToken(ctx, ownerID, cred.ID)
	if err != nil {
		return nil, err
	}
	if appToken == "" {
		return nil, serrors.ErrNoUsableCredential
	}

	created, err := s.provider.CreateSubscription(ctx, appToken, cred.ClientID, req)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	record := &domain.WebhookSubscription{
		ID:              uuid.NewString(),
		OwnerID:         ownerID,
		CredentialSetID: cred.ID,
		SubscriptionID:  created.ID,
		Type:            created.Type,
		Version:         created.Version,
		Condition:       created.Condition,
		CallbackURL:     created.Transport.Callback,
		Status:          created.Status,
		Cost:            created.Cost,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.webhooks.Create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// Delete removes a cached subscription and its provider-side counterpart.
// Twitch answering not-found is tolerated: the goal state is "gone".
func (s *WebhookService) Delete(ctx context.Context, ownerID, webhookID string) error {
	sub, err := s.webhooks.GetByID(ctx, webhookID)
	if err != nil {
		return err
	}
	if sub.OwnerID != ownerID {
		return serrors.ErrForbidden
	}

	cred, err := s.credentials.GetByID(ctx, sub.CredentialSetID)
	if err != nil {
		return err
	}

	appToken, err := s.usableAppToken(ctx, ownerID, cred.ID)
	if err != nil {
		return err
	}
	if appToken == "" {
		return serrors.ErrNoUsableCredential
	}

	if err := s.provider.DeleteSubscription(ctx, appToken, cred.ClientID, sub.SubscriptionID); err != nil {
		if !errors.Is(err, serrors.ErrNotFound) {
			return err
		}
	}

	return s.webhooks.DeleteBySubscriptionID(ctx, sub.SubscriptionID)
}
