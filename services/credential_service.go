package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/decagraff/twitch-developer-hub/domain"
	serrors "github.com/decagraff/twitch-developer-hub/errors"
	"github.com/decagraff/twitch-developer-hub/log"
)

// maskedSecret is what list views show in place of a client secret.
const maskedSecret = "••••••••"

// CredentialView is a credential set prepared for presentation. ClientSecret
// is the decrypted secret on a single-resource fetch, and masked in list
// views unless plaintext exposure is explicitly enabled.
type CredentialView struct {
	*domain.CredentialSet
	ClientSecret string `json:"client_secret"`
}

// CredentialService manages credential sets: validated CRUD with ownership
// guards, encrypted secrets at rest, and a referential guard that refuses to
// delete a set while token records still reference it.
type CredentialService struct {
	credentials domain.CredentialRepository
	tokens      domain.TokenRepository
	codec       SecretCodec
	logger      log.Logger

	// exposePlaintext keeps the legacy behavior of returning decrypted
	// secrets from the list endpoint. Off by default.
	exposePlaintext bool
}

// NewCredentialService wires a CredentialService.
func NewCredentialService(
	credentials domain.CredentialRepository,
	tokens domain.TokenRepository,
	codec SecretCodec,
	logger log.Logger,
	exposePlaintext bool,
) *CredentialService {
	return &CredentialService{
		credentials:     credentials,
		tokens:          tokens,
		codec:           codec,
		logger:          logger,
		exposePlaintext: exposePlaintext,
	}
}

func (s *CredentialService) guard(ctx context.Context, ownerID, id string) (*domain.CredentialSet, error) {
	cred, err := s.credentials.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cred.OwnerID != ownerID {
		return nil, serrors.ErrForbidden
	}
	return cred, nil
}

// Create validates and stores a new credential set. The (owner, client id)
// pair must be unique per owner.
func (s *CredentialService) Create(ctx context.Context, ownerID, name, clientID, clientSecret string) (*domain.CredentialSet, error) {
	name = strings.TrimSpace(name)
	clientID = strings.TrimSpace(clientID)
	if name == "" || clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("%w: name, client id and client secret are required", serrors.ErrValidation)
	}

	count, err := s.credentials.CountByOwnerAndClientID(ctx, ownerID, clientID)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: client id already registered for this user", serrors.ErrValidation)
	}

	encrypted, err := s.codec.Encrypt(clientSecret)
	if err != nil {
		return nil, fmt.Errorf("encrypting client secret: %w", err)
	}

	now := time.Now().UTC()
	cred := &domain.CredentialSet{
		ID:                    uuid.NewString(),
		OwnerID:               ownerID,
		Name:                  name,
		ClientID:              clientID,
		EncryptedClientSecret: encrypted,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := s.credentials.Create(ctx, cred); err != nil {
		return nil, err
	}
	return cred, nil
}

// Get returns one credential set with its decrypted secret. Single-resource
// decryption is deliberate and audit-logged; bulk listing masks instead.
func (s *CredentialService) Get(ctx context.Context, ownerID, id string) (*CredentialView, error) {
	cred, err := s.guard(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	secret, err := s.codec.Decrypt(cred.EncryptedClientSecret)
	if err != nil {
		return nil, fmt.Errorf("decrypting client secret: %w", err)
	}

	s.logger.Info(ctx, "client secret decrypted for single-resource fetch", map[string]any{
		"owner_id":          ownerID,
		"credential_set_id": cred.ID,
	})
	return &CredentialView{CredentialSet: cred, ClientSecret: secret}, nil
}

// List returns the owner's credential sets with secrets masked, unless
// plaintext exposure was configured on.
func (s *CredentialService) List(ctx context.Context, ownerID string) ([]*CredentialView, error) {
	creds, err := s.credentials.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	views := make([]*CredentialView, 0, len(creds))
	for _, cred := range creds {
		secret := maskedSecret
		if s.exposePlaintext {
			secret, err = s.codec.Decrypt(cred.EncryptedClientSecret)
			if err != nil {
				return nil, fmt.Errorf("decrypting client secret: %w", err)
			}
		}
		views = append(views, &CredentialView{CredentialSet: cred, ClientSecret: secret})
	}
	return views, nil
}

// Update renames a credential set and/or replaces its secret. An empty
// clientSecret leaves the stored secret untouched.
func (s *CredentialService) Update(ctx context.Context, ownerID, id, name, clientSecret string) (*domain.CredentialSet, error) {
	cred, err := s.guard(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if name = strings.TrimSpace(name); name != "" {
		cred.Name = name
	}
	if clientSecret != "" {
		encrypted, err := s.codec.Encrypt(clientSecret)
		if err != nil {
			return nil, fmt.Errorf("encrypting client secret: %w", err)
		}
		cred.EncryptedClientSecret = encrypted
	}
	cred.UpdatedAt = time.Now().UTC()

	if err := s.credentials.Update(ctx, cred); err != nil {
		return nil, err
	}
	return cred, nil
}

// Delete removes a credential set. Deletion is refused while any token record
// references it; this is a business invariant, not a storage cascade.
func (s *CredentialService) Delete(ctx context.Context, ownerID, id string) error {
	cred, err := s.guard(ctx, ownerID, id)
	if err != nil {
		return err
	}

	count, err := s.tokens.CountByCredentialSet(ctx, cred.ID)
	if err != nil {
		return err
	}
	if count > 0 {
		return serrors.ErrCredentialInUse
	}

	return s.credentials.Delete(ctx, cred.ID)
}
