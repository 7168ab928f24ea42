// Package cache holds the short-lived state shared between the two legs of
// the authorization-code flow. Entries are keyed by the random state value
// sent on the redirect and consumed exactly once on callback.
package cache

import (
	"context"
	"time"
)

// PendingAuthorization is what the callback leg needs to finish a flow the
// redirect leg started.
type PendingAuthorization struct {
	OwnerID         string    `json:"owner_id"`
	CredentialSetID string    `json:"credential_set_id"`
	RedirectURI     string    `json:"redirect_uri"`
	Scopes          []string  `json:"scopes"`
	CreatedAt       time.Time `json:"created_at"`
}

// StateStore stores pending authorizations under their state value.
type StateStore interface {
	// Put stores the pending flow until the TTL the store was built with.
	Put(ctx context.Context, state string, pending *PendingAuthorization) error
	// Consume returns and removes the pending flow for state. A missing or
	// expired state returns errors.ErrStateNotFound; a second Consume of
	// the same state does too.
	Consume(ctx context.Context, state string) (*PendingAuthorization, error)
	Close() error
}
