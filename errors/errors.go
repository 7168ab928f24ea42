package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for failures classified by this system rather than by Twitch.
var (
	// ErrNotFound is returned when a requested resource does not exist.
	// Resource guards check existence before ownership, so a missing row is
	// always ErrNotFound regardless of who asks.
	ErrNotFound = errors.New("resource not found")

	// ErrForbidden is returned when a resource exists but belongs to a
	// different owner than the caller.
	ErrForbidden = errors.New("resource belongs to another user")

	// ErrNotRefreshable is returned when a refresh is attempted on a token
	// record that is app-kind or has no stored refresh token.
	ErrNotRefreshable = errors.New("token record has no refresh token")

	// ErrCredentialInUse is returned when deleting a credential set that
	// still has token records referencing it.
	ErrCredentialInUse = errors.New("credential set is referenced by existing tokens")

	// ErrNoUsableCredential is returned by webhook sync when no candidate
	// credential set has an app token to list subscriptions with.
	ErrNoUsableCredential = errors.New("no credential set with a usable app token")

	// ErrMasterSecretMissing means TOKEN_MASTER_SECRET is not configured.
	// Every codec call fails with this rather than deriving a weak key.
	ErrMasterSecretMissing = errors.New("token master secret is not configured")

	// ErrCipherTampered means stored ciphertext failed to parse or
	// authenticate. Plaintext is never returned in this case.
	ErrCipherTampered = errors.New("encrypted payload is corrupted or tampered")

	// ErrValidation is returned for malformed or conflicting input on
	// credential-set writes.
	ErrValidation = errors.New("invalid input")

	// ErrStateNotFound is returned when an authorization-code callback
	// carries a state value that is unknown or already consumed.
	ErrStateNotFound = errors.New("oauth state not found or expired")
)

// OAuth error codes as Twitch puts them on the wire. Matching against these
// strings is confined to the twitch package; everything above it works with
// the typed helpers below.
const (
	CodeAuthorizationPending = "authorization_pending"
	CodeSlowDown             = "slow_down"
	CodeAccessDenied         = "access_denied"
	CodeExpiredToken         = "expired_token"
	CodeInvalidGrant         = "invalid_grant"
	CodeInvalidClient        = "invalid_client"
	CodeInvalidToken         = "invalid_token"
)

// ProviderError is a classified rejection from the identity provider. Code is
// the OAuth error code (or a synthesized one for endpoints that only return a
// message), Description the provider's diagnostic verbatim, Status the HTTP
// status of the response.
type ProviderError struct {
	Code        string
	Description string
	Status      int
}

func (e *ProviderError) Error() string {
	switch {
	case e.Code == "":
		return fmt.Sprintf("provider rejected request (%d): %s", e.Status, e.Description)
	case e.Description == "":
		return fmt.Sprintf("provider rejected request (%d): %s", e.Status, e.Code)
	default:
		return fmt.Sprintf("provider rejected request (%d): %s: %s", e.Status, e.Code, e.Description)
	}
}

// NewProviderError builds a ProviderError with the raw provider message attached.
func NewProviderError(status int, code, description string) *ProviderError {
	return &ProviderError{Code: code, Description: description, Status: status}
}

// AsProviderError unwraps err into a ProviderError if it carries one.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

func providerCodeIs(err error, code string) bool {
	pe, ok := AsProviderError(err)
	return ok && pe.Code == code
}

// IsInvalidCredentials reports whether the provider rejected a client id /
// client secret pair on the token endpoint.
func IsInvalidCredentials(err error) bool {
	return providerCodeIs(err, CodeInvalidClient)
}

// IsInvalidGrant reports whether the provider declared a code or refresh
// token dead (stale, reused, revoked, or redirect mismatch). The stored
// record is not retryable after this.
func IsInvalidGrant(err error) bool {
	return providerCodeIs(err, CodeInvalidGrant)
}

// IsInvalidToken reports whether the provider answered 401 on validation.
// Callers treat this as "token not currently valid", not as a failure.
func IsInvalidToken(err error) bool {
	return providerCodeIs(err, CodeInvalidToken)
}

// IsAccessDenied reports whether the user declined a device authorization.
func IsAccessDenied(err error) bool {
	return providerCodeIs(err, CodeAccessDenied)
}

// IsDeviceCodeExpired reports whether a device code's lifetime elapsed
// before the user completed authorization.
func IsDeviceCodeExpired(err error) bool {
	return providerCodeIs(err, CodeExpiredToken)
}
