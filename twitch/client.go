// Package twitch wraps the Twitch identity and Helix APIs consumed by the
// token lifecycle: one stateless call per OAuth grant type, token validation
// and revocation, and EventSub subscription management.
//
// All matching against Twitch's wire-level error strings happens here; the
// rest of the system only sees the typed classifications in the errors
// package.
package twitch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	serrors "github.com/decagraff/twitch-developer-hub/errors"
)

const (
	tokenPath    = "/oauth2/token"
	devicePath   = "/oauth2/device"
	authPath     = "/oauth2/authorize"
	validatePath = "/oauth2/validate"
	revokePath   = "/oauth2/revoke"

	deviceGrantType = "urn:ietf:params:oauth:grant-type:device_code"

	// Twitch omits interval from some device responses; RFC 8628 default.
	defaultPollInterval = 5
)

// Client talks to Twitch. It holds no per-flow state; every method is a
// single request/response.
type Client struct {
	idBaseURL  string
	apiBaseURL string
	http       *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient creates a Twitch client against the given identity and Helix
// base URLs (https://id.twitch.tv and https://api.twitch.tv in production).
func NewClient(idBaseURL, apiBaseURL string, opts ...Option) *Client {
	c := &Client{
		idBaseURL:  strings.TrimRight(idBaseURL, "/"),
		apiBaseURL: strings.TrimRight(apiBaseURL, "/"),
		http:       &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ClientCredentials mints an app access token.
func (c *Client) ClientCredentials(ctx context.Context, clientID, clientSecret string) (*TokenResult, error) {
	form := url.Values{
		"client_id":     {clientID},
		"client_secret": {clientSecret},
		"grant_type":    {"client_credentials"},
	}

	var result TokenResult
	if err := c.postForm(ctx, c.idBaseURL+tokenPath, form, &result, classifyCredentialRejection); err != nil {
		return nil, err
	}
	return &result, nil
}

// StartDeviceAuthorization begins the device flow and returns the provider's
// session descriptor verbatim. Interval defaults to 5 seconds when omitted.
func (c *Client) StartDeviceAuthorization(ctx context.Context, clientID string, scopes []string) (*DeviceAuthorizationResponse, error) {
	form := url.Values{
		"client_id": {clientID},
		"scopes":    {strings.Join(scopes, " ")},
	}

	var result DeviceAuthorizationResponse
	if err := c.postForm(ctx, c.idBaseURL+devicePath, form, &result, classifyCredentialRejection); err != nil {
		return nil, err
	}
	if result.Interval <= 0 {
		result.Interval = defaultPollInterval
	}
	return &result, nil
}

// DeviceAuthorizationResponse mirrors the device endpoint payload.
type DeviceAuthorizationResponse struct {
	DeviceCode      string `json:"device_code"`
	UserCode        string `json:"user_code"`
	VerificationURI string `json:"verification_uri"`
	ExpiresIn       int    `json:"expires_in"`
	Interval        int    `json:"interval"`
}

// PollDeviceAuthorization performs a single poll of a pending device flow.
// A (nil, nil) return means the authorization is still pending: Twitch
// answered authorization_pending or slow_down, which differ only in that the
// latter signals the caller is polling faster than the granted interval.
func (c *Client) PollDeviceAuthorization(ctx context.Context, clientID, deviceCode string) (*TokenResult, error) {
	form := url.Values{
		"client_id":   {clientID},
		"device_code": {deviceCode},
		"grant_type":  {deviceGrantType},
	}

	var result TokenResult
	err := c.postForm(ctx, c.idBaseURL+tokenPath, form, &result, classifyDevicePoll)
	if err != nil {
		if isPending(err) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

// AuthorizationURL builds the authorization-code redirect URL. No network
// call is made and state passes through unmodified; generating and verifying
// state is the caller's job.
func (c *Client) AuthorizationURL(clientID, redirectURI string, scopes []string, state string, forceVerify bool) string {
	cfg := oauth2.Config{
		ClientID:    clientID,
		RedirectURL: redirectURI,
		Scopes:      scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  c.idBaseURL + authPath,
			TokenURL: c.idBaseURL + tokenPath,
		},
	}
	if forceVerify {
		return cfg.AuthCodeURL(state, oauth2.SetAuthURLParam("force_verify", "true"))
	}
	return cfg.AuthCodeURL(state)
}

// ExchangeCode redeems an authorization code.
func (c *Client) ExchangeCode(ctx context.Context, clientID, clientSecret, code, redirectURI string) (*TokenResult, error) {
	form := url.Values{
		"client_id":     {clientID},
		"client_secret": {clientSecret},
		"code":          {code},
		"grant_type":    {"authorization_code"},
		"redirect_uri":  {redirectURI},
	}

	var result TokenResult
	if err := c.postForm(ctx, c.idBaseURL+tokenPath, form, &result, classifyGrantRejection); err != nil {
		return nil, err
	}
	return &result, nil
}

// Refresh redeems a refresh token. An invalid_grant classification means the
// stored token record is dead, not retryable.
func (c *Client) Refresh(ctx context.Context, clientID, clientSecret, refreshToken string) (*TokenResult, error) {
	form := url.Values{
		"client_id":     {clientID},
		"client_secret": {clientSecret},
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}

	var result TokenResult
	if err := c.postForm(ctx, c.idBaseURL+tokenPath, form, &result, classifyGrantRejection); err != nil {
		return nil, err
	}
	return &result, nil
}

// Validate checks an access token and resolves its subject. A 401 is
// classified as invalid_token: the token is not currently valid, which is an
// expected outcome rather than a transport failure.
func (c *Client) Validate(ctx context.Context, accessToken string) (*Validation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.idBaseURL+validatePath, nil)
	if err != nil {
		return nil, fmt.Errorf("building validate request: %w", err)
	}
	// The validate endpoint uses the OAuth scheme, not Bearer.
	req.Header.Set("Authorization", "OAuth "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling validate endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading validate response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, serrors.NewProviderError(resp.StatusCode, serrors.CodeInvalidToken, decodeMessage(body))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, unclassified(resp.StatusCode, body)
	}

	var result Validation
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decoding validate response: %w", err)
	}
	return &result, nil
}

// Revoke invalidates an access token. Twitch answers 200 even for tokens it
// no longer knows, so errors here mean genuine rejection.
func (c *Client) Revoke(ctx context.Context, clientID, accessToken string) error {
	form := url.Values{
		"client_id": {clientID},
		"token":     {accessToken},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.idBaseURL+revokePath, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("building revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling revoke endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return unclassified(resp.StatusCode, body)
	}
	return nil
}

// classifier turns a non-2xx token-endpoint response into a typed error.
type classifier func(status int, body []byte) error

// postForm posts a form and decodes a 2xx JSON body into out. Non-2xx
// responses under 500 go through the classifier; everything else surfaces as
// a plain error, unretried.
func (c *Client) postForm(ctx context.Context, endpoint string, form url.Values, out any, classify classifier) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("building request for %s: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response from %s: %w", endpoint, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decoding response from %s: %w", endpoint, err)
		}
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return classify(resp.StatusCode, body)
	default:
		return fmt.Errorf("unexpected status %d from %s: %s", resp.StatusCode, endpoint, string(body))
	}
}

// decodeMessage extracts the diagnostic string Twitch puts in error bodies.
func decodeMessage(body []byte) string {
	var e apiError
	if err := json.Unmarshal(body, &e); err != nil || (e.Message == "" && e.Error == "") {
		return strings.TrimSpace(string(body))
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

// unclassified wraps a 4xx the caller has no dedicated handling for. The raw
// provider message is carried through.
func unclassified(status int, body []byte) error {
	return serrors.NewProviderError(status, "", decodeMessage(body))
}

// classifyCredentialRejection handles endpoints where a 4xx means Twitch
// refused the client id / client secret pair.
func classifyCredentialRejection(status int, body []byte) error {
	msg := decodeMessage(body)
	if status == http.StatusBadRequest || status == http.StatusUnauthorized || status == http.StatusForbidden {
		return serrors.NewProviderError(status, serrors.CodeInvalidClient, msg)
	}
	return unclassified(status, body)
}

// classifyGrantRejection handles code exchange and refresh, where Twitch
// reports dead codes, reused codes, revoked refresh tokens and redirect
// mismatches as 400s with a diagnostic message.
func classifyGrantRejection(status int, body []byte) error {
	msg := decodeMessage(body)
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "invalid client"):
		return serrors.NewProviderError(status, serrors.CodeInvalidClient, msg)
	case strings.Contains(lower, "authorization code"),
		strings.Contains(lower, "refresh token"),
		strings.Contains(lower, "redirect"),
		strings.Contains(lower, "invalid_grant"):
		return serrors.NewProviderError(status, serrors.CodeInvalidGrant, msg)
	default:
		return unclassified(status, body)
	}
}

// classifyDevicePoll maps the device-poll outcomes. Twitch reports them as
// 400s whose message carries the state.
func classifyDevicePoll(status int, body []byte) error {
	msg := decodeMessage(body)
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "authorization_pending"):
		return serrors.NewProviderError(status, serrors.CodeAuthorizationPending, msg)
	case strings.Contains(lower, "slow_down"):
		return serrors.NewProviderError(status, serrors.CodeSlowDown, msg)
	case strings.Contains(lower, "access_denied"), strings.Contains(lower, "access denied"):
		return serrors.NewProviderError(status, serrors.CodeAccessDenied, msg)
	case strings.Contains(lower, "expired"), strings.Contains(lower, "invalid device code"):
		return serrors.NewProviderError(status, serrors.CodeExpiredToken, msg)
	default:
		return unclassified(status, body)
	}
}

// isPending reports whether a classified poll error means "not yet".
// slow_down is treated the same as authorization_pending; the caller owns
// the cadence and the code still reaches it through the HTTP layer if it
// wants to back off.
func isPending(err error) bool {
	pe, ok := serrors.AsProviderError(err)
	if !ok {
		return false
	}
	return pe.Code == serrors.CodeAuthorizationPending || pe.Code == serrors.CodeSlowDown
}
