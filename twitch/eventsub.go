package twitch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	serrors "github.com/decagraff/twitch-developer-hub/errors"
)

const eventSubPath = "/helix/eventsub/subscriptions"

// ListSubscriptions fetches the full set of EventSub subscriptions visible to
// the given app token, following pagination cursors until Twitch reports no
// further pages.
func (c *Client) ListSubscriptions(ctx context.Context, appToken, clientID string) ([]Subscription, error) {
	var all []Subscription
	cursor := ""

	for {
		endpoint := c.apiBaseURL + eventSubPath
		if cursor != "" {
			endpoint += "?after=" + url.QueryEscape(cursor)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("building eventsub list request: %w", err)
		}
		c.setHelixHeaders(req, appToken, clientID)

		var page subscriptionListResponse
		if err := c.doHelix(req, &page); err != nil {
			return nil, err
		}

		all = append(all, page.Data...)
		if page.Pagination.Cursor == "" {
			return all, nil
		}
		cursor = page.Pagination.Cursor
	}
}

// CreateSubscription registers a new EventSub webhook subscription.
func (c *Client) CreateSubscription(ctx context.Context, appToken, clientID string, sub SubscriptionRequest) (*Subscription, error) {
	payload, err := json.Marshal(sub)
	if err != nil {
		return nil, fmt.Errorf("encoding eventsub request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBaseURL+eventSubPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building eventsub create request: %w", err)
	}
	c.setHelixHeaders(req, appToken, clientID)
	req.Header.Set("Content-Type", "application/json")

	var created subscriptionListResponse
	if err := c.doHelix(req, &created); err != nil {
		return nil, err
	}
	if len(created.Data) == 0 {
		return nil, fmt.Errorf("eventsub create response carried no subscription")
	}
	return &created.Data[0], nil
}

// DeleteSubscription removes an EventSub subscription by its provider id.
// A 404 maps to ErrNotFound so callers can tolerate already-gone
// subscriptions.
func (c *Client) DeleteSubscription(ctx context.Context, appToken, clientID, subscriptionID string) error {
	endpoint := c.apiBaseURL + eventSubPath + "?id=" + url.QueryEscape(subscriptionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building eventsub delete request: %w", err)
	}
	c.setHelixHeaders(req, appToken, clientID)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling eventsub delete: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusOK:
		return nil
	case http.StatusNotFound:
		return serrors.ErrNotFound
	default:
		body, _ := io.ReadAll(resp.Body)
		return c.helixError(resp.StatusCode, body)
	}
}

func (c *Client) setHelixHeaders(req *http.Request, appToken, clientID string) {
	req.Header.Set("Authorization", "Bearer "+appToken)
	req.Header.Set("Client-Id", clientID)
}

func (c *Client) doHelix(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading helix response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.helixError(resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding helix response: %w", err)
	}
	return nil
}

// helixError classifies Helix rejections. A 401 means the app token is no
// longer valid; everything else in the 4xx range passes the provider message
// through, and 5xx stays a plain error.
func (c *Client) helixError(status int, body []byte) error {
	msg := decodeMessage(body)
	switch {
	case status == http.StatusUnauthorized:
		return serrors.NewProviderError(status, serrors.CodeInvalidToken, msg)
	case status >= 400 && status < 500:
		return serrors.NewProviderError(status, "", msg)
	default:
		return fmt.Errorf("unexpected status %d from helix: %s", status, msg)
	}
}
