package twitch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serrors "github.com/decagraff/twitch-developer-hub/errors"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestClientCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/oauth2/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "abc123", r.PostForm.Get("client_id"))
		assert.Equal(t, "shh", r.PostForm.Get("client_secret"))

		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": "tok_1",
			"expires_in":   3600,
			"token_type":   "bearer",
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.URL)
	result, err := client.ClientCredentials(context.Background(), "abc123", "shh")
	require.NoError(t, err)
	assert.Equal(t, "tok_1", result.AccessToken)
	assert.Equal(t, 3600, result.ExpiresIn)
	assert.Empty(t, result.RefreshToken)
}

func TestClientCredentials_InvalidSecret(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]any{
			"status":  403,
			"message": "invalid client secret",
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.URL)
	_, err := client.ClientCredentials(context.Background(), "abc123", "wrong")
	require.Error(t, err)
	assert.True(t, serrors.IsInvalidCredentials(err))

	pe, ok := serrors.AsProviderError(err)
	require.True(t, ok)
	assert.Equal(t, "invalid client secret", pe.Description)
}

func TestStartDeviceAuthorization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/oauth2/device", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "user:read:follows channel:read:subscriptions", r.PostForm.Get("scopes"))

		writeJSON(w, http.StatusOK, map[string]any{
			"device_code":      "dc1",
			"user_code":        "ABCD-1234",
			"verification_uri": "https://www.twitch.tv/activate",
			"expires_in":       1800,
			"interval":         5,
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.URL)
	resp, err := client.StartDeviceAuthorization(context.Background(), "abc123", []string{"user:read:follows", "channel:read:subscriptions"})
	require.NoError(t, err)
	assert.Equal(t, "dc1", resp.DeviceCode)
	assert.Equal(t, "ABCD-1234", resp.UserCode)
	assert.Equal(t, 1800, resp.ExpiresIn)
	assert.Equal(t, 5, resp.Interval)
}

func TestStartDeviceAuthorization_DefaultInterval(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"device_code": "dc1",
			"user_code":   "ABCD-1234",
			"expires_in":  1800,
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.URL)
	resp, err := client.StartDeviceAuthorization(context.Background(), "abc123", nil)
	require.NoError(t, err)
	assert.Equal(t, 5, resp.Interval)
}

func TestPollDeviceAuthorization_Outcomes(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		message string
		check   func(t *testing.T, result *TokenResult, err error)
	}{
		{
			name: "pending", status: http.StatusBadRequest, message: "authorization_pending",
			check: func(t *testing.T, result *TokenResult, err error) {
				assert.NoError(t, err)
				assert.Nil(t, result)
			},
		},
		{
			name: "slow down is also pending", status: http.StatusBadRequest, message: "slow_down",
			check: func(t *testing.T, result *TokenResult, err error) {
				assert.NoError(t, err)
				assert.Nil(t, result)
			},
		},
		{
			name: "denied", status: http.StatusBadRequest, message: "access_denied",
			check: func(t *testing.T, result *TokenResult, err error) {
				assert.True(t, serrors.IsAccessDenied(err))
			},
		},
		{
			name: "expired", status: http.StatusBadRequest, message: "invalid device code",
			check: func(t *testing.T, result *TokenResult, err error) {
				assert.True(t, serrors.IsDeviceCodeExpired(err))
			},
		},
		{
			name: "unclassified passes the message through", status: http.StatusTooManyRequests, message: "rate limited",
			check: func(t *testing.T, result *TokenResult, err error) {
				pe, ok := serrors.AsProviderError(err)
				require.True(t, ok)
				assert.Equal(t, "rate limited", pe.Description)
				assert.False(t, serrors.IsAccessDenied(err))
				assert.False(t, serrors.IsDeviceCodeExpired(err))
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tc.status, map[string]any{"status": tc.status, "message": tc.message})
			}))
			defer srv.Close()

			client := NewClient(srv.URL, srv.URL)
			result, err := client.PollDeviceAuthorization(context.Background(), "abc123", "dc1")
			tc.check(t, result, err)
		})
	}
}

func TestPollDeviceAuthorization_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "dc1", r.PostForm.Get("device_code"))
		assert.Equal(t, "urn:ietf:params:oauth:grant-type:device_code", r.PostForm.Get("grant_type"))

		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  "user_tok",
			"refresh_token": "refresh_tok",
			"expires_in":    14400,
			"scope":         []string{"user:read:follows"},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.URL)
	result, err := client.PollDeviceAuthorization(context.Background(), "abc123", "dc1")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "user_tok", result.AccessToken)
	assert.Equal(t, "refresh_tok", result.RefreshToken)
	assert.Equal(t, []string{"user:read:follows"}, result.Scopes)
}

func TestAuthorizationURL(t *testing.T) {
	client := NewClient("https://id.twitch.tv", "https://api.twitch.tv")

	raw := client.AuthorizationURL("abc123", "https://example.com/cb", []string{"user:read:follows", "bits:read"}, "state-value", false)

	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/oauth2/authorize", parsed.Path)

	q := parsed.Query()
	assert.Equal(t, "abc123", q.Get("client_id"))
	assert.Equal(t, "https://example.com/cb", q.Get("redirect_uri"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "user:read:follows bits:read", q.Get("scope"))
	// state rides through unmodified
	assert.Equal(t, "state-value", q.Get("state"))
	assert.Empty(t, q.Get("force_verify"))
}

func TestAuthorizationURL_ForceVerify(t *testing.T) {
	client := NewClient("https://id.twitch.tv", "https://api.twitch.tv")

	raw := client.AuthorizationURL("abc123", "https://example.com/cb", nil, "s", true)
	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "true", parsed.Query().Get("force_verify"))
}

func TestExchangeCode_InvalidGrant(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"status":  400,
			"message": "Invalid authorization code",
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.URL)
	_, err := client.ExchangeCode(context.Background(), "abc123", "shh", "stale-code", "https://example.com/cb")
	require.Error(t, err)
	assert.True(t, serrors.IsInvalidGrant(err))
}

func TestRefresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "old_refresh", r.PostForm.Get("refresh_token"))

		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  "new_access",
			"refresh_token": "new_refresh",
			"expires_in":    14400,
			"scope":         []string{"bits:read"},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.URL)
	result, err := client.Refresh(context.Background(), "abc123", "shh", "old_refresh")
	require.NoError(t, err)
	assert.Equal(t, "new_access", result.AccessToken)
	assert.Equal(t, "new_refresh", result.RefreshToken)
}

func TestRefresh_Revoked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"status":  400,
			"message": "Invalid refresh token",
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.URL)
	_, err := client.Refresh(context.Background(), "abc123", "shh", "revoked")
	require.Error(t, err)
	assert.True(t, serrors.IsInvalidGrant(err))
}

func TestValidate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/oauth2/validate", r.URL.Path)
		require.Equal(t, "OAuth user_tok", r.Header.Get("Authorization"))

		writeJSON(w, http.StatusOK, map[string]any{
			"client_id":  "abc123",
			"login":      "streamer",
			"user_id":    "12345",
			"scopes":     []string{"user:read:follows"},
			"expires_in": 5000,
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.URL)
	v, err := client.Validate(context.Background(), "user_tok")
	require.NoError(t, err)
	assert.Equal(t, "streamer", v.Login)
	assert.Equal(t, "12345", v.UserID)
	assert.Equal(t, 5000, v.ExpiresIn)
}

func TestValidate_InvalidToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"status":  401,
			"message": "invalid access token",
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.URL)
	_, err := client.Validate(context.Background(), "dead_tok")
	require.Error(t, err)
	assert.True(t, serrors.IsInvalidToken(err))
}

func TestListSubscriptions_Pagination(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/helix/eventsub/subscriptions", r.URL.Path)
		require.Equal(t, "Bearer app_tok", r.Header.Get("Authorization"))
		require.Equal(t, "abc123", r.Header.Get("Client-Id"))

		calls++
		switch r.URL.Query().Get("after") {
		case "":
			writeJSON(w, http.StatusOK, map[string]any{
				"data": []map[string]any{
					{"id": "sub-1", "status": "enabled", "type": "stream.online", "version": "1", "cost": 1,
						"condition": map[string]string{"broadcaster_user_id": "1"},
						"transport": map[string]any{"method": "webhook", "callback": "https://example.com/hook"}},
					{"id": "sub-2", "status": "enabled", "type": "stream.offline", "version": "1", "cost": 1,
						"condition": map[string]string{"broadcaster_user_id": "1"},
						"transport": map[string]any{"method": "webhook", "callback": "https://example.com/hook"}},
				},
				"total":      3,
				"pagination": map[string]any{"cursor": "page2"},
			})
		case "page2":
			writeJSON(w, http.StatusOK, map[string]any{
				"data": []map[string]any{
					{"id": "sub-3", "status": "webhook_callback_verification_pending", "type": "channel.follow", "version": "2", "cost": 0,
						"condition": map[string]string{"broadcaster_user_id": "1", "moderator_user_id": "1"},
						"transport": map[string]any{"method": "webhook", "callback": "https://example.com/hook"}},
				},
				"total":      3,
				"pagination": map[string]any{},
			})
		default:
			t.Fatalf("unexpected cursor %q", r.URL.Query().Get("after"))
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.URL)
	subs, err := client.ListSubscriptions(context.Background(), "app_tok", "abc123")
	require.NoError(t, err)
	require.Len(t, subs, 3)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "sub-3", subs[2].ID)
	assert.Equal(t, "webhook_callback_verification_pending", subs[2].Status)
}

func TestCreateSubscription(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)

		var req SubscriptionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "stream.online", req.Type)
		assert.Equal(t, "webhook", req.Transport.Method)

		writeJSON(w, http.StatusAccepted, map[string]any{
			"data": []map[string]any{
				{"id": "sub-new", "status": "webhook_callback_verification_pending", "type": req.Type, "version": req.Version, "cost": 1,
					"condition": req.Condition,
					"transport": map[string]any{"method": "webhook", "callback": req.Transport.Callback}},
			},
			"total": 1,
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.URL)
	created, err := client.CreateSubscription(context.Background(), "app_tok", "abc123", SubscriptionRequest{
		Type:      "stream.online",
		Version:   "1",
		Condition: map[string]string{"broadcaster_user_id": "1"},
		Transport: Transport{Method: "webhook", Callback: "https://example.com/hook", Secret: "hooksecret"},
	})
	require.NoError(t, err)
	assert.Equal(t, "sub-new", created.ID)
}

func TestDeleteSubscription(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		if r.URL.Query().Get("id") == "sub-gone" {
			writeJSON(w, http.StatusNotFound, map[string]any{"status": 404, "message": "subscription not found"})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.URL)

	require.NoError(t, client.DeleteSubscription(context.Background(), "app_tok", "abc123", "sub-1"))

	err := client.DeleteSubscription(context.Background(), "app_tok", "abc123", "sub-gone")
	assert.ErrorIs(t, err, serrors.ErrNotFound)
}

func TestServerErrorsAreNotClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "upstream exploded")
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.URL)
	_, err := client.ClientCredentials(context.Background(), "abc123", "shh")
	require.Error(t, err)

	_, ok := serrors.AsProviderError(err)
	assert.False(t, ok)
}
