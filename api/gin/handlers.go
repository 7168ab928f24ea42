//nolint:tagliatelle
package gin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	serrors "github.com/decagraff/twitch-developer-hub/errors"
	"github.com/decagraff/twitch-developer-hub/services"
	"github.com/decagraff/twitch-developer-hub/twitch"
)

// HubAPI exposes the credential, token and webhook services over HTTP.
type HubAPI struct {
	credentials *services.CredentialService
	tokens      *services.TokenService
	webhooks    *services.WebhookService
}

// NewHubAPI initializes the API surface.
func NewHubAPI(credentials *services.CredentialService, tokens *services.TokenService, webhooks *services.WebhookService) *HubAPI {
	return &HubAPI{
		credentials: credentials,
		tokens:      tokens,
		webhooks:    webhooks,
	}
}

// RegisterRoutes registers the hub routes.
func (a *HubAPI) RegisterRoutes(e *gin.Engine) {
	api := e.Group("/api", RequireUser())

	api.POST("/credentials", a.CreateCredential)
	api.GET("/credentials", a.ListCredentials)
	api.GET("/credentials/:id", a.GetCredential)
	api.PUT("/credentials/:id", a.UpdateCredential)
	api.DELETE("/credentials/:id", a.DeleteCredential)

	api.POST("/credentials/:id/tokens/app", a.MintAppToken)
	api.POST("/credentials/:id/device/start", a.StartDeviceFlow)
	api.POST("/credentials/:id/device/poll", a.PollDeviceFlow)
	api.POST("/credentials/:id/authorize", a.BeginAuthorizationFlow)

	api.GET("/tokens", a.ListTokens)
	api.POST("/tokens/:id/refresh", a.RefreshToken)
	api.GET("/tokens/:id/validate", a.ValidateToken)
	api.DELETE("/tokens/:id", a.DeleteToken)

	api.GET("/webhooks", a.ListWebhooks)
	api.POST("/credentials/:id/webhooks", a.CreateWebhook)
	api.DELETE("/webhooks/:id", a.DeleteWebhook)
	api.POST("/webhooks/sync", a.SyncWebhooks)

	// The OAuth callback arrives from the user's browser redirect; the
	// parked state, not a session header, proves who started the flow.
	e.GET("/api/oauth/callback", a.AuthorizationCallback)
}

// writeError maps service errors onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, serrors.ErrNotFound), errors.Is(err, serrors.ErrStateNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, serrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, serrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, serrors.ErrNotRefreshable), errors.Is(err, serrors.ErrCredentialInUse):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, serrors.ErrNoUsableCredential):
		c.JSON(http.StatusPreconditionFailed, gin.H{"error": err.Error()})
	default:
		if pe, ok := serrors.AsProviderError(err); ok {
			c.JSON(http.StatusBadGateway, gin.H{
				"error":            "twitch rejected the request",
				"provider_code":    pe.Code,
				"provider_message": pe.Description,
			})
			return
		}
		log.Error().Err(err).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

type credentialRequest struct {
	Name         string `json:"name"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

func (a *HubAPI) CreateCredential(c *gin.Context) {
	var req credentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	cred, err := a.credentials.Create(c.Request.Context(), callerID(c), req.Name, req.ClientID, req.ClientSecret)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cred)
}

func (a *HubAPI) ListCredentials(c *gin.Context) {
	views, err := a.credentials.List(c.Request.Context(), callerID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (a *HubAPI) GetCredential(c *gin.Context) {
	view, err := a.credentials.Get(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (a *HubAPI) UpdateCredential(c *gin.Context) {
	var req credentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	cred, err := a.credentials.Update(c.Request.Context(), callerID(c), c.Param("id"), req.Name, req.ClientSecret)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cred)
}

func (a *HubAPI) DeleteCredential(c *gin.Context) {
	if err := a.credentials.Delete(c.Request.Context(), callerID(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *HubAPI) MintAppToken(c *gin.Context) {
	record, err := a.tokens.MintAppToken(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

type deviceStartRequest struct {
	Scopes []string `json:"scopes"`
}

func (a *HubAPI) StartDeviceFlow(c *gin.Context) {
	var req deviceStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	session, err := a.tokens.StartDeviceFlow(c.Request.Context(), callerID(c), c.Param("id"), req.Scopes)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

type devicePollRequest struct {
	DeviceCode string `json:"device_code"`
}

func (a *HubAPI) PollDeviceFlow(c *gin.Context) {
	var req devicePollRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.DeviceCode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "device_code is required"})
		return
	}

	status, err := a.tokens.PollDeviceFlow(c.Request.Context(), callerID(c), c.Param("id"), req.DeviceCode)
	if err != nil {
		writeError(c, err)
		return
	}
	// Pending, denied and expired are outcomes of a well-formed poll, not
	// HTTP errors; the flow state rides in the body.
	c.JSON(http.StatusOK, status)
}

type authorizeRequest struct {
	RedirectURI string   `json:"redirect_uri"`
	Scopes      []string `json:"scopes"`
	ForceVerify bool     `json:"force_verify"`
}

func (a *HubAPI) BeginAuthorizationFlow(c *gin.Context) {
	var req authorizeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RedirectURI == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "redirect_uri is required"})
		return
	}

	redirect, err := a.tokens.BeginAuthorizationFlow(c.Request.Context(), callerID(c), c.Param("id"), req.RedirectURI, req.Scopes, req.ForceVerify)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, redirect)
}

func (a *HubAPI) AuthorizationCallback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code and state are required"})
		return
	}

	record, err := a.tokens.CompleteAuthorizationFlow(c.Request.Context(), code, state)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func (a *HubAPI) ListTokens(c *gin.Context) {
	records, err := a.tokens.ListTokens(c.Request.Context(), callerID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (a *HubAPI) RefreshToken(c *gin.Context) {
	record, err := a.tokens.Refresh(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (a *HubAPI) ValidateToken(c *gin.Context) {
	validation, err := a.tokens.Validate(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, validation)
}

func (a *HubAPI) DeleteToken(c *gin.Context) {
	if err := a.tokens.DeleteToken(c.Request.Context(), callerID(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *HubAPI) ListWebhooks(c *gin.Context) {
	subs, err := a.webhooks.List(c.Request.Context(), callerID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, subs)
}

type webhookRequest struct {
	Type      string            `json:"type"`
	Version   string            `json:"version"`
	Condition map[string]string `json:"condition"`
	Callback  string            `json:"callback"`
	Secret    string            `json:"secret"`
}

func (a *HubAPI) CreateWebhook(c *gin.Context) {
	var req webhookRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Type == "" || req.Callback == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type and callback are required"})
		return
	}

	sub, err := a.webhooks.Create(c.Request.Context(), callerID(c), c.Param("id"), twitch.SubscriptionRequest{
		Type:      req.Type,
		Version:   req.Version,
		Condition: req.Condition,
		Transport: twitch.Transport{
			Method:   "webhook",
			Callback: req.Callback,
			Secret:   req.Secret,
		},
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

func (a *HubAPI) DeleteWebhook(c *gin.Context) {
	if err := a.webhooks.Delete(c.Request.Context(), callerID(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *HubAPI) SyncWebhooks(c *gin.Context) {
	report, err := a.webhooks.Sync(c.Request.Context(), callerID(c), c.Query("credential_set_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
