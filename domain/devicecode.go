package domain

// DeviceAuthorization is the descriptor Twitch returns when a device flow is
// started. It is ephemeral request/response state keyed by DeviceCode and is
// never persisted: the provider is the sole source of truth for the session,
// and the caller threads the device code through each poll.
type DeviceAuthorization struct {
	DeviceCode      string `json:"device_code"`
	UserCode        string `json:"user_code"`
	VerificationURI string `json:"verification_uri"`
	// ExpiresIn and Interval come from the provider; the client never
	// invents its own polling cadence or lifetime.
	ExpiresIn int `json:"expires_in"`
	Interval  int `json:"interval"`
}
