package authsdk

import (
	"net/http"
	"strings"
	"time"
)

// APIKeyHeader carries the project API key on tenant-scoped requests.
const APIKeyHeader = "X-API-Key"

// Client is a client for the techauth service. It covers every public
// endpoint; a Session adds automatic access token refresh on top.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	// APIKey is sent in the X-API-Key header on tenant-scoped calls when the
	// request body does not carry one.
	APIKey string
}

// NewClient creates a client for baseURL bound to a project API key.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		APIKey: apiKey,
	}
}

// NewSessionFromTokens creates a session from tokens obtained elsewhere.
func (c *Client) NewSessionFromTokens(accessToken, refreshToken string, expiresIn int) *Session {
	return newSession(c, TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
	})
}
