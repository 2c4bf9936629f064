package authsdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// refreshSkew refreshes the access token slightly before it expires.
const refreshSkew = 30 * time.Second

// Session represents a logged-in user with automatic access token refresh.
// Sessions are safe for concurrent use.
type Session struct {
	client *Client

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time
}

func newSession(client *Client, tokens TokenPair) *Session {
	return &Session{
		client:       client,
		accessToken:  tokens.AccessToken,
		refreshToken: tokens.RefreshToken,
		expiresAt:    time.Now().Add(time.Duration(tokens.ExpiresIn)*time.Second - refreshSkew),
	}
}

// getValidToken returns a valid access token, automatically refreshing if expired.
func (s *Session) getValidToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	if time.Now().Before(s.expiresAt) {
		token := s.accessToken
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	// Token expired, need to refresh
	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock (another goroutine may have refreshed)
	if time.Now().Before(s.expiresAt) {
		return s.accessToken, nil
	}

	if s.refreshToken == "" {
		return "", errors.New("access token expired and no refresh token available")
	}

	out, err := s.client.Refresh(ctx, s.refreshToken)
	if err != nil {
		return "", fmt.Errorf("failed to refresh token: %w", err)
	}

	// The refresh token is not rotated; only the access token changes.
	s.accessToken = out.AccessToken
	s.expiresAt = time.Now().Add(time.Duration(out.ExpiresIn)*time.Second - refreshSkew)

	return s.accessToken, nil
}

// AccessToken returns the current access token without checking expiration.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// RefreshToken returns the refresh token identifying this session.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// authCall performs a bearer-authenticated call with a fresh access token.
func (s *Session) authCall(ctx context.Context, method, path string, body, target any, expectedStatus int) error {
	token, err := s.getValidToken(ctx)
	if err != nil {
		return err
	}
	return s.client.call(ctx, method, path, body, token, target, expectedStatus)
}

// Logout ends this session only.
func (s *Session) Logout(ctx context.Context) error {
	return s.client.Logout(ctx, s.RefreshToken())
}

// LogoutAll ends every session of the user, this one included.
func (s *Session) LogoutAll(ctx context.Context) (*LogoutAllResponse, error) {
	var out LogoutAllResponse
	if err := s.authCall(ctx, http.MethodPost, "/v1/auth/logout-all", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Session) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	req := ChangePasswordRequest{CurrentPassword: currentPassword, NewPassword: newPassword}
	return s.authCall(ctx, http.MethodPost, "/v1/auth/change-password", req, nil, http.StatusOK)
}

// CreateInvitation requires the session user to be a global admin.
func (s *Session) CreateInvitation(ctx context.Context, req CreateInvitationRequest) (*InvitationResponse, error) {
	var out InvitationResponse
	if err := s.authCall(ctx, http.MethodPost, "/v1/projects/invitations", req, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}
