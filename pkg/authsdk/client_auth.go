package authsdk

import (
	"context"
	"net/http"
)

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	var out RegisterResponse
	if err := c.call(ctx, http.MethodPost, "/v1/auth/register", req, "", &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) VerifyEmail(ctx context.Context, token string) error {
	return c.call(ctx, http.MethodPost, "/v1/auth/verify-email", VerifyEmailRequest{Token: token}, "", nil, http.StatusOK)
}

func (c *Client) ResendVerification(ctx context.Context, email string) error {
	req := ResendVerificationRequest{Email: email}
	return c.call(ctx, http.MethodPost, "/v1/auth/resend-verification", req, "", nil, http.StatusOK)
}

// Login authenticates against the client's project and returns a Session
// that refreshes its access token on demand.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, *LoginResponse, error) {
	var out LoginResponse
	req := LoginRequest{Email: email, Password: password}
	if err := c.call(ctx, http.MethodPost, "/v1/auth/login", req, "", &out, http.StatusOK); err != nil {
		return nil, nil, err
	}
	return newSession(c, out.Tokens), &out, nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*RefreshResponse, error) {
	var out RefreshResponse
	req := RefreshTokenRequest{RefreshToken: refreshToken}
	if err := c.call(ctx, http.MethodPost, "/v1/auth/refresh", req, "", &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	req := RefreshTokenRequest{RefreshToken: refreshToken}
	return c.call(ctx, http.MethodPost, "/v1/auth/logout", req, "", nil, http.StatusOK)
}

// ForgotPassword always succeeds for a well-formed request, whether or not
// the account exists.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	req := ForgotPasswordRequest{Email: email}
	return c.call(ctx, http.MethodPost, "/v1/auth/forgot-password", req, "", nil, http.StatusOK)
}

func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) error {
	req := ResetPasswordRequest{Token: token, NewPassword: newPassword}
	return c.call(ctx, http.MethodPost, "/v1/auth/reset-password", req, "", nil, http.StatusOK)
}

// CreateProject redeems an invitation key. No API key or bearer is needed.
func (c *Client) CreateProject(ctx context.Context, req CreateProjectRequest) (*CreateProjectResponse, error) {
	var out CreateProjectResponse
	if err := c.call(ctx, http.MethodPost, "/v1/projects", req, "", &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}
