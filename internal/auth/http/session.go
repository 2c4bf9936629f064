package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/techauth/internal/auth/domain"
	"github.com/aussiebroadwan/techauth/internal/auth/service"
	"github.com/aussiebroadwan/techauth/pkg/authsdk"
	"github.com/aussiebroadwan/techauth/pkg/httpx"
)

type SessionHandler struct {
	SessionService *service.SessionService
}

// HandleLogin godoc
//
//	@Summary		Login
//	@Description	Authenticate a member of the project behind the API key and open a session.
//	@Description	A wrong password and an unknown account produce the same invalid_credentials error.
//	@Tags			Sessions
//	@Accept			json
//	@Produce		json
//	@Param			X-API-Key	header		string					false	"Project API key"
//	@Param			body		body		authsdk.LoginRequest	true	"Credentials"
//	@Success		200			{object}	authsdk.LoginResponse
//	@Failure		400			{object}	authsdk.ErrorResponse
//	@Failure		401			{object}	authsdk.ErrorResponse	"invalid_credentials, invalid_project"
//	@Failure		403			{object}	authsdk.ErrorResponse	"account_banned, email_not_verified"
//	@Router			/v1/auth/login [post].
func (h *SessionHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeInvalidBody(w)
		return
	}

	res, err := h.SessionService.Login(r.Context(), service.LoginInput{
		Email:         req.Email,
		Password:      req.Password,
		ProjectAPIKey: apiKey(r, req.ProjectAPIKey),
		Client: domain.ClientMeta{
			IPAddress: httpx.ClientIP(r),
			UserAgent: r.UserAgent(),
		},
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{
		User: authsdk.UserProfile{
			ID:            res.User.ID,
			Email:         res.User.Email,
			FirstName:     res.User.FirstName,
			LastName:      res.User.LastName,
			EmailVerified: res.User.EmailVerified,
		},
		Tokens: authsdk.TokenPair{
			AccessToken:  res.Tokens.AccessToken,
			RefreshToken: res.Tokens.RefreshToken,
			ExpiresIn:    int(res.Tokens.ExpiresIn.Seconds()),
		},
	})
}

// HandleRefresh godoc
//
//	@Summary		Refresh Access Token
//	@Description	Exchange a refresh token for a new access token. The refresh token is not rotated.
//	@Tags			Sessions
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.RefreshTokenRequest	true	"Refresh token"
//	@Success		200		{object}	authsdk.RefreshResponse
//	@Failure		401		{object}	authsdk.ErrorResponse	"invalid_token, token_expired"
//	@Failure		403		{object}	authsdk.ErrorResponse	"account_banned"
//	@Router			/v1/auth/refresh [post].
func (h *SessionHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshTokenRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeInvalidBody(w)
		return
	}

	res, err := h.SessionService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, service.ErrTokenInvalid) || errors.Is(err, service.ErrTokenExpired) {
			_, resp := describeError(err)
			httpx.WriteJSON(w, http.StatusUnauthorized, resp)
			return
		}
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.RefreshResponse{
		AccessToken: res.AccessToken,
		ExpiresIn:   int(res.ExpiresIn.Seconds()),
	})
}

// HandleLogout godoc
//
//	@Summary		Logout
//	@Description	End the session identified by the refresh token. Unknown tokens are treated as already logged out.
//	@Tags			Sessions
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.RefreshTokenRequest	true	"Refresh token"
//	@Success		200		{object}	authsdk.MessageResponse
//	@Failure		400		{object}	authsdk.ErrorResponse
//	@Router			/v1/auth/logout [post].
func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshTokenRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeInvalidBody(w)
		return
	}

	if err := h.SessionService.Logout(r.Context(), req.RefreshToken); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: "Logged out successfully"})
}

// HandleLogoutAll godoc
//
//	@Summary		Logout Everywhere
//	@Description	End every session of the authenticated user.
//	@Tags			Sessions
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	authsdk.LogoutAllResponse
//	@Failure		401	{object}	authsdk.ErrorResponse
//	@Router			/v1/auth/logout-all [post].
func (h *SessionHandler) HandleLogoutAll(w http.ResponseWriter, r *http.Request) {
	userID, _ := httpx.UserIDFromContext(r.Context())

	n, err := h.SessionService.LogoutAll(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.LogoutAllResponse{
		Message:         "All sessions terminated",
		SessionsRevoked: n,
	})
}
