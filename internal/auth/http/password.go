package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/techauth/internal/auth/service"
	"github.com/aussiebroadwan/techauth/pkg/authsdk"
	"github.com/aussiebroadwan/techauth/pkg/httpx"
	"github.com/aussiebroadwan/techauth/pkg/slogx"
)

type PasswordHandler struct {
	AccountService *service.AccountService
}

const forgotPasswordMessage = "If the account exists, a password reset email has been sent"

// HandleForgotPassword godoc
//
//	@Summary		Forgot Password
//	@Description	Send a password reset email. The response is identical whether or not the account exists.
//	@Tags			Password
//	@Accept			json
//	@Produce		json
//	@Param			X-API-Key	header		string							false	"Project API key"
//	@Param			body		body		authsdk.ForgotPasswordRequest	true	"Email address"
//	@Success		200			{object}	authsdk.MessageResponse
//	@Failure		400			{object}	authsdk.ErrorResponse
//	@Router			/v1/auth/forgot-password [post].
func (h *PasswordHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req authsdk.ForgotPasswordRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeInvalidBody(w)
		return
	}

	err := h.AccountService.ForgotPassword(r.Context(), req.Email, apiKey(r, req.ProjectAPIKey), httpx.ClientIP(r))
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			writeError(w, r, err)
			return
		}
		// Failures stay invisible to the caller.
		slogx.FromContext(r.Context()).Error("forgot password failed", slog.Any("error", err))
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: forgotPasswordMessage})
}

// HandleResetPassword godoc
//
//	@Summary		Reset Password
//	@Description	Consume a reset token, set a new password and end every session of the user.
//	@Tags			Password
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.ResetPasswordRequest	true	"Reset token and new password"
//	@Success		200		{object}	authsdk.MessageResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_token, token_expired, token_used"
//	@Router			/v1/auth/reset-password [post].
func (h *PasswordHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req authsdk.ResetPasswordRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeInvalidBody(w)
		return
	}

	if err := h.AccountService.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: "Password reset successful"})
}

// HandleChangePassword godoc
//
//	@Summary		Change Password
//	@Description	Change the password of the authenticated user. Existing sessions stay valid.
//	@Tags			Password
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			body	body		authsdk.ChangePasswordRequest	true	"Current and new password"
//	@Success		200		{object}	authsdk.MessageResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"current_password_incorrect"
//	@Failure		401		{object}	authsdk.ErrorResponse
//	@Router			/v1/auth/change-password [post].
func (h *PasswordHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, _ := httpx.UserIDFromContext(r.Context())

	var req authsdk.ChangePasswordRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeInvalidBody(w)
		return
	}

	if err := h.AccountService.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: "Password changed successfully"})
}
