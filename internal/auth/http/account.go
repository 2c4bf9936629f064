package http

import (
	"net/http"

	"github.com/aussiebroadwan/techauth/internal/auth/service"
	"github.com/aussiebroadwan/techauth/pkg/authsdk"
	"github.com/aussiebroadwan/techauth/pkg/httpx"
)

type AccountHandler struct {
	AccountService *service.AccountService
}

// HandleRegister godoc
//
//	@Summary		Register
//	@Description	Create an unverified account in the project behind the API key and send a verification email.
//	@Description	Passing the bootstrap sentinel as invitationKey on an empty database creates the first global admin instead.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			X-API-Key	header		string						false	"Project API key"
//	@Param			body		body		authsdk.RegisterRequest		true	"Registration details"
//	@Success		201			{object}	authsdk.RegisterResponse
//	@Failure		400			{object}	authsdk.ErrorResponse
//	@Failure		401			{object}	authsdk.ErrorResponse	"invalid_project"
//	@Failure		409			{object}	authsdk.ErrorResponse	"duplicate_email"
//	@Router			/v1/auth/register [post].
func (h *AccountHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RegisterRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeInvalidBody(w)
		return
	}

	res, err := h.AccountService.Register(r.Context(), service.RegisterInput{
		Email:         req.Email,
		Password:      req.Password,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		ProjectAPIKey: apiKey(r, req.ProjectAPIKey),
		InvitationKey: req.InvitationKey,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	message := "Registration successful. Please verify your email."
	if res.GlobalAdmin {
		message = "Global admin created."
	}
	httpx.WriteJSON(w, http.StatusCreated, authsdk.RegisterResponse{
		UserID:      res.UserID,
		Email:       res.Email,
		GlobalAdmin: res.GlobalAdmin,
		Message:     message,
	})
}

// HandleVerifyEmail godoc
//
//	@Summary		Verify Email
//	@Description	Consume an email verification token.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.VerifyEmailRequest	true	"Verification token"
//	@Success		200		{object}	authsdk.MessageResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_token, token_expired"
//	@Failure		409		{object}	authsdk.ErrorResponse	"already_verified"
//	@Router			/v1/auth/verify-email [post].
func (h *AccountHandler) HandleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req authsdk.VerifyEmailRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeInvalidBody(w)
		return
	}

	if _, err := h.AccountService.VerifyEmail(r.Context(), req.Token); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: "Email verified successfully"})
}

// HandleVerifyEmailPage godoc
//
//	@Summary		Verify Email (link)
//	@Description	Target of the link in verification emails. Renders an HTML result page.
//	@Tags			Auth
//	@Produce		html
//	@Param			token	query	string	true	"Verification token"
//	@Success		200
//	@Failure		400
//	@Router			/v1/auth/verify-email [get].
func (h *AccountHandler) HandleVerifyEmailPage(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		renderVerifyPage(w, http.StatusBadRequest, verifyPage{
			Title:   "Invalid Verification Link",
			Message: "Missing token.",
		})
		return
	}

	if _, err := h.AccountService.VerifyEmail(r.Context(), token); err != nil {
		status, resp := describeError(err)
		if status == http.StatusInternalServerError {
			writeError(w, r, err)
			return
		}
		renderVerifyPage(w, http.StatusBadRequest, verifyPage{
			Title:   "Verification Failed",
			Message: resp.ErrorDescription,
		})
		return
	}

	renderVerifyPage(w, http.StatusOK, verifyPage{
		Title:   "Email Verified",
		Message: "Your account has been activated. You can now close this window and log in to your application.",
		Success: true,
	})
}

// HandleResendVerification godoc
//
//	@Summary		Resend Verification
//	@Description	Replace any pending verification of a project member with a new one.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			X-API-Key	header		string								false	"Project API key"
//	@Param			body		body		authsdk.ResendVerificationRequest	true	"Email address"
//	@Success		200			{object}	authsdk.MessageResponse
//	@Failure		400			{object}	authsdk.ErrorResponse
//	@Failure		404			{object}	authsdk.ErrorResponse	"user_not_found"
//	@Failure		409			{object}	authsdk.ErrorResponse	"already_verified"
//	@Router			/v1/auth/resend-verification [post].
func (h *AccountHandler) HandleResendVerification(w http.ResponseWriter, r *http.Request) {
	var req authsdk.ResendVerificationRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeInvalidBody(w)
		return
	}

	if err := h.AccountService.ResendVerification(r.Context(), req.Email, apiKey(r, req.ProjectAPIKey)); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: "Verification email sent"})
}
