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

// errorMapping ties a service error to its HTTP status and wire code. Order
// matters: ErrInvitationUsed wraps ErrInvitationInvalid and must come first.
var errorMapping = []struct {
	err    error
	status int
	code   string
}{
	{service.ErrInvalidRequest, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest},
	{service.ErrDuplicateEmail, http.StatusConflict, authsdk.ErrorCodeDuplicateEmail},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, authsdk.ErrorCodeInvalidCredentials},
	{service.ErrAccountBanned, http.StatusForbidden, authsdk.ErrorCodeAccountBanned},
	{service.ErrEmailNotVerified, http.StatusForbidden, authsdk.ErrorCodeEmailNotVerified},
	{service.ErrTokenInvalid, http.StatusBadRequest, authsdk.ErrorCodeInvalidToken},
	{service.ErrTokenExpired, http.StatusBadRequest, authsdk.ErrorCodeTokenExpired},
	{service.ErrTokenUsed, http.StatusBadRequest, authsdk.ErrorCodeTokenUsed},
	{service.ErrAlreadyVerified, http.StatusConflict, authsdk.ErrorCodeAlreadyVerified},
	{service.ErrUserNotFound, http.StatusNotFound, authsdk.ErrorCodeUserNotFound},
	{service.ErrNotMember, http.StatusForbidden, authsdk.ErrorCodeNotMember},
	{service.ErrCurrentPasswordIncorrect, http.StatusBadRequest, authsdk.ErrorCodeCurrentPasswordIncorrect},
	{service.ErrTenantInactiveOrUnknown, http.StatusUnauthorized, authsdk.ErrorCodeInvalidProject},
	{service.ErrSlugTaken, http.StatusConflict, authsdk.ErrorCodeSlugTaken},
	{service.ErrInvitationUsed, http.StatusBadRequest, authsdk.ErrorCodeInvitationUsed},
	{service.ErrInvitationInvalid, http.StatusBadRequest, authsdk.ErrorCodeInvitationInvalid},
	{service.ErrInvitationExpired, http.StatusBadRequest, authsdk.ErrorCodeInvitationExpired},
	{service.ErrInvitationEmailMismatch, http.StatusBadRequest, authsdk.ErrorCodeInvitationEmailMismatch},
	{service.ErrForbidden, http.StatusForbidden, authsdk.ErrorCodeAccessDenied},
}

// writeError maps err to a JSON error response. Unmapped errors are logged
// and reported as a generic server_error.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := describeError(err)
	if status == http.StatusInternalServerError {
		slogx.FromContext(r.Context()).Error("request failed", slog.Any("error", err))
	}
	httpx.WriteJSON(w, status, resp)
}

func describeError(err error) (int, authsdk.ErrorResponse) {
	for _, m := range errorMapping {
		if errors.Is(err, m.err) {
			return m.status, authsdk.ErrorResponse{Error: m.code, ErrorDescription: describe(err, m.err)}
		}
	}
	return http.StatusInternalServerError, authsdk.ErrorResponse{
		Error:            authsdk.ErrorCodeServerError,
		ErrorDescription: "internal server error",
	}
}

// describe returns a message safe to show to the caller.
func describe(err, sentinel error) string {
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	var be *service.AccountBannedError
	if errors.As(err, &be) {
		return be.Error()
	}
	return sentinel.Error()
}

func writeInvalidBody(w http.ResponseWriter) {
	httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
		Error:            authsdk.ErrorCodeInvalidRequest,
		ErrorDescription: "request body must be a JSON object",
	})
}

// apiKey prefers the key in the body and falls back to the X-API-Key header.
func apiKey(r *http.Request, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	return r.Header.Get(authsdk.APIKeyHeader)
}
