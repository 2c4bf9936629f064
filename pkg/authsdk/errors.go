package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error codes returned in ErrorResponse.Error.
const (
	ErrorCodeInvalidRequest           = "invalid_request"
	ErrorCodeInvalidCredentials       = "invalid_credentials"
	ErrorCodeAccountBanned            = "account_banned"
	ErrorCodeEmailNotVerified         = "email_not_verified"
	ErrorCodeInvalidToken             = "invalid_token"
	ErrorCodeTokenExpired             = "token_expired"
	ErrorCodeTokenUsed                = "token_used"
	ErrorCodeAlreadyVerified          = "already_verified"
	ErrorCodeDuplicateEmail           = "duplicate_email"
	ErrorCodeUserNotFound             = "user_not_found"
	ErrorCodeNotMember                = "not_member"
	ErrorCodeCurrentPasswordIncorrect = "current_password_incorrect"
	ErrorCodeInvalidProject           = "invalid_project"
	ErrorCodeSlugTaken                = "slug_taken"
	ErrorCodeInvitationInvalid        = "invitation_invalid"
	ErrorCodeInvitationUsed           = "invitation_used"
	ErrorCodeInvitationExpired        = "invitation_expired"
	ErrorCodeInvitationEmailMismatch  = "invitation_email_mismatch"
	ErrorCodeAccessDenied             = "access_denied"
	ErrorCodeServerError              = "server_error"
)

// APIError is returned by Client methods for any non-2xx response.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Code, e.Description)
}

// IsCode reports whether err is an *APIError carrying code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// parseErrorResponse turns a non-2xx response into an *APIError.
func parseErrorResponse(resp *http.Response, body []byte) error {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
		}
	}

	// Fallback: create generic error from status code
	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
