package service

import (
	"errors"
	"fmt"
)

var (
	// Input and authorization errors.
	ErrInvalidRequest = errors.New("invalid_request")
	ErrForbidden      = errors.New("forbidden")

	// Account errors.
	ErrDuplicateEmail           = errors.New("user with this email already exists")
	ErrInvalidCredentials       = errors.New("invalid email or password")
	ErrAccountBanned            = errors.New("account banned")
	ErrEmailNotVerified         = errors.New("please verify your email before logging in")
	ErrCurrentPasswordIncorrect = errors.New("current password is incorrect")
	ErrUserNotFound             = errors.New("user not found")
	ErrNotMember                = errors.New("user not associated with this project")

	// Single-use token errors, shared by verification, reset and session tokens.
	ErrTokenInvalid    = errors.New("invalid token")
	ErrTokenExpired    = errors.New("token expired")
	ErrTokenUsed       = errors.New("token already used")
	ErrAlreadyVerified = errors.New("email already verified")

	// Invitation and tenant errors.
	ErrInvitationInvalid       = errors.New("invalid invitation key")
	ErrInvitationUsed          = fmt.Errorf("%w: invitation already used", ErrInvitationInvalid)
	ErrInvitationExpired       = errors.New("invitation expired")
	ErrInvitationEmailMismatch = errors.New("email does not match invitation")
	ErrSlugTaken               = errors.New("project slug already exists")
	ErrTenantInactiveOrUnknown = errors.New("invalid or inactive project API key")

	// ErrHashing is an infrastructure failure of the password primitive.
	ErrHashing = errors.New("password hashing failed")
)

// AccountBannedError carries the ban reason; it matches ErrAccountBanned.
type AccountBannedError struct {
	Reason string
}

func (e *AccountBannedError) Error() string {
	if e.Reason == "" {
		return "account banned: no reason provided"
	}
	return "account banned: " + e.Reason
}

func (e *AccountBannedError) Is(target error) bool { return target == ErrAccountBanned }

// ValidationError describes a rejected input field; it matches ErrInvalidRequest.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidRequest }

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
