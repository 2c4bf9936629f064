package jwtx

import "errors"

var (
	// ErrExpired is the only failure a caller may answer with a re-auth prompt.
	ErrExpired = errors.New("jwtx: token expired")

	// ErrInvalid covers every other rejection. The more specific errors below
	// are wrapped alongside it.
	ErrInvalid = errors.New("jwtx: invalid token")

	ErrMalformed    = errors.New("jwtx: malformed token")
	ErrInvalidSig   = errors.New("jwtx: invalid signature")
	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrWrongKind    = errors.New("jwtx: wrong token kind")
	ErrNotYetValid  = errors.New("jwtx: token not yet valid")
	ErrWeakSecret   = errors.New("jwtx: signing secret missing or too short")
	ErrSharedSecret = errors.New("jwtx: access and refresh secrets must differ")
)
