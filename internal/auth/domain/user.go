package domain

import "time"

type User struct {
	ID            string
	Email         string // stored lowercased
	FirstName     string
	LastName      string
	PasswordHash  string // argon2 encoded, empty when the account has no local credentials
	EmailVerified bool
	IsActive      bool
	IsBanned      bool
	BanReason     string
	IsGlobalAdmin bool
	LastLoginAt   *time.Time
	LastLoginIP   string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HasPassword reports whether the user can authenticate with a local password.
func (u User) HasPassword() bool { return u.PasswordHash != "" }

// LoginAttempt is an append-only audit row written for every login attempt.
type LoginAttempt struct {
	ID            string
	UserID        string // empty when the email did not resolve to a user
	ProjectID     string
	Email         string
	Success       bool
	FailureReason string
	IPAddress     string
	UserAgent     string
	CreatedAt     time.Time
}

// ClientMeta carries the caller's network details for audit and session rows.
type ClientMeta struct {
	IPAddress string
	UserAgent string
}
