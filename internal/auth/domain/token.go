package domain

import "time"

// TokenPair is what a successful login hands back to the caller.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration // access token lifetime
}

// EmailVerification is a pending or consumed email confirmation. Verified
// rows are history and never change again.
type EmailVerification struct {
	ID         string
	UserID     string
	Email      string
	TokenHash  string // deterministic fingerprint (base64url SHA-256)
	ExpiresAt  time.Time
	Verified   bool
	VerifiedAt *time.Time
	CreatedAt  time.Time
}

func (v EmailVerification) Expired(now time.Time) bool { return now.After(v.ExpiresAt) }

type PasswordReset struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	Used      bool
	UsedAt    *time.Time
	IPAddress string
	CreatedAt time.Time
}

func (r PasswordReset) Expired(now time.Time) bool { return now.After(r.ExpiresAt) }

// Session is one logged-in device, keyed by the fingerprint of its refresh token.
type Session struct {
	ID         string
	UserID     string
	TokenHash  string
	ExpiresAt  time.Time
	LastUsedAt time.Time
	IPAddress  string
	DeviceInfo string
	CreatedAt  time.Time
}

func (s Session) Expired(now time.Time) bool { return now.After(s.ExpiresAt) }
