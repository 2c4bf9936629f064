package authsdk

import "time"

// ============================================================================
// Error Types
// ============================================================================

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	// Error is a machine readable code, see the ErrorCode constants.
	Error string `json:"error"`

	// ErrorDescription is a human-readable description of the error
	ErrorDescription string `json:"error_description"`
}

// MessageResponse acknowledges operations that return no data.
type MessageResponse struct {
	Message string `json:"message"`
}

// ============================================================================
// Registration and Verification
// ============================================================================

// RegisterRequest registers a user under a project. The API key may also be
// sent in the X-API-Key header. InvitationKey carries the bootstrap sentinel
// when creating the first global admin.
type RegisterRequest struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	ProjectAPIKey string `json:"projectApiKey,omitempty"`
	InvitationKey string `json:"invitationKey,omitempty"`
}

type RegisterResponse struct {
	UserID      string `json:"userId"`
	Email       string `json:"email"`
	GlobalAdmin bool   `json:"globalAdmin,omitempty"`
	Message     string `json:"message"`
}

type VerifyEmailRequest struct {
	Token string `json:"token"`
}

type ResendVerificationRequest struct {
	Email         string `json:"email"`
	ProjectAPIKey string `json:"projectApiKey,omitempty"`
}

// ============================================================================
// Sessions
// ============================================================================

type LoginRequest struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	ProjectAPIKey string `json:"projectApiKey,omitempty"`
}

// UserProfile is the public view of a user.
type UserProfile struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	EmailVerified bool   `json:"emailVerified"`
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`

	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int `json:"expiresIn"`
}

type LoginResponse struct {
	User   UserProfile `json:"user"`
	Tokens TokenPair   `json:"tokens"`
}

// RefreshTokenRequest is the body of both refresh and logout.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int    `json:"expiresIn"`
}

type LogoutAllResponse struct {
	Message         string `json:"message"`
	SessionsRevoked int64  `json:"sessionsRevoked"`
}

// ============================================================================
// Passwords
// ============================================================================

type ForgotPasswordRequest struct {
	Email         string `json:"email"`
	ProjectAPIKey string `json:"projectApiKey,omitempty"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ============================================================================
// Projects
// ============================================================================

type CreateInvitationRequest struct {
	Email       string `json:"email"`
	Description string `json:"description,omitempty"`
}

type InvitationResponse struct {
	Key         string    `json:"key"`
	Email       string    `json:"email"`
	ExpiresAt   time.Time `json:"expiresAt"`
	Description string    `json:"description,omitempty"`
	Link        string    `json:"link"`
}

// CreateProjectRequest redeems an invitation. Names and password are only
// used when no account exists yet for Email.
type CreateProjectRequest struct {
	InvitationKey  string   `json:"invitationKey"`
	ProjectName    string   `json:"projectName"`
	ProjectSlug    string   `json:"projectSlug"`
	Email          string   `json:"email"`
	Password       string   `json:"password"`
	FirstName      string   `json:"firstName,omitempty"`
	LastName       string   `json:"lastName,omitempty"`
	AllowedOrigins []string `json:"allowedOrigins,omitempty"`
}

// ProjectCredentials holds the API secret, which is shown exactly once.
type ProjectCredentials struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	APIKey    string `json:"apiKey"`
	APISecret string `json:"apiSecret"`
}

type ProjectAdmin struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Created bool   `json:"created"`
}

type CreateProjectResponse struct {
	Project ProjectCredentials `json:"project"`
	User    ProjectAdmin       `json:"user"`
}

// ============================================================================
// Health
// ============================================================================

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks holds the status of individual dependencies.
type HealthChecks struct {
	Database string `json:"database"`
}
