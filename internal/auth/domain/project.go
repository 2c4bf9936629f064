package domain

import "time"

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func (r Role) Valid() bool { return r == RoleAdmin || r == RoleUser }

// Project is a tenant. APIKey identifies it publicly; the secret is only kept
// as a hash and handed out once at creation.
type Project struct {
	ID             string
	Name           string
	Slug           string
	APIKey         string
	SecretHash     string
	IsActive       bool
	AllowedOrigins []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Membership struct {
	ID        string
	UserID    string
	ProjectID string
	Role      Role
	CreatedAt time.Time
}
