package domain

import "time"

// Invitation authorises the creation of exactly one project. Used is a
// one-way flag.
type Invitation struct {
	ID              string
	KeyHash         string
	Email           string // empty when the invitation is not bound to an address
	Description     string
	ExpiresAt       time.Time
	Used            bool
	UsedAt          *time.Time
	UsedByProjectID string
	CreatedByID     string
	CreatedAt       time.Time
}

func (i Invitation) Expired(now time.Time) bool { return now.After(i.ExpiresAt) }
