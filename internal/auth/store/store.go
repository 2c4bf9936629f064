package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/techauth/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable, and so a Tx-scoped Store can be handed to code that must not
// start its own transaction.
type Store interface {
	Users() Users
	Projects() Projects
	Memberships() Memberships
	EmailVerifications() EmailVerifications
	PasswordResets() PasswordResets
	Sessions() Sessions
	Invitations() Invitations
	LoginHistory() LoginHistory

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail expects an already normalised (lowercased) email.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user. A duplicate email yields ErrAlreadyExists.
	CreateUser(ctx context.Context, u domain.User) error

	// IsEmpty returns true if there are no users at all.
	IsEmpty(ctx context.Context) (bool, error)

	SetEmailVerified(ctx context.Context, userID string, verified bool) error
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error
	UpdateLastLogin(ctx context.Context, userID string, at time.Time, ip string) error

	// SetBanned bans or unbans a user. The reason is cleared on unban.
	SetBanned(ctx context.Context, userID string, banned bool, reason string) error

	SetGlobalAdmin(ctx context.Context, userID string, admin bool) error
}

type Projects interface {
	GetProjectByID(ctx context.Context, id string) (domain.Project, error)
	GetProjectByAPIKey(ctx context.Context, apiKey string) (domain.Project, error)
	GetProjectBySlug(ctx context.Context, slug string) (domain.Project, error)

	// CreateProject inserts a project. A duplicate slug or API key yields
	// ErrAlreadyExists.
	CreateProject(ctx context.Context, p domain.Project) error
}

type Memberships interface {
	// GetMembership returns the (user, project) link or ErrNotFound.
	GetMembership(ctx context.Context, userID, projectID string) (domain.Membership, error)

	// CreateMembership yields ErrAlreadyExists when the pair is already linked.
	CreateMembership(ctx context.Context, m domain.Membership) error

	ListByUser(ctx context.Context, userID string) ([]domain.Membership, error)
}

type EmailVerifications interface {
	CreateEmailVerification(ctx context.Context, v domain.EmailVerification) error

	// GetByTokenHash returns the record whatever its state; callers decide
	// between already-verified, expired and pending.
	GetByTokenHash(ctx context.Context, hash string) (domain.EmailVerification, error)

	// MarkVerified flips a pending record. It returns ErrNotFound when the
	// record was already verified, so only one caller can win.
	MarkVerified(ctx context.Context, id string, at time.Time) error

	// DeletePendingForUser removes every unverified record for the user.
	DeletePendingForUser(ctx context.Context, userID string) error

	// DeleteExpiredPending is housekeeping; verified rows are kept.
	DeleteExpiredPending(ctx context.Context, now time.Time) (int64, error)
}

type PasswordResets interface {
	CreatePasswordReset(ctx context.Context, r domain.PasswordReset) error
	GetByTokenHash(ctx context.Context, hash string) (domain.PasswordReset, error)

	// MarkUsed flips an unused reset. It returns ErrNotFound when the reset was
	// already used, so only one caller can win.
	MarkUsed(ctx context.Context, id string, at time.Time) error

	// DeleteExpiredUnused is housekeeping; used rows are kept.
	DeleteExpiredUnused(ctx context.Context, now time.Time) (int64, error)
}

type Sessions interface {
	CreateSession(ctx context.Context, s domain.Session) error
	GetByTokenHash(ctx context.Context, hash string) (domain.Session, error)
	TouchSession(ctx context.Context, id string, at time.Time) error

	// DeleteByTokenHash reports whether a session was removed.
	DeleteByTokenHash(ctx context.Context, hash string) (bool, error)

	// DeleteAllForUser returns the number of sessions removed.
	DeleteAllForUser(ctx context.Context, userID string) (int64, error)

	CountForUser(ctx context.Context, userID string) (int, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type Invitations interface {
	CreateInvitation(ctx context.Context, inv domain.Invitation) error

	// GetByKeyHash returns the invitation whatever its state.
	GetByKeyHash(ctx context.Context, hash string) (domain.Invitation, error)

	// MarkUsed sets used=1 and the back-reference to the project. It returns
	// ErrNotFound when the invitation was already used, which is how
	// concurrent redemptions of the same key are settled.
	MarkUsed(ctx context.Context, id string, projectID string, at time.Time) error

	// DeleteExpiredUnused is housekeeping; used rows are kept.
	DeleteExpiredUnused(ctx context.Context, now time.Time) (int64, error)
}

type LoginHistory interface {
	RecordLoginAttempt(ctx context.Context, a domain.LoginAttempt) error

	// ListForUser returns the most recent attempts first.
	ListForUser(ctx context.Context, userID string, limit int) ([]domain.LoginAttempt, error)

	// CountForEmail counts attempts recorded against an email address.
	CountForEmail(ctx context.Context, email string) (int, error)
}
