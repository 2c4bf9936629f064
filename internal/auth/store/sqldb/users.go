package sqldb

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/techauth/internal/auth/domain"
)

const userColumns = `id, email, first_name, last_name, password_hash, email_verified,
	is_active, is_banned, ban_reason, is_global_admin, last_login_at, last_login_ip,
	created_at, updated_at`

type userRow struct {
	ID            string         `db:"id"`
	Email         string         `db:"email"`
	FirstName     string         `db:"first_name"`
	LastName      string         `db:"last_name"`
	PasswordHash  sql.NullString `db:"password_hash"`
	EmailVerified bool           `db:"email_verified"`
	IsActive      bool           `db:"is_active"`
	IsBanned      bool           `db:"is_banned"`
	BanReason     sql.NullString `db:"ban_reason"`
	IsGlobalAdmin bool           `db:"is_global_admin"`
	LastLoginAt   sql.NullTime   `db:"last_login_at"`
	LastLoginIP   sql.NullString `db:"last_login_ip"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

func mapUser(row userRow) domain.User {
	return domain.User{
		ID:            row.ID,
		Email:         row.Email,
		FirstName:     row.FirstName,
		LastName:      row.LastName,
		PasswordHash:  mapNullString(row.PasswordHash),
		EmailVerified: row.EmailVerified,
		IsActive:      row.IsActive,
		IsBanned:      row.IsBanned,
		BanReason:     mapNullString(row.BanReason),
		IsGlobalAdmin: row.IsGlobalAdmin,
		LastLoginAt:   mapNullTimePtr(row.LastLoginAt),
		LastLoginIP:   mapNullString(row.LastLoginIP),
		CreatedAt:     row.CreatedAt.UTC(),
		UpdatedAt:     row.UpdatedAt.UTC(),
	}
}

type usersRepo struct{ conn }

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	var row userRow
	if err := r.get(ctx, &row, `SELECT `+userColumns+` FROM users WHERE id = ?`, id); err != nil {
		return domain.User{}, err
	}
	return mapUser(row), nil
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	var row userRow
	if err := r.get(ctx, &row, `SELECT `+userColumns+` FROM users WHERE email = ?`, email); err != nil {
		return domain.User{}, err
	}
	return mapUser(row), nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	created := stamp(u.CreatedAt)
	_, err := r.exec(ctx, `
		INSERT INTO users (id, email, first_name, last_name, password_hash, email_verified,
			is_active, is_banned, ban_reason, is_global_admin, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.FirstName, u.LastName, mapStringNull(u.PasswordHash), u.EmailVerified,
		u.IsActive, u.IsBanned, mapStringNull(u.BanReason), u.IsGlobalAdmin, created, created,
	)
	return err
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	var count int
	if err := r.get(ctx, &count, `SELECT COUNT(*) FROM users`); err != nil {
		return false, err
	}
	return count == 0, nil
}

func (r *usersRepo) SetEmailVerified(ctx context.Context, userID string, verified bool) error {
	return r.execOne(ctx,
		`UPDATE users SET email_verified = ?, updated_at = ? WHERE id = ?`,
		verified, time.Now().UTC(), userID,
	)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	return r.execOne(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		newHash, time.Now().UTC(), userID,
	)
}

func (r *usersRepo) UpdateLastLogin(ctx context.Context, userID string, at time.Time, ip string) error {
	return r.execOne(ctx,
		`UPDATE users SET last_login_at = ?, last_login_ip = ?, updated_at = ? WHERE id = ?`,
		utc(at), mapStringNull(ip), time.Now().UTC(), userID,
	)
}

func (r *usersRepo) SetBanned(ctx context.Context, userID string, banned bool, reason string) error {
	if !banned {
		reason = ""
	}
	return r.execOne(ctx,
		`UPDATE users SET is_banned = ?, ban_reason = ?, updated_at = ? WHERE id = ?`,
		banned, mapStringNull(reason), time.Now().UTC(), userID,
	)
}

func (r *usersRepo) SetGlobalAdmin(ctx context.Context, userID string, admin bool) error {
	return r.execOne(ctx,
		`UPDATE users SET is_global_admin = ?, updated_at = ? WHERE id = ?`,
		admin, time.Now().UTC(), userID,
	)
}
