package sqldb

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/techauth/internal/auth/domain"
)

type sessionRow struct {
	ID         string         `db:"id"`
	UserID     string         `db:"user_id"`
	TokenHash  string         `db:"token_hash"`
	ExpiresAt  time.Time      `db:"expires_at"`
	LastUsedAt time.Time      `db:"last_used_at"`
	IPAddress  sql.NullString `db:"ip_address"`
	DeviceInfo sql.NullString `db:"device_info"`
	CreatedAt  time.Time      `db:"created_at"`
}

func mapSession(row sessionRow) domain.Session {
	return domain.Session{
		ID:         row.ID,
		UserID:     row.UserID,
		TokenHash:  row.TokenHash,
		ExpiresAt:  row.ExpiresAt.UTC(),
		LastUsedAt: row.LastUsedAt.UTC(),
		IPAddress:  mapNullString(row.IPAddress),
		DeviceInfo: mapNullString(row.DeviceInfo),
		CreatedAt:  row.CreatedAt.UTC(),
	}
}

type sessionsRepo struct{ conn }

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.Session) error {
	created := stamp(s.CreatedAt)
	lastUsed := s.LastUsedAt
	if lastUsed.IsZero() {
		lastUsed = created
	}
	_, err := r.exec(ctx, `
		INSERT INTO sessions (id, user_id, token_hash, expires_at, last_used_at, ip_address, device_info, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.TokenHash, utc(s.ExpiresAt), utc(lastUsed),
		mapStringNull(s.IPAddress), mapStringNull(s.DeviceInfo), created,
	)
	return err
}

func (r *sessionsRepo) GetByTokenHash(ctx context.Context, hash string) (domain.Session, error) {
	var row sessionRow
	err := r.get(ctx, &row, `
		SELECT id, user_id, token_hash, expires_at, last_used_at, ip_address, device_info, created_at
		FROM sessions WHERE token_hash = ?`,
		hash,
	)
	if err != nil {
		return domain.Session{}, err
	}
	return mapSession(row), nil
}

func (r *sessionsRepo) TouchSession(ctx context.Context, id string, at time.Time) error {
	return r.execOne(ctx, `UPDATE sessions SET last_used_at = ? WHERE id = ?`, utc(at), id)
}

func (r *sessionsRepo) DeleteByTokenHash(ctx context.Context, hash string) (bool, error) {
	n, err := r.exec(ctx, `DELETE FROM sessions WHERE token_hash = ?`, hash)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *sessionsRepo) DeleteAllForUser(ctx context.Context, userID string) (int64, error) {
	return r.exec(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
}

func (r *sessionsRepo) CountForUser(ctx context.Context, userID string) (int, error) {
	var count int
	if err := r.get(ctx, &count, `SELECT COUNT(*) FROM sessions WHERE user_id = ?`, userID); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *sessionsRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return r.exec(ctx, `DELETE FROM sessions WHERE expires_at < ?`, utc(now))
}
