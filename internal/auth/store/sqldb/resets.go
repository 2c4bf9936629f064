package sqldb

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/techauth/internal/auth/domain"
)

type resetRow struct {
	ID        string         `db:"id"`
	UserID    string         `db:"user_id"`
	TokenHash string         `db:"token_hash"`
	ExpiresAt time.Time      `db:"expires_at"`
	Used      bool           `db:"used"`
	UsedAt    sql.NullTime   `db:"used_at"`
	IPAddress sql.NullString `db:"ip_address"`
	CreatedAt time.Time      `db:"created_at"`
}

func mapReset(row resetRow) domain.PasswordReset {
	return domain.PasswordReset{
		ID:        row.ID,
		UserID:    row.UserID,
		TokenHash: row.TokenHash,
		ExpiresAt: row.ExpiresAt.UTC(),
		Used:      row.Used,
		UsedAt:    mapNullTimePtr(row.UsedAt),
		IPAddress: mapNullString(row.IPAddress),
		CreatedAt: row.CreatedAt.UTC(),
	}
}

type resetsRepo struct{ conn }

func (r *resetsRepo) CreatePasswordReset(ctx context.Context, pr domain.PasswordReset) error {
	_, err := r.exec(ctx, `
		INSERT INTO password_resets (id, user_id, token_hash, expires_at, used, ip_address, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		pr.ID, pr.UserID, pr.TokenHash, utc(pr.ExpiresAt), pr.Used,
		mapStringNull(pr.IPAddress), stamp(pr.CreatedAt),
	)
	return err
}

func (r *resetsRepo) GetByTokenHash(ctx context.Context, hash string) (domain.PasswordReset, error) {
	var row resetRow
	err := r.get(ctx, &row, `
		SELECT id, user_id, token_hash, expires_at, used, used_at, ip_address, created_at
		FROM password_resets WHERE token_hash = ?`,
		hash,
	)
	if err != nil {
		return domain.PasswordReset{}, err
	}
	return mapReset(row), nil
}

func (r *resetsRepo) MarkUsed(ctx context.Context, id string, at time.Time) error {
	return r.execOne(ctx,
		`UPDATE password_resets SET used = ?, used_at = ? WHERE id = ? AND NOT used`,
		true, utc(at), id,
	)
}

func (r *resetsRepo) DeleteExpiredUnused(ctx context.Context, now time.Time) (int64, error) {
	return r.exec(ctx, `DELETE FROM password_resets WHERE NOT used AND expires_at < ?`, utc(now))
}
