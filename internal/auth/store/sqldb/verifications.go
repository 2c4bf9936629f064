package sqldb

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/techauth/internal/auth/domain"
)

type verificationRow struct {
	ID         string       `db:"id"`
	UserID     string       `db:"user_id"`
	Email      string       `db:"email"`
	TokenHash  string       `db:"token_hash"`
	ExpiresAt  time.Time    `db:"expires_at"`
	Verified   bool         `db:"verified"`
	VerifiedAt sql.NullTime `db:"verified_at"`
	CreatedAt  time.Time    `db:"created_at"`
}

func mapVerification(row verificationRow) domain.EmailVerification {
	return domain.EmailVerification{
		ID:         row.ID,
		UserID:     row.UserID,
		Email:      row.Email,
		TokenHash:  row.TokenHash,
		ExpiresAt:  row.ExpiresAt.UTC(),
		Verified:   row.Verified,
		VerifiedAt: mapNullTimePtr(row.VerifiedAt),
		CreatedAt:  row.CreatedAt.UTC(),
	}
}

type verificationsRepo struct{ conn }

func (r *verificationsRepo) CreateEmailVerification(ctx context.Context, v domain.EmailVerification) error {
	_, err := r.exec(ctx, `
		INSERT INTO email_verifications (id, user_id, email, token_hash, expires_at, verified, verified_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.UserID, v.Email, v.TokenHash, utc(v.ExpiresAt), v.Verified,
		mapOptionalTime(v.VerifiedAt), stamp(v.CreatedAt),
	)
	return err
}

func (r *verificationsRepo) GetByTokenHash(ctx context.Context, hash string) (domain.EmailVerification, error) {
	var row verificationRow
	err := r.get(ctx, &row, `
		SELECT id, user_id, email, token_hash, expires_at, verified, verified_at, created_at
		FROM email_verifications WHERE token_hash = ?`,
		hash,
	)
	if err != nil {
		return domain.EmailVerification{}, err
	}
	return mapVerification(row), nil
}

func (r *verificationsRepo) MarkVerified(ctx context.Context, id string, at time.Time) error {
	return r.execOne(ctx,
		`UPDATE email_verifications SET verified = ?, verified_at = ? WHERE id = ? AND NOT verified`,
		true, utc(at), id,
	)
}

func (r *verificationsRepo) DeletePendingForUser(ctx context.Context, userID string) error {
	_, err := r.exec(ctx, `DELETE FROM email_verifications WHERE user_id = ? AND NOT verified`, userID)
	return err
}

func (r *verificationsRepo) DeleteExpiredPending(ctx context.Context, now time.Time) (int64, error) {
	return r.exec(ctx, `DELETE FROM email_verifications WHERE NOT verified AND expires_at < ?`, utc(now))
}
