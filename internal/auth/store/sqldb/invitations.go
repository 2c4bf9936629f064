package sqldb

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/techauth/internal/auth/domain"
)

type invitationRow struct {
	ID              string         `db:"id"`
	KeyHash         string         `db:"key_hash"`
	Email           sql.NullString `db:"email"`
	Description     sql.NullString `db:"description"`
	ExpiresAt       time.Time      `db:"expires_at"`
	Used            bool           `db:"used"`
	UsedAt          sql.NullTime   `db:"used_at"`
	UsedByProjectID sql.NullString `db:"used_by_project_id"`
	CreatedByID     string         `db:"created_by_id"`
	CreatedAt       time.Time      `db:"created_at"`
}

func mapInvitation(row invitationRow) domain.Invitation {
	return domain.Invitation{
		ID:              row.ID,
		KeyHash:         row.KeyHash,
		Email:           mapNullString(row.Email),
		Description:     mapNullString(row.Description),
		ExpiresAt:       row.ExpiresAt.UTC(),
		Used:            row.Used,
		UsedAt:          mapNullTimePtr(row.UsedAt),
		UsedByProjectID: mapNullString(row.UsedByProjectID),
		CreatedByID:     row.CreatedByID,
		CreatedAt:       row.CreatedAt.UTC(),
	}
}

type invitationsRepo struct{ conn }

func (r *invitationsRepo) CreateInvitation(ctx context.Context, inv domain.Invitation) error {
	_, err := r.exec(ctx, `
		INSERT INTO project_invitations (id, key_hash, email, description, expires_at, used, created_by_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.KeyHash, mapStringNull(inv.Email), mapStringNull(inv.Description),
		utc(inv.ExpiresAt), false, inv.CreatedByID, stamp(inv.CreatedAt),
	)
	return err
}

func (r *invitationsRepo) GetByKeyHash(ctx context.Context, hash string) (domain.Invitation, error) {
	var row invitationRow
	err := r.get(ctx, &row, `
		SELECT id, key_hash, email, description, expires_at, used, used_at, used_by_project_id, created_by_id, created_at
		FROM project_invitations WHERE key_hash = ?`,
		hash,
	)
	if err != nil {
		return domain.Invitation{}, err
	}
	return mapInvitation(row), nil
}

func (r *invitationsRepo) MarkUsed(ctx context.Context, id string, projectID string, at time.Time) error {
	return r.execOne(ctx, `
		UPDATE project_invitations SET used = ?, used_at = ?, used_by_project_id = ?
		WHERE id = ? AND NOT used`,
		true, utc(at), projectID, id,
	)
}

func (r *invitationsRepo) DeleteExpiredUnused(ctx context.Context, now time.Time) (int64, error) {
	return r.exec(ctx, `DELETE FROM project_invitations WHERE NOT used AND expires_at < ?`, utc(now))
}
