package sqldb

import (
	"context"
	"time"

	"github.com/aussiebroadwan/techauth/internal/auth/domain"
)

type membershipRow struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	ProjectID string    `db:"project_id"`
	Role      string    `db:"role"`
	CreatedAt time.Time `db:"created_at"`
}

func mapMembership(row membershipRow) domain.Membership {
	return domain.Membership{
		ID:        row.ID,
		UserID:    row.UserID,
		ProjectID: row.ProjectID,
		Role:      domain.Role(row.Role),
		CreatedAt: row.CreatedAt.UTC(),
	}
}

type membershipsRepo struct{ conn }

func (r *membershipsRepo) GetMembership(ctx context.Context, userID, projectID string) (domain.Membership, error) {
	var row membershipRow
	err := r.get(ctx, &row, `
		SELECT id, user_id, project_id, role, created_at
		FROM project_memberships WHERE user_id = ? AND project_id = ?`,
		userID, projectID,
	)
	if err != nil {
		return domain.Membership{}, err
	}
	return mapMembership(row), nil
}

func (r *membershipsRepo) CreateMembership(ctx context.Context, m domain.Membership) error {
	_, err := r.exec(ctx, `
		INSERT INTO project_memberships (id, user_id, project_id, role, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.UserID, m.ProjectID, string(m.Role), stamp(m.CreatedAt),
	)
	return err
}

func (r *membershipsRepo) ListByUser(ctx context.Context, userID string) ([]domain.Membership, error) {
	var rows []membershipRow
	err := r.selectAll(ctx, &rows, `
		SELECT id, user_id, project_id, role, created_at
		FROM project_memberships WHERE user_id = ? ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Membership, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapMembership(row))
	}
	return out, nil
}
