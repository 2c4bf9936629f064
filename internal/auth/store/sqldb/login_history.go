package sqldb

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/techauth/internal/auth/domain"
)

type loginAttemptRow struct {
	ID            string         `db:"id"`
	UserID        sql.NullString `db:"user_id"`
	ProjectID     sql.NullString `db:"project_id"`
	Email         string         `db:"email"`
	Success       bool           `db:"success"`
	FailureReason sql.NullString `db:"failure_reason"`
	IPAddress     sql.NullString `db:"ip_address"`
	UserAgent     sql.NullString `db:"user_agent"`
	CreatedAt     time.Time      `db:"created_at"`
}

func mapLoginAttempt(row loginAttemptRow) domain.LoginAttempt {
	return domain.LoginAttempt{
		ID:            row.ID,
		UserID:        mapNullString(row.UserID),
		ProjectID:     mapNullString(row.ProjectID),
		Email:         row.Email,
		Success:       row.Success,
		FailureReason: mapNullString(row.FailureReason),
		IPAddress:     mapNullString(row.IPAddress),
		UserAgent:     mapNullString(row.UserAgent),
		CreatedAt:     row.CreatedAt.UTC(),
	}
}

type loginHistoryRepo struct{ conn }

func (r *loginHistoryRepo) RecordLoginAttempt(ctx context.Context, a domain.LoginAttempt) error {
	_, err := r.exec(ctx, `
		INSERT INTO login_history (id, user_id, project_id, email, success, failure_reason, ip_address, user_agent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, mapStringNull(a.UserID), mapStringNull(a.ProjectID), a.Email, a.Success,
		mapStringNull(a.FailureReason), mapStringNull(a.IPAddress), mapStringNull(a.UserAgent), stamp(a.CreatedAt),
	)
	return err
}

func (r *loginHistoryRepo) ListForUser(ctx context.Context, userID string, limit int) ([]domain.LoginAttempt, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []loginAttemptRow
	err := r.selectAll(ctx, &rows, `
		SELECT id, user_id, project_id, email, success, failure_reason, ip_address, user_agent, created_at
		FROM login_history WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	out := make([]domain.LoginAttempt, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapLoginAttempt(row))
	}
	return out, nil
}

func (r *loginHistoryRepo) CountForEmail(ctx context.Context, email string) (int, error) {
	var count int
	if err := r.get(ctx, &count, `SELECT COUNT(*) FROM login_history WHERE email = ?`, email); err != nil {
		return 0, err
	}
	return count, nil
}
