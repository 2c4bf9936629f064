package sqldb

import (
	"context"
	"strings"
	"time"

	"github.com/aussiebroadwan/techauth/internal/auth/domain"
)

const projectColumns = `id, name, slug, api_key, secret_hash, is_active, allowed_origins, created_at, updated_at`

type projectRow struct {
	ID             string    `db:"id"`
	Name           string    `db:"name"`
	Slug           string    `db:"slug"`
	APIKey         string    `db:"api_key"`
	SecretHash     string    `db:"secret_hash"`
	IsActive       bool      `db:"is_active"`
	AllowedOrigins string    `db:"allowed_origins"` // space separated
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func mapProject(row projectRow) domain.Project {
	return domain.Project{
		ID:             row.ID,
		Name:           row.Name,
		Slug:           row.Slug,
		APIKey:         row.APIKey,
		SecretHash:     row.SecretHash,
		IsActive:       row.IsActive,
		AllowedOrigins: splitAndFilter(row.AllowedOrigins),
		CreatedAt:      row.CreatedAt.UTC(),
		UpdatedAt:      row.UpdatedAt.UTC(),
	}
}

type projectsRepo struct{ conn }

func (r *projectsRepo) getBy(ctx context.Context, column, value string) (domain.Project, error) {
	var row projectRow
	if err := r.get(ctx, &row, `SELECT `+projectColumns+` FROM projects WHERE `+column+` = ?`, value); err != nil {
		return domain.Project{}, err
	}
	return mapProject(row), nil
}

func (r *projectsRepo) GetProjectByID(ctx context.Context, id string) (domain.Project, error) {
	return r.getBy(ctx, "id", id)
}

func (r *projectsRepo) GetProjectByAPIKey(ctx context.Context, apiKey string) (domain.Project, error) {
	return r.getBy(ctx, "api_key", apiKey)
}

func (r *projectsRepo) GetProjectBySlug(ctx context.Context, slug string) (domain.Project, error) {
	return r.getBy(ctx, "slug", slug)
}

func (r *projectsRepo) CreateProject(ctx context.Context, p domain.Project) error {
	created := stamp(p.CreatedAt)
	_, err := r.exec(ctx, `
		INSERT INTO projects (id, name, slug, api_key, secret_hash, is_active, allowed_origins, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Slug, p.APIKey, p.SecretHash, p.IsActive,
		strings.Join(p.AllowedOrigins, " "), created, created,
	)
	return err
}
