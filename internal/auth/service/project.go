package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/aussiebroadwan/techauth/internal/auth/domain"
	"github.com/aussiebroadwan/techauth/internal/auth/store"
	"github.com/aussiebroadwan/techauth/pkg/cryptox"
	"github.com/aussiebroadwan/techauth/pkg/idx"
	"github.com/aussiebroadwan/techauth/pkg/slogx"
)

// ProjectService is the tenant registry.
type ProjectService struct {
	Store  store.Store
	Hasher *cryptox.Hasher
	Clock  Clock
}

// ProjectCredentials is returned exactly once, when a project is created.
// Only a hash of APISecret is kept.
type ProjectCredentials struct {
	Project   domain.Project
	APIKey    string
	APISecret string
}

type SeedProjectInput struct {
	Name           string
	Slug           string
	AllowedOrigins []string
}

// ResolveAPIKey returns the active project bound to apiKey, or
// ErrTenantInactiveOrUnknown.
func (s *ProjectService) ResolveAPIKey(ctx context.Context, apiKey string) (domain.Project, error) {
	log := slogx.FromContext(ctx)

	if apiKey == "" {
		return domain.Project{}, ErrTenantInactiveOrUnknown
	}

	project, err := s.Store.Projects().GetProjectByAPIKey(ctx, apiKey)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("unknown project api key")
			return domain.Project{}, ErrTenantInactiveOrUnknown
		}
		log.Error("failed to fetch project", slog.Any("error", err))
		return domain.Project{}, err
	}

	if !project.IsActive {
		log.Warn("inactive project api key", slog.String("project_id", project.ID))
		return domain.Project{}, ErrTenantInactiveOrUnknown
	}
	return project, nil
}

// Seed creates an active project outside of the invitation flow. It is used
// by operators to bring up the first tenant of a deployment.
func (s *ProjectService) Seed(ctx context.Context, in SeedProjectInput) (ProjectCredentials, error) {
	log := slogx.FromContext(ctx)

	// 1. Validate input
	if err := validateProjectName(in.Name); err != nil {
		return ProjectCredentials{}, err
	}
	if err := validateSlug(in.Slug); err != nil {
		return ProjectCredentials{}, err
	}

	// 2. Build the project and its credentials
	project, creds, err := s.newProject(in.Name, in.Slug, in.AllowedOrigins)
	if err != nil {
		log.Error("failed to generate project credentials", slog.Any("error", err))
		return ProjectCredentials{}, err
	}

	// 3. Persist
	if err := s.Store.Projects().CreateProject(ctx, project); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return ProjectCredentials{}, ErrSlugTaken
		}
		log.Error("failed to create project", slog.Any("error", err))
		return ProjectCredentials{}, err
	}

	log.Info("project seeded",
		slog.String("project_id", project.ID),
		slog.String("slug", project.Slug),
	)
	creds.Project = project
	return creds, nil
}

// newProject generates identifiers and API credentials for a new, active
// project. Nothing is stored.
func (s *ProjectService) newProject(name, slug string, origins []string) (domain.Project, ProjectCredentials, error) {
	apiKey, apiSecret, err := cryptox.GenerateAPICredentials()
	if err != nil {
		return domain.Project{}, ProjectCredentials{}, err
	}
	secretHash, err := hashPassword(s.Hasher, apiSecret)
	if err != nil {
		return domain.Project{}, ProjectCredentials{}, err
	}

	now := s.Clock.now()
	project := domain.Project{
		ID:             idx.New().String(),
		Name:           strings.TrimSpace(name),
		Slug:           slug,
		APIKey:         apiKey,
		SecretHash:     secretHash,
		IsActive:       true,
		AllowedOrigins: cleanOrigins(origins),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return project, ProjectCredentials{APIKey: apiKey, APISecret: apiSecret}, nil
}

func cleanOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" {
			out = append(out, o)
		}
	}
	return out
}
