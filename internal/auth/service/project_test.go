package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProjectSeed(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	creds, err := env.Projects.Seed(ctx, SeedProjectInput{
		Name:           "  Acme Corp ",
		Slug:           "acme",
		AllowedOrigins: []string{" https://acme.example/ ", "", "http://localhost:3000"},
	})
	require.NoError(t, err)
	require.Equal(t, "Acme Corp", creds.Project.Name)
	require.Equal(t, []string{"https://acme.example", "http://localhost:3000"}, creds.Project.AllowedOrigins)
	require.True(t, creds.Project.IsActive)

	ok, err := env.Hasher.Verify(creds.APISecret, creds.Project.SecretHash)
	require.NoError(t, err)
	require.True(t, ok)

	t.Run("duplicate slug", func(t *testing.T) {
		_, err := env.Projects.Seed(ctx, SeedProjectInput{Name: "Other", Slug: "acme"})
		require.ErrorIs(t, err, ErrSlugTaken)
	})

	t.Run("invalid input", func(t *testing.T) {
		for _, slug := range []string{"Bad Slug", "UPPER", "under_score"} {
			_, err := env.Projects.Seed(ctx, SeedProjectInput{Name: "Other", Slug: slug})
			require.ErrorIs(t, err, ErrInvalidRequest, slug)
		}
		_, err := env.Projects.Seed(ctx, SeedProjectInput{Name: "Other", Slug: "-edge-"})
		require.NoError(t, err, "hyphens are allowed anywhere")
		_, err = env.Projects.Seed(ctx, SeedProjectInput{Name: "", Slug: "fine"})
		require.ErrorIs(t, err, ErrInvalidRequest)
	})
}

func TestResolveAPIKey(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	creds := env.seedProject(t, "acme")

	p, err := env.Projects.ResolveAPIKey(ctx, creds.APIKey)
	require.NoError(t, err)
	require.Equal(t, creds.Project.ID, p.ID)

	for _, key := range []string{"", "pk_unknown"} {
		_, err := env.Projects.ResolveAPIKey(ctx, key)
		require.ErrorIs(t, err, ErrTenantInactiveOrUnknown)
	}

	_, err = env.Store.DB().Exec(`UPDATE projects SET is_active = 0 WHERE id = ?`, creds.Project.ID)
	require.NoError(t, err)
	_, err = env.Projects.ResolveAPIKey(ctx, creds.APIKey)
	require.ErrorIs(t, err, ErrTenantInactiveOrUnknown)
}
