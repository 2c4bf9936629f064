package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/techauth/internal/auth/domain"
	"github.com/aussiebroadwan/techauth/internal/auth/store"
	"github.com/aussiebroadwan/techauth/internal/auth/store/sqldb"
	"github.com/aussiebroadwan/techauth/pkg/idx"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// newTestStore starts a throwaway PostgreSQL container and returns a migrated store.
func newTestStore(t *testing.T) *sqldb.Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "auth",
				"POSTGRES_PASSWORD": "auth",
				"POSTGRES_DB":       "auth",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	s, err := NewStore(fmt.Sprintf("postgres://auth:auth@%s:%s/auth?sslmode=disable", host, port.Port()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	// A second run is a no-op.
	require.NoError(t, s.ApplyMigrations())
	return s
}

func TestPostgresStore(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now().UTC().Truncate(time.Millisecond)

	user := domain.User{
		ID: idx.New().String(), Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace",
		PasswordHash: "hash", IsActive: true, CreatedAt: now, UpdatedAt: now,
	}
	project := domain.Project{
		ID: idx.New().String(), Name: "Acme", Slug: "acme", APIKey: "pk_acme", SecretHash: "secret",
		IsActive: true, AllowedOrigins: []string{"https://acme.example"}, CreatedAt: now, UpdatedAt: now,
	}

	t.Run("unique violations map to ErrAlreadyExists", func(t *testing.T) {
		require.NoError(t, s.Users().CreateUser(ctx, user))
		dup := user
		dup.ID = idx.New().String()
		require.ErrorIs(t, s.Users().CreateUser(ctx, dup), store.ErrAlreadyExists)

		require.NoError(t, s.Projects().CreateProject(ctx, project))
		other := project
		other.ID = idx.New().String()
		other.APIKey = "pk_other"
		require.ErrorIs(t, s.Projects().CreateProject(ctx, other), store.ErrAlreadyExists)
	})

	t.Run("round trip", func(t *testing.T) {
		got, err := s.Projects().GetProjectByAPIKey(ctx, "pk_acme")
		require.NoError(t, err)
		require.Equal(t, project.AllowedOrigins, got.AllowedOrigins)
		require.True(t, got.IsActive)

		require.NoError(t, s.Users().SetBanned(ctx, user.ID, true, "spam"))
		u, err := s.Users().GetUserByEmail(ctx, user.Email)
		require.NoError(t, err)
		require.True(t, u.IsBanned)
		require.Equal(t, "spam", u.BanReason)

		_, err = s.Users().GetUserByID(ctx, "missing")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("failed transaction leaves nothing", func(t *testing.T) {
		boom := errors.New("boom")
		err := s.WithTx(ctx, func(tx store.Tx) error {
			require.NoError(t, tx.Memberships().CreateMembership(ctx, domain.Membership{
				ID: idx.New().String(), UserID: user.ID, ProjectID: project.ID, Role: domain.RoleAdmin, CreatedAt: now,
			}))
			return boom
		})
		require.ErrorIs(t, err, boom)

		_, err = s.Memberships().GetMembership(ctx, user.ID, project.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("invitation is consumed once under contention", func(t *testing.T) {
		inv := domain.Invitation{
			ID: idx.New().String(), KeyHash: "key", ExpiresAt: now.Add(time.Hour),
			CreatedByID: user.ID, CreatedAt: now,
		}
		require.NoError(t, s.Invitations().CreateInvitation(ctx, inv))

		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			errs []error
		)
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := s.WithTx(ctx, func(tx store.Tx) error {
					return tx.Invitations().MarkUsed(ctx, inv.ID, project.ID, time.Now())
				})
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}()
		}
		wg.Wait()

		wins := 0
		for _, err := range errs {
			if err == nil {
				wins++
				continue
			}
			require.ErrorIs(t, err, store.ErrNotFound)
		}
		require.Equal(t, 1, wins)
	})

	t.Run("housekeeping deletes expired rows only", func(t *testing.T) {
		live := domain.Session{ID: idx.New().String(), UserID: user.ID, TokenHash: "live", ExpiresAt: now.Add(time.Hour), LastUsedAt: now, CreatedAt: now}
		stale := domain.Session{ID: idx.New().String(), UserID: user.ID, TokenHash: "stale", ExpiresAt: now.Add(-time.Hour), LastUsedAt: now, CreatedAt: now}
		require.NoError(t, s.Sessions().CreateSession(ctx, live))
		require.NoError(t, s.Sessions().CreateSession(ctx, stale))

		n, err := s.Sessions().DeleteExpired(ctx, now)
		require.NoError(t, err)
		require.EqualValues(t, 1, n)

		count, err := s.Sessions().CountForUser(ctx, user.ID)
		require.NoError(t, err)
		require.Equal(t, 1, count)
	})
}
