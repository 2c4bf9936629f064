package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/techauth/internal/auth/domain"
	"github.com/aussiebroadwan/techauth/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func tenantInput(key, slug, email string) CreateTenantInput {
	return CreateTenantInput{
		InvitationKey: key,
		TenantName:    "Tenant " + slug,
		TenantSlug:    slug,
		Email:         email,
		Password:      testPassword,
		FirstName:     "Grace",
		LastName:      "Hopper",
	}
}

func TestCreateTenant(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.bootstrapAdmin(t)

	issued, err := env.Invitations.Create(ctx, CreateInvitationInput{CreatedByID: admin.UserID, Email: "b@x.com"})
	require.NoError(t, err)

	res, err := env.Provisioning.CreateTenant(ctx, tenantInput(issued.Key, "bravo", "b@x.com"))
	require.NoError(t, err)
	require.True(t, res.UserCreated)
	require.Equal(t, "bravo", res.Project.Slug)
	require.Regexp(t, `^pk_[0-9a-f]{32}$`, res.APIKey)
	require.Regexp(t, `^sk_[0-9a-f]{64}$`, res.APISecret)

	t.Run("project stores only a secret hash", func(t *testing.T) {
		p, err := env.Store.Projects().GetProjectByAPIKey(ctx, res.APIKey)
		require.NoError(t, err)
		require.True(t, p.IsActive)
		require.NotEqual(t, res.APISecret, p.SecretHash)
		ok, err := env.Hasher.Verify(res.APISecret, p.SecretHash)
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("admin membership and unverified user", func(t *testing.T) {
		m, err := env.Store.Memberships().GetMembership(ctx, res.User.ID, res.Project.ID)
		require.NoError(t, err)
		require.Equal(t, domain.RoleAdmin, m.Role)
		require.False(t, res.User.EmailVerified)
	})

	t.Run("invitation consumed with back-reference", func(t *testing.T) {
		inv, err := env.Store.Invitations().GetByKeyHash(ctx, cryptox.FingerprintToken(issued.Key))
		require.NoError(t, err)
		require.True(t, inv.Used)
		require.Equal(t, res.Project.ID, inv.UsedByProjectID)
	})

	t.Run("verification sent and usable", func(t *testing.T) {
		_, err := env.Accounts.VerifyEmail(ctx, env.Notifier.last(t, "verification", "b@x.com"))
		require.NoError(t, err)

		login := env.login(t, "b@x.com", res.APIKey)
		require.Equal(t, res.User.ID, login.User.ID)
	})

	t.Run("second redemption fails", func(t *testing.T) {
		_, err := env.Provisioning.CreateTenant(ctx, tenantInput(issued.Key, "bravo-2", "b@x.com"))
		require.ErrorIs(t, err, ErrInvitationInvalid)
		require.ErrorIs(t, err, ErrInvitationUsed)
	})
}

func TestCreateTenant_EmailMismatchLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.bootstrapAdmin(t)

	issued, err := env.Invitations.Create(ctx, CreateInvitationInput{CreatedByID: admin.UserID, Email: "b@x.com"})
	require.NoError(t, err)

	_, err = env.Provisioning.CreateTenant(ctx, tenantInput(issued.Key, "charlie", "c@x.com"))
	require.ErrorIs(t, err, ErrInvitationEmailMismatch)

	_, err = env.Store.Projects().GetProjectBySlug(ctx, "charlie")
	require.Error(t, err)
	_, err = env.Store.Users().GetUserByEmail(ctx, "c@x.com")
	require.Error(t, err)

	inv, err := env.Store.Invitations().GetByKeyHash(ctx, cryptox.FingerprintToken(issued.Key))
	require.NoError(t, err)
	require.False(t, inv.Used)
}

func TestCreateTenant_EmailComparisonIsExact(t *testing.T) {
	env := newTestEnv(t)
	admin := env.bootstrapAdmin(t)
	key := env.insertInvitation(t, admin.UserID, "B@x.com", env.Clock.Now().Add(time.Hour))

	_, err := env.Provisioning.CreateTenant(context.Background(), tenantInput(key, "delta", "b@x.com"))
	require.ErrorIs(t, err, ErrInvitationEmailMismatch)
}

func TestCreateTenant_Rejections(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.bootstrapAdmin(t)
	now := env.Clock.Now()
	env.seedProject(t, "taken")

	expired := env.insertInvitation(t, admin.UserID, "b@x.com", now.Add(-time.Minute))
	live := env.insertInvitation(t, admin.UserID, "b@x.com", now.Add(time.Hour))

	cases := []struct {
		name string
		in   CreateTenantInput
		want error
	}{
		{"unknown key", tenantInput("nope", "echo", "b@x.com"), ErrInvitationInvalid},
		{"expired key", tenantInput(expired, "echo", "b@x.com"), ErrInvitationExpired},
		{"slug taken", tenantInput(live, "taken", "b@x.com"), ErrSlugTaken},
		{"bad slug", tenantInput(live, "Not_A_Slug", "b@x.com"), ErrInvalidRequest},
		{"weak password", func() CreateTenantInput {
			in := tenantInput(live, "echo", "b@x.com")
			in.Password = "weak"
			return in
		}(), ErrInvalidRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.Provisioning.CreateTenant(ctx, tc.in)
			require.ErrorIs(t, err, tc.want)
		})
	}

	inv, err := env.Store.Invitations().GetByKeyHash(ctx, cryptox.FingerprintToken(live))
	require.NoError(t, err)
	require.False(t, inv.Used, "rejected attempts must not consume the invitation")
}

func TestCreateTenant_ExistingUserKeepsCredentials(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.bootstrapAdmin(t)
	first := env.seedProject(t, "first")
	existing := env.registerVerified(t, "b@x.com", first.APIKey)
	before := env.Notifier.count("verification")

	key := env.insertInvitation(t, admin.UserID, "b@x.com", env.Clock.Now().Add(time.Hour))
	in := tenantInput(key, "second", "b@x.com")
	in.Password = "Diff3rent!Pass"

	res, err := env.Provisioning.CreateTenant(ctx, in)
	require.NoError(t, err)
	require.False(t, res.UserCreated)
	require.Equal(t, existing.UserID, res.User.ID)
	require.Equal(t, before, env.Notifier.count("verification"))

	// The original password still works against the new tenant.
	login := env.login(t, "b@x.com", res.APIKey)
	require.Equal(t, existing.UserID, login.User.ID)
}

func TestCreateTenant_UnboundInvitation(t *testing.T) {
	env := newTestEnv(t)
	admin := env.bootstrapAdmin(t)
	key := env.insertInvitation(t, admin.UserID, "", env.Clock.Now().Add(time.Hour))

	res, err := env.Provisioning.CreateTenant(context.Background(), tenantInput(key, "foxtrot", "anyone@x.com"))
	require.NoError(t, err)
	require.Equal(t, "anyone@x.com", res.User.Email)
}

func TestCreateTenant_NotifierFailureKeepsTenant(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.bootstrapAdmin(t)
	key := env.insertInvitation(t, admin.UserID, "b@x.com", env.Clock.Now().Add(time.Hour))
	env.Notifier.Fail = errNotifierDown

	res, err := env.Provisioning.CreateTenant(ctx, tenantInput(key, "golf", "b@x.com"))
	require.NoError(t, err)

	_, err = env.Store.Projects().GetProjectByID(ctx, res.Project.ID)
	require.NoError(t, err)
}

func TestCreateTenant_ConcurrentRedemptionHasOneWinner(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.bootstrapAdmin(t)
	key := env.insertInvitation(t, admin.UserID, "b@x.com", env.Clock.Now().Add(time.Hour))

	const attempts = 6
	var (
		wg   sync.WaitGroup
		errs = make([]error, attempts)
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.Provisioning.CreateTenant(ctx, tenantInput(key, fmt.Sprintf("race-%d", i), "b@x.com"))
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		require.True(t, errors.Is(err, ErrInvitationInvalid), "unexpected error: %v", err)
	}
	require.Equal(t, 1, winners)
	require.Equal(t, 1, countRows(t, env, "projects"))
	require.Equal(t, 2, countRows(t, env, "users"))
}
