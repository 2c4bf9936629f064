package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/techauth/internal/auth/domain"
	"github.com/aussiebroadwan/techauth/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	project := env.seedProject(t, "acme")

	res, err := env.Accounts.Register(ctx, RegisterInput{
		Email:         "  A@X.com ",
		Password:      testPassword,
		FirstName:     "Ada",
		LastName:      "Lovelace",
		ProjectAPIKey: project.APIKey,
	})
	require.NoError(t, err)
	require.Equal(t, "a@x.com", res.Email)
	require.False(t, res.GlobalAdmin)

	user, err := env.Store.Users().GetUserByID(ctx, res.UserID)
	require.NoError(t, err)
	require.False(t, user.EmailVerified)
	require.NotEqual(t, testPassword, user.PasswordHash)

	m, err := env.Store.Memberships().GetMembership(ctx, res.UserID, project.Project.ID)
	require.NoError(t, err)
	require.Equal(t, domain.RoleUser, m.Role)

	require.Len(t, env.Notifier.last(t, "verification", "a@x.com"), 64)

	t.Run("duplicate email under any tenant", func(t *testing.T) {
		other := env.seedProject(t, "other")
		_, err := env.Accounts.Register(ctx, RegisterInput{
			Email: "a@X.COM", Password: testPassword, FirstName: "A", LastName: "B", ProjectAPIKey: other.APIKey,
		})
		require.ErrorIs(t, err, ErrDuplicateEmail)
	})

	t.Run("unknown tenant", func(t *testing.T) {
		_, err := env.Accounts.Register(ctx, RegisterInput{
			Email: "c@x.com", Password: testPassword, FirstName: "C", LastName: "D", ProjectAPIKey: "pk_nope",
		})
		require.ErrorIs(t, err, ErrTenantInactiveOrUnknown)
	})

	t.Run("missing tenant key", func(t *testing.T) {
		_, err := env.Accounts.Register(ctx, RegisterInput{
			Email: "c@x.com", Password: testPassword, FirstName: "C", LastName: "D",
		})
		require.ErrorIs(t, err, ErrInvalidRequest)
	})
}

func TestRegister_Validation(t *testing.T) {
	env := newTestEnv(t)
	project := env.seedProject(t, "acme")

	valid := RegisterInput{Email: "a@x.com", Password: testPassword, FirstName: "Ada", LastName: "L", ProjectAPIKey: project.APIKey}

	cases := []struct {
		name  string
		mut   func(*RegisterInput)
		field string
	}{
		{"bad email", func(in *RegisterInput) { in.Email = "not-an-email" }, "email"},
		{"short password", func(in *RegisterInput) { in.Password = "Aa1!" }, "password"},
		{"no uppercase", func(in *RegisterInput) { in.Password = "str0ng!pass" }, "password"},
		{"no digit", func(in *RegisterInput) { in.Password = "Strong!Pass" }, "password"},
		{"no special", func(in *RegisterInput) { in.Password = "Str0ngPass" }, "password"},
		{"empty first name", func(in *RegisterInput) { in.FirstName = " " }, "firstName"},
		{"long last name", func(in *RegisterInput) { in.LastName = strings.Repeat("x", 51) }, "lastName"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := valid
			tc.mut(&in)
			_, err := env.Accounts.Register(context.Background(), in)
			require.ErrorIs(t, err, ErrInvalidRequest)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			require.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestRegister_NotifierFailureIsNotFatal(t *testing.T) {
	env := newTestEnv(t)
	project := env.seedProject(t, "acme")
	env.Notifier.Fail = errNotifierDown

	res, err := env.Accounts.Register(context.Background(), RegisterInput{
		Email: "a@x.com", Password: testPassword, FirstName: "A", LastName: "B", ProjectAPIKey: project.APIKey,
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.UserID)
}

func TestRegister_BootstrapOnlyWhileEmpty(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	admin := env.bootstrapAdmin(t)

	user, err := env.Store.Users().GetUserByID(ctx, admin.UserID)
	require.NoError(t, err)
	require.True(t, user.IsGlobalAdmin)
	require.True(t, user.EmailVerified)
	require.Zero(t, env.Notifier.count("verification"))

	// A second use of the sentinel falls through to the normal path, which
	// needs a tenant key.
	_, err = env.Accounts.Register(ctx, RegisterInput{
		Email: "second@example.com", Password: testPassword, FirstName: "S", LastName: "E", InvitationKey: testSentinel,
	})
	require.ErrorIs(t, err, ErrInvalidRequest)

	project := env.seedProject(t, "acme")
	res, err := env.Accounts.Register(ctx, RegisterInput{
		Email: "second@example.com", Password: testPassword, FirstName: "S", LastName: "E",
		InvitationKey: testSentinel, ProjectAPIKey: project.APIKey,
	})
	require.NoError(t, err)
	require.False(t, res.GlobalAdmin)
}

func TestRegister_BootstrapDisabledWithoutSentinel(t *testing.T) {
	env := newTestEnv(t)
	env.Accounts.BootstrapSentinel = ""

	_, err := env.Accounts.Register(context.Background(), RegisterInput{
		Email: "root@example.com", Password: testPassword, FirstName: "R", LastName: "A", InvitationKey: testSentinel,
	})
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestVerifyEmail(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	project := env.seedProject(t, "acme")

	_, err := env.Accounts.Register(ctx, RegisterInput{
		Email: "a@x.com", Password: testPassword, FirstName: "Ada", LastName: "L", ProjectAPIKey: project.APIKey,
	})
	require.NoError(t, err)
	token := env.Notifier.last(t, "verification", "a@x.com")

	_, err = env.Accounts.VerifyEmail(ctx, "unknown")
	require.ErrorIs(t, err, ErrTokenInvalid)

	user, err := env.Accounts.VerifyEmail(ctx, token)
	require.NoError(t, err)
	require.True(t, user.EmailVerified)
	require.Equal(t, "Ada", env.Notifier.last(t, "welcome", "a@x.com"))

	_, err = env.Accounts.VerifyEmail(ctx, token)
	require.ErrorIs(t, err, ErrAlreadyVerified)
}

func TestVerifyEmail_Expired(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	project := env.seedProject(t, "acme")

	res, err := env.Accounts.Register(ctx, RegisterInput{
		Email: "a@x.com", Password: testPassword, FirstName: "Ada", LastName: "L", ProjectAPIKey: project.APIKey,
	})
	require.NoError(t, err)

	env.Clock.Advance(DefaultVerificationTTL + time.Minute)
	_, err = env.Accounts.VerifyEmail(ctx, env.Notifier.last(t, "verification", "a@x.com"))
	require.ErrorIs(t, err, ErrTokenExpired)

	user, err := env.Store.Users().GetUserByID(ctx, res.UserID)
	require.NoError(t, err)
	require.False(t, user.EmailVerified)
}

func TestVerifyEmail_WelcomeFailureKeepsVerification(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	project := env.seedProject(t, "acme")

	res, err := env.Accounts.Register(ctx, RegisterInput{
		Email: "a@x.com", Password: testPassword, FirstName: "Ada", LastName: "L", ProjectAPIKey: project.APIKey,
	})
	require.NoError(t, err)

	env.Notifier.Fail = errNotifierDown
	_, err = env.Accounts.VerifyEmail(ctx, env.Notifier.last(t, "verification", "a@x.com"))
	require.NoError(t, err)

	user, err := env.Store.Users().GetUserByID(ctx, res.UserID)
	require.NoError(t, err)
	require.True(t, user.EmailVerified)
}

func TestResendVerification(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	project := env.seedProject(t, "acme")
	other := env.seedProject(t, "other")

	_, err := env.Accounts.Register(ctx, RegisterInput{
		Email: "a@x.com", Password: testPassword, FirstName: "Ada", LastName: "L", ProjectAPIKey: project.APIKey,
	})
	require.NoError(t, err)
	first := env.Notifier.last(t, "verification", "a@x.com")

	t.Run("non-member tenant", func(t *testing.T) {
		require.ErrorIs(t, env.Accounts.ResendVerification(ctx, "a@x.com", other.APIKey), ErrNotMember)
	})

	t.Run("unknown user", func(t *testing.T) {
		require.ErrorIs(t, env.Accounts.ResendVerification(ctx, "nobody@x.com", project.APIKey), ErrUserNotFound)
	})

	t.Run("replaces pending token", func(t *testing.T) {
		require.NoError(t, env.Accounts.ResendVerification(ctx, "A@x.com", project.APIKey))
		second := env.Notifier.last(t, "verification", "a@x.com")
		require.NotEqual(t, first, second)

		_, err := env.Accounts.VerifyEmail(ctx, first)
		require.ErrorIs(t, err, ErrTokenInvalid)

		_, err = env.Accounts.VerifyEmail(ctx, second)
		require.NoError(t, err)
	})

	t.Run("already verified", func(t *testing.T) {
		require.ErrorIs(t, env.Accounts.ResendVerification(ctx, "a@x.com", project.APIKey), ErrAlreadyVerified)
	})
}

func countRows(t *testing.T, env *testEnv, table string) int {
	t.Helper()
	var n int
	require.NoError(t, env.Store.DB().Get(&n, "SELECT COUNT(*) FROM "+table))
	return n
}

func TestForgotPassword_AntiEnumeration(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	project := env.seedProject(t, "acme")
	other := env.seedProject(t, "other")
	env.registerVerified(t, "a@x.com", project.APIKey)

	require.NoError(t, env.Accounts.ForgotPassword(ctx, "a@x.com", other.APIKey, "10.0.0.1"))
	require.NoError(t, env.Accounts.ForgotPassword(ctx, "nobody@x.com", project.APIKey, "10.0.0.1"))
	require.NoError(t, env.Accounts.ForgotPassword(ctx, "a@x.com", "pk_unknown", "10.0.0.1"))

	require.Zero(t, countRows(t, env, "password_resets"))
	require.Zero(t, env.Notifier.count("password_reset"))

	require.NoError(t, env.Accounts.ForgotPassword(ctx, "a@x.com", project.APIKey, "10.0.0.1"))
	require.Equal(t, 1, countRows(t, env, "password_resets"))
	require.Equal(t, 1, env.Notifier.count("password_reset"))
}

func TestResetPassword(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	project := env.seedProject(t, "acme")
	reg := env.registerVerified(t, "a@x.com", project.APIKey)

	s1 := env.login(t, "a@x.com", project.APIKey)
	s2 := env.login(t, "a@x.com", project.APIKey)

	require.NoError(t, env.Accounts.ForgotPassword(ctx, "a@x.com", project.APIKey, "10.0.0.9"))
	token := env.Notifier.last(t, "password_reset", "a@x.com")

	t.Run("weak password is rejected before the token is consumed", func(t *testing.T) {
		require.ErrorIs(t, env.Accounts.ResetPassword(ctx, token, "weak"), ErrInvalidRequest)
	})

	t.Run("unknown token", func(t *testing.T) {
		require.ErrorIs(t, env.Accounts.ResetPassword(ctx, "nope", "N3w!Password"), ErrTokenInvalid)
	})

	require.NoError(t, env.Accounts.ResetPassword(ctx, token, "N3w!Password"))

	t.Run("second use fails", func(t *testing.T) {
		require.ErrorIs(t, env.Accounts.ResetPassword(ctx, token, "An0ther!Password"), ErrTokenUsed)
	})

	t.Run("every prior session is gone", func(t *testing.T) {
		n, err := env.Store.Sessions().CountForUser(ctx, reg.UserID)
		require.NoError(t, err)
		require.Zero(t, n)

		for _, s := range []LoginResult{s1, s2} {
			_, err := env.Sessions.Refresh(ctx, s.Tokens.RefreshToken)
			require.ErrorIs(t, err, ErrTokenInvalid)
		}
	})

	t.Run("new password works and old does not", func(t *testing.T) {
		_, err := env.Sessions.Login(ctx, LoginInput{Email: "a@x.com", Password: testPassword, ProjectAPIKey: project.APIKey})
		require.ErrorIs(t, err, ErrInvalidCredentials)

		_, err = env.Sessions.Login(ctx, LoginInput{Email: "a@x.com", Password: "N3w!Password", ProjectAPIKey: project.APIKey})
		require.NoError(t, err)
	})
}

func TestResetPassword_Expired(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	project := env.seedProject(t, "acme")
	env.registerVerified(t, "a@x.com", project.APIKey)

	require.NoError(t, env.Accounts.ForgotPassword(ctx, "a@x.com", project.APIKey, ""))
	token := env.Notifier.last(t, "password_reset", "a@x.com")

	env.Clock.Advance(DefaultResetTTL + time.Second)
	require.ErrorIs(t, env.Accounts.ResetPassword(ctx, token, "N3w!Password"), ErrTokenExpired)

	reset, err := env.Store.PasswordResets().GetByTokenHash(ctx, cryptox.FingerprintToken(token))
	require.NoError(t, err)
	require.False(t, reset.Used)
}

func TestChangePassword_KeepsSessions(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	project := env.seedProject(t, "acme")
	reg := env.registerVerified(t, "a@x.com", project.APIKey)
	session := env.login(t, "a@x.com", project.APIKey)

	require.ErrorIs(t, env.Accounts.ChangePassword(ctx, reg.UserID, "Wr0ng!Pass", "N3w!Password"), ErrCurrentPasswordIncorrect)
	require.ErrorIs(t, env.Accounts.ChangePassword(ctx, "missing", testPassword, "N3w!Password"), ErrUserNotFound)
	require.ErrorIs(t, env.Accounts.ChangePassword(ctx, reg.UserID, testPassword, "short"), ErrInvalidRequest)

	require.NoError(t, env.Accounts.ChangePassword(ctx, reg.UserID, testPassword, "N3w!Password"))

	_, err := env.Sessions.Refresh(ctx, session.Tokens.RefreshToken)
	require.NoError(t, err)

	user, err := env.Store.Users().GetUserByID(ctx, reg.UserID)
	require.NoError(t, err)
	ok, err := env.Hasher.Verify("N3w!Password", user.PasswordHash)
	require.NoError(t, err)
	require.True(t, ok)
}
