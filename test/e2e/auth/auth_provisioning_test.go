package auth_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/aussiebroadwan/techauth/internal/auth/notify"
	"github.com/aussiebroadwan/techauth/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestProvisioningFlow walks an invitation from the admin to a working tenant:
// bootstrap, invite, redeem, verify, log in.
func TestProvisioningFlow(t *testing.T) {
	s := setupStack(t)
	ctx := t.Context()

	console := authsdk.NewClient(s.BaseURL, s.seedProject(t, "Console", "console"))
	admin := s.bootstrapAdmin(t, console)

	// The sentinel only works once.
	_, err := authsdk.NewClient(s.BaseURL, "").Register(ctx, authsdk.RegisterRequest{
		Email: "second@techauth.test", Password: testPassword, FirstName: "S", LastName: "S",
		InvitationKey: bootstrapSentinel,
	})
	require.Error(t, err)

	inv, err := admin.CreateInvitation(ctx, authsdk.CreateInvitationRequest{
		Email:       "owner@acme.test",
		Description: "Acme pilot",
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(inv.Link, "http://app.test/projects/new?key="))

	mail := s.nextMessage(t, notify.KindProjectInvitation, "owner@acme.test")
	m := keyPattern.FindStringSubmatch(mail.Text)
	require.Len(t, m, 2)
	require.Equal(t, inv.Key, m[1])

	public := authsdk.NewClient(s.BaseURL, "")

	// Someone else cannot redeem an email-bound invitation.
	_, err = public.CreateProject(ctx, authsdk.CreateProjectRequest{
		InvitationKey: inv.Key, ProjectName: "Stolen", ProjectSlug: "stolen",
		Email: "thief@evil.test", Password: testPassword,
	})
	assertCode(t, err, authsdk.ErrorCodeInvitationEmailMismatch)

	created, err := public.CreateProject(ctx, authsdk.CreateProjectRequest{
		InvitationKey:  inv.Key,
		ProjectName:    "Acme",
		ProjectSlug:    "acme",
		Email:          "owner@acme.test",
		Password:       testPassword,
		FirstName:      "Olive",
		LastName:       "Owner",
		AllowedOrigins: []string{"https://acme.test"},
	})
	require.NoError(t, err)
	require.Equal(t, "acme", created.Project.Slug)
	require.True(t, strings.HasPrefix(created.Project.APIKey, "pk_"))
	require.True(t, strings.HasPrefix(created.Project.APISecret, "sk_"))
	require.True(t, created.User.Created)

	_, err = public.CreateProject(ctx, authsdk.CreateProjectRequest{
		InvitationKey: inv.Key, ProjectName: "Acme", ProjectSlug: "acme-again",
		Email: "owner@acme.test", Password: testPassword,
	})
	assertCode(t, err, authsdk.ErrorCodeInvitationUsed)

	acme := authsdk.NewClient(s.BaseURL, created.Project.APIKey)
	_, _, err = acme.Login(ctx, "owner@acme.test", testPassword)
	assertCode(t, err, authsdk.ErrorCodeEmailNotVerified)

	require.NoError(t, acme.VerifyEmail(ctx, s.verificationToken(t, "owner@acme.test")))
	s.nextMessage(t, notify.KindWelcome, "owner@acme.test")

	_, login, err := acme.Login(ctx, "owner@acme.test", testPassword)
	require.NoError(t, err)
	require.Equal(t, "Olive", login.User.FirstName)
	require.True(t, login.User.EmailVerified)

	// The owner is a member of acme only.
	_, _, err = console.Login(ctx, "owner@acme.test", testPassword)
	assertCode(t, err, authsdk.ErrorCodeInvalidCredentials)
}

// TestConcurrentRedemption races several redemptions of one unbound key.
func TestConcurrentRedemption(t *testing.T) {
	s := setupStack(t)
	ctx := t.Context()

	console := authsdk.NewClient(s.BaseURL, s.seedProject(t, "Console", "console"))
	s.bootstrapAdmin(t, console)

	out := s.authctl(t, "create-invitation", "-creator", adminEmail)
	m := keyPattern.FindStringSubmatch(out)
	require.Len(t, m, 2, out)
	key := m[1]

	const racers = 5
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
		errs []error
	)
	public := authsdk.NewClient(s.BaseURL, "")
	for i := range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := public.CreateProject(ctx, authsdk.CreateProjectRequest{
				InvitationKey: key,
				ProjectName:   "Racer",
				ProjectSlug:   "racer-" + string(rune('a'+i)),
				Email:         "racer" + string(rune('a'+i)) + "@race.test",
				Password:      testPassword,
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
				return
			}
			errs = append(errs, err)
		}()
	}
	wg.Wait()

	require.Equal(t, 1, wins)
	for _, err := range errs {
		require.True(t,
			authsdk.IsCode(err, authsdk.ErrorCodeInvitationUsed) || authsdk.IsCode(err, authsdk.ErrorCodeInvitationInvalid),
			"unexpected error: %v", err)
	}
}
