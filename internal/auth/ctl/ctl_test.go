package ctl

import (
	"bytes"
	"context"
	"log/slog"
	"regexp"
	"testing"

	"github.com/aussiebroadwan/techauth/internal/auth/notify"
	"github.com/aussiebroadwan/techauth/internal/auth/service"
	"github.com/aussiebroadwan/techauth/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/techauth/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

const testPassword = "Str0ng!Pass"

type fixture struct {
	cmds     *Commands
	accounts *service.AccountService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	renderer, err := notify.NewRenderer(notify.RendererConfig{FrontendURL: "https://app.example.com"})
	require.NoError(t, err)
	notifier := notify.NewLogNotifier(renderer, slog.New(slog.DiscardHandler))

	hasher := cryptox.NewHasher("ctl-pepper")
	projects := &service.ProjectService{Store: st, Hasher: hasher}
	return &fixture{
		cmds: &Commands{
			Store:       st,
			Projects:    projects,
			Invitations: &service.InvitationService{Store: st, Notifier: notifier, LinkFor: renderer.InvitationLink},
			Users:       &service.UserAdminService{Store: st},
		},
		accounts: &service.AccountService{Store: st, Hasher: hasher, Notifier: notifier, Projects: projects},
	}
}

func (f *fixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := f.cmds.Run(context.Background(), args, &out)
	return out.String(), err
}

var apiKeyLine = regexp.MustCompile(`api key:\s+(pk_[0-9a-f]{32})`)

func TestRun_Usage(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t)
	require.ErrorIs(t, err, ErrUsage)
	require.Contains(t, out, "seed-project")

	_, err = f.run(t, "drop-tables")
	require.ErrorIs(t, err, ErrUsage)

	_, err = f.run(t, "seed-project", "-slug", "acme")
	require.ErrorIs(t, err, ErrUsage)

	_, err = f.run(t, "verify-user", "-bogus")
	require.ErrorIs(t, err, ErrUsage)
}

func TestRun_OperatorFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out, err := f.run(t, "seed-project", "-name", "Acme", "-slug", "acme", "-origins", "https://acme.test/, ")
	require.NoError(t, err)
	m := apiKeyLine.FindStringSubmatch(out)
	require.Len(t, m, 2, out)
	require.Contains(t, out, "api secret: sk_")

	_, err = f.run(t, "seed-project", "-name", "Acme", "-slug", "acme")
	require.ErrorIs(t, err, service.ErrSlugTaken)

	_, err = f.accounts.Register(ctx, service.RegisterInput{
		Email: "ops@acme.test", Password: testPassword, FirstName: "Op", LastName: "S", ProjectAPIKey: m[1],
	})
	require.NoError(t, err)

	out, err = f.run(t, "verify-user", "-email", "ops@acme.test")
	require.NoError(t, err)
	require.Contains(t, out, "ops@acme.test verified")

	out, err = f.run(t, "verify-user", "-email", "ops@acme.test")
	require.NoError(t, err)
	require.Contains(t, out, "already verified")

	// Not an admin yet.
	_, err = f.run(t, "create-invitation", "-creator", "ops@acme.test")
	require.ErrorIs(t, err, service.ErrForbidden)

	out, err = f.run(t, "promote-admin", "-email", "OPS@acme.test")
	require.NoError(t, err)
	require.Contains(t, out, "now a global admin")

	out, err = f.run(t, "create-invitation", "-creator", "ops@acme.test")
	require.NoError(t, err)
	require.Contains(t, out, "email:   (any)")
	require.Contains(t, out, "link:    https://app.example.com/projects/new?key=")

	out, err = f.run(t, "create-invitation", "-creator", "ops@acme.test", "-email", "new@tenant.test", "-description", "pilot")
	require.NoError(t, err)
	require.Contains(t, out, "email:   new@tenant.test")

	out, err = f.run(t, "ban-user", "-email", "ops@acme.test", "-reason", "rotation")
	require.NoError(t, err)
	require.Contains(t, out, "banned")

	user, err := f.cmds.Store.Users().GetUserByEmail(ctx, "ops@acme.test")
	require.NoError(t, err)
	require.True(t, user.IsBanned)
	require.Equal(t, "rotation", user.BanReason)

	out, err = f.run(t, "ban-user", "-email", "ops@acme.test", "-lift")
	require.NoError(t, err)
	require.Contains(t, out, "unbanned")

	out, err = f.run(t, "promote-admin", "-email", "ops@acme.test", "-revoke")
	require.NoError(t, err)
	require.Contains(t, out, "no longer a global admin")
}

func TestRun_UnknownUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.run(t, "create-invitation", "-creator", "ghost@x.test")
	require.ErrorIs(t, err, service.ErrUserNotFound)

	_, err = f.run(t, "ban-user", "-email", "ghost@x.test")
	require.ErrorIs(t, err, service.ErrUserNotFound)
}
