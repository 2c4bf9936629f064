package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/techauth/internal/auth/domain"
	"github.com/aussiebroadwan/techauth/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/techauth/internal/auth/store/sqldb"
	"github.com/aussiebroadwan/techauth/pkg/cryptox"
	"github.com/aussiebroadwan/techauth/pkg/idx"
	"github.com/aussiebroadwan/techauth/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const (
	testPassword  = "Str0ng!Pass"
	testSentinel  = "bootstrap-sentinel-for-tests"
	testIssuer    = "techauth-test"
	accessSecret  = "access-secret-0123456789abcdef"
	refreshSecret = "refresh-secret-0123456789abcdef"
)

// fakeClock is a settable clock shared by services and the token codec.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type sentMessage struct {
	Kind  string
	To    string
	Value string // token, key or first name
}

// recordingNotifier captures every notification; Fail makes sends error.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	Fail error
}

func (n *recordingNotifier) record(kind, to, value string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{Kind: kind, To: to, Value: value})
	return n.Fail
}

func (n *recordingNotifier) SendVerification(_ context.Context, to, token string) error {
	return n.record("verification", to, token)
}

func (n *recordingNotifier) SendWelcome(_ context.Context, to, firstName string) error {
	return n.record("welcome", to, firstName)
}

func (n *recordingNotifier) SendPasswordReset(_ context.Context, to, token string) error {
	return n.record("password_reset", to, token)
}

func (n *recordingNotifier) SendProjectInvitation(_ context.Context, to, key string, _ time.Time) error {
	return n.record("project_invitation", to, key)
}

// last returns the most recent value sent with kind to recipient.
func (n *recordingNotifier) last(t *testing.T, kind, to string) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.sent) - 1; i >= 0; i-- {
		if n.sent[i].Kind == kind && n.sent[i].To == to {
			return n.sent[i].Value
		}
	}
	t.Fatalf("no %s notification sent to %s", kind, to)
	return ""
}

func (n *recordingNotifier) count(kind string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, m := range n.sent {
		if m.Kind == kind {
			c++
		}
	}
	return c
}

type testEnv struct {
	Store    *sqldb.Store
	Clock    *fakeClock
	Notifier *recordingNotifier
	Hasher   *cryptox.Hasher
	Codec    *jwtx.Codec

	Projects     *ProjectService
	Invitations  *InvitationService
	Accounts     *AccountService
	Sessions     *SessionService
	Provisioning *ProvisioningService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	clk := &fakeClock{t: time.Now().UTC().Truncate(time.Second)}
	codec, err := jwtx.NewCodec(jwtx.CodecConfig{
		Issuer:        testIssuer,
		AccessSecret:  accessSecret,
		RefreshSecret: refreshSecret,
	})
	require.NoError(t, err)
	codec = codec.WithClock(clk.Now)

	hasher := cryptox.NewHasher("test-pepper")
	notifier := &recordingNotifier{}
	clock := Clock(clk.Now)

	projects := &ProjectService{Store: st, Hasher: hasher, Clock: clock}
	return &testEnv{
		Store:    st,
		Clock:    clk,
		Notifier: notifier,
		Hasher:   hasher,
		Codec:    codec,
		Projects: projects,
		Invitations: &InvitationService{
			Store:    st,
			Notifier: notifier,
			Clock:    clock,
			LinkFor:  func(key string) string { return "https://app.example.com/projects/new?key=" + key },
		},
		Accounts: &AccountService{
			Store:             st,
			Hasher:            hasher,
			Notifier:          notifier,
			Projects:          projects,
			BootstrapSentinel: testSentinel,
			Clock:             clock,
		},
		Sessions: &SessionService{
			Store:    st,
			Hasher:   hasher,
			Codec:    codec,
			Projects: projects,
			Clock:    clock,
		},
		Provisioning: &ProvisioningService{
			Store:    st,
			Hasher:   hasher,
			Notifier: notifier,
			Projects: projects,
			Clock:    clock,
		},
	}
}

// seedProject creates an active project and returns its API key.
func (e *testEnv) seedProject(t *testing.T, slug string) ProjectCredentials {
	t.Helper()
	creds, err := e.Projects.Seed(context.Background(), SeedProjectInput{Name: "Project " + slug, Slug: slug})
	require.NoError(t, err)
	return creds
}

// registerVerified registers email under apiKey and verifies it.
func (e *testEnv) registerVerified(t *testing.T, email, apiKey string) RegisterResult {
	t.Helper()
	ctx := context.Background()

	res, err := e.Accounts.Register(ctx, RegisterInput{
		Email:         email,
		Password:      testPassword,
		FirstName:     "Ada",
		LastName:      "Lovelace",
		ProjectAPIKey: apiKey,
	})
	require.NoError(t, err)

	_, err = e.Accounts.VerifyEmail(ctx, e.Notifier.last(t, "verification", res.Email))
	require.NoError(t, err)
	return res
}

// bootstrapAdmin creates the first global admin.
func (e *testEnv) bootstrapAdmin(t *testing.T) RegisterResult {
	t.Helper()
	res, err := e.Accounts.Register(context.Background(), RegisterInput{
		Email:         "root@example.com",
		Password:      testPassword,
		FirstName:     "Root",
		LastName:      "Admin",
		InvitationKey: testSentinel,
	})
	require.NoError(t, err)
	require.True(t, res.GlobalAdmin)
	return res
}

func (e *testEnv) login(t *testing.T, email, apiKey string) LoginResult {
	t.Helper()
	res, err := e.Sessions.Login(context.Background(), LoginInput{
		Email:         email,
		Password:      testPassword,
		ProjectAPIKey: apiKey,
		Client:        domain.ClientMeta{IPAddress: "10.0.0.1", UserAgent: "go-test"},
	})
	require.NoError(t, err)
	return res
}

// insertInvitation stores an invitation directly and returns its plaintext key.
func (e *testEnv) insertInvitation(t *testing.T, createdBy, email string, expiresAt time.Time) string {
	t.Helper()
	key, fingerprint, err := newOpaqueToken()
	require.NoError(t, err)
	require.NoError(t, e.Store.Invitations().CreateInvitation(context.Background(), domain.Invitation{
		ID:          idx.New().String(),
		KeyHash:     fingerprint,
		Email:       email,
		ExpiresAt:   expiresAt,
		CreatedByID: createdBy,
	}))
	return key
}

var errNotifierDown = errors.New("notifier down")
