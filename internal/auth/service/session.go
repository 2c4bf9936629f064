package service

import (
	"context"
	"errors"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/aussiebroadwan/techauth/internal/auth/domain"
	"github.com/aussiebroadwan/techauth/internal/auth/metrics"
	"github.com/aussiebroadwan/techauth/internal/auth/store"
	"github.com/aussiebroadwan/techauth/internal/auth/tracing"
	"github.com/aussiebroadwan/techauth/pkg/cryptox"
	"github.com/aussiebroadwan/techauth/pkg/idx"
	"github.com/aussiebroadwan/techauth/pkg/jwtx"
	"github.com/aussiebroadwan/techauth/pkg/slogx"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultSessionTTL is the lifetime of a login session.
const DefaultSessionTTL = 7 * 24 * time.Hour

// maxDeviceInfoLen caps the stored user agent.
const maxDeviceInfoLen = 512

// SessionService manages logins and the refresh-token backed sessions they
// create.
type SessionService struct {
	Store    store.Store
	Hasher   *cryptox.Hasher
	Codec    *jwtx.Codec
	Projects *ProjectService

	SessionTTL time.Duration
	Clock      Clock
}

type LoginInput struct {
	Email         string
	Password      string
	ProjectAPIKey string
	Client        domain.ClientMeta
}

type LoginResult struct {
	User    domain.User
	Tokens  domain.TokenPair
	Session domain.Session
}

type RefreshResult struct {
	AccessToken string
	ExpiresIn   time.Duration
}

// Login authenticates a member of the project behind ProjectAPIKey. Checks
// run in a fixed order: membership, password, ban, verification. Anything
// before the password check reports ErrInvalidCredentials so callers cannot
// tell which check failed.
func (s *SessionService) Login(ctx context.Context, in LoginInput) (res LoginResult, err error) {
	ctx, span := tracing.Start(ctx, "SessionService.Login")
	defer func() {
		tracing.End(span, err)
		metrics.ObserveLogin(loginResult(err))
	}()
	log := slogx.FromContext(ctx)

	// 1. Validate input
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return LoginResult{}, err
	}
	if err := required("password", in.Password); err != nil {
		return LoginResult{}, err
	}

	// 2. Resolve the tenant
	project, err := s.Projects.ResolveAPIKey(ctx, in.ProjectAPIKey)
	if err != nil {
		return LoginResult{}, err
	}
	span.SetAttributes(attribute.String("project.id", project.ID))

	attempt := domain.LoginAttempt{
		ProjectID: project.ID,
		Email:     email,
		IPAddress: in.Client.IPAddress,
		UserAgent: in.Client.UserAgent,
		CreatedAt: s.Clock.now(),
	}

	// 3. Find the user and check they may use this tenant
	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.recordFailure(ctx, attempt, "unknown user")
			return LoginResult{}, ErrInvalidCredentials
		}
		log.Error("failed to fetch user", slog.Any("error", err))
		return LoginResult{}, err
	}
	attempt.UserID = user.ID

	if !user.IsGlobalAdmin {
		if err := requireMembership(ctx, s.Store, user.ID, project.ID); err != nil {
			if errors.Is(err, ErrNotMember) {
				s.recordFailure(ctx, attempt, "not a member")
				return LoginResult{}, ErrInvalidCredentials
			}
			return LoginResult{}, err
		}
	}

	// 4. Password before any account state is revealed
	if !user.HasPassword() {
		s.recordFailure(ctx, attempt, "password not set")
		return LoginResult{}, ErrInvalidCredentials
	}
	ok, err := s.Hasher.Verify(in.Password, user.PasswordHash)
	if err != nil {
		log.Error("stored password hash is unreadable", slog.String("user_id", user.ID), slog.Any("error", err))
		return LoginResult{}, err
	}
	if !ok {
		s.recordFailure(ctx, attempt, "invalid password")
		return LoginResult{}, ErrInvalidCredentials
	}

	// 5. Ban, then verification
	if user.IsBanned {
		s.recordFailure(ctx, attempt, "account banned")
		return LoginResult{}, &AccountBannedError{Reason: user.BanReason}
	}
	if !user.EmailVerified {
		s.recordFailure(ctx, attempt, "email not verified")
		return LoginResult{}, ErrEmailNotVerified
	}

	// 6. Issue the token pair
	accessToken, err := s.Codec.IssueAccessToken(user.ID, user.Email)
	if err != nil {
		log.Error("failed to issue access token", slog.Any("error", err))
		return LoginResult{}, err
	}
	refreshToken, err := s.Codec.IssueRefreshToken(user.ID)
	if err != nil {
		log.Error("failed to issue refresh token", slog.Any("error", err))
		return LoginResult{}, err
	}

	// 7. Session, last-login and audit row commit together
	now := s.Clock.now()
	session := domain.Session{
		ID:         idx.New().String(),
		UserID:     user.ID,
		TokenHash:  cryptox.FingerprintToken(refreshToken),
		ExpiresAt:  now.Add(s.sessionTTL()),
		LastUsedAt: now,
		IPAddress:  in.Client.IPAddress,
		DeviceInfo: truncate(in.Client.UserAgent, maxDeviceInfoLen),
		CreatedAt:  now,
	}
	attempt.ID = idx.New().String()
	attempt.Success = true
	attempt.CreatedAt = now

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Sessions().CreateSession(ctx, session); err != nil {
			return err
		}
		if err := tx.Users().UpdateLastLogin(ctx, user.ID, now, in.Client.IPAddress); err != nil {
			return err
		}
		return tx.LoginHistory().RecordLoginAttempt(ctx, attempt)
	})
	if err != nil {
		log.Error("failed to create session", slog.Any("error", err))
		return LoginResult{}, err
	}

	user.LastLoginAt = &now
	user.LastLoginIP = in.Client.IPAddress

	log.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("project_id", project.ID),
		slog.String("session_id", session.ID),
	)
	return LoginResult{
		User: user,
		Tokens: domain.TokenPair{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			ExpiresIn:    s.Codec.AccessTTL(),
		},
		Session: session,
	}, nil
}

// recordFailure appends a failed login row. Audit failures are logged only.
func (s *SessionService) recordFailure(ctx context.Context, attempt domain.LoginAttempt, reason string) {
	log := slogx.FromContext(ctx)

	attempt.ID = idx.New().String()
	attempt.Success = false
	attempt.FailureReason = reason
	attempt.CreatedAt = s.Clock.now()

	if err := s.Store.LoginHistory().RecordLoginAttempt(ctx, attempt); err != nil {
		log.Error("failed to record login attempt", slog.Any("error", err))
	}
	log.Warn("login failed",
		slog.String("reason", reason),
		slog.String("user_id", attempt.UserID),
		slog.String("project_id", attempt.ProjectID),
		slog.String("ip", attempt.IPAddress),
	)
}

// Refresh exchanges a refresh token for a new access token. The refresh
// token itself is not rotated.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (res RefreshResult, err error) {
	defer func() { metrics.ObserveRefresh(loginResult(err)) }()
	log := slogx.FromContext(ctx)

	if refreshToken == "" {
		return RefreshResult{}, invalid("refreshToken", "refresh token is required")
	}

	// 1. Signature and expiry before touching the store
	claims, err := s.Codec.Verify(refreshToken, jwtx.KindRefresh)
	if err != nil {
		if errors.Is(err, jwtx.ErrExpired) {
			return RefreshResult{}, ErrTokenExpired
		}
		log.Warn("suspicious refresh token rejected", slog.String("reason", err.Error()))
		return RefreshResult{}, ErrTokenInvalid
	}

	// 2. The session must still exist
	session, err := s.Store.Sessions().GetByTokenHash(ctx, cryptox.FingerprintToken(refreshToken))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("refresh for revoked session", slog.String("user_id", claims.Subject))
			return RefreshResult{}, ErrTokenInvalid
		}
		log.Error("failed to fetch session", slog.Any("error", err))
		return RefreshResult{}, err
	}
	now := s.Clock.now()
	if session.Expired(now) {
		return RefreshResult{}, ErrTokenExpired
	}
	if session.UserID != claims.Subject {
		log.Warn("refresh token subject does not match session",
			slog.String("session_id", session.ID),
			slog.String("subject", claims.Subject),
		)
		return RefreshResult{}, ErrTokenInvalid
	}

	// 3. The owner must not be banned
	user, err := s.Store.Users().GetUserByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return RefreshResult{}, ErrTokenInvalid
		}
		log.Error("failed to fetch user", slog.Any("error", err))
		return RefreshResult{}, err
	}
	if user.IsBanned {
		log.Warn("refresh by banned user", slog.String("user_id", user.ID))
		return RefreshResult{}, &AccountBannedError{Reason: user.BanReason}
	}

	// 4. New access token, bump the session
	accessToken, err := s.Codec.IssueAccessToken(user.ID, user.Email)
	if err != nil {
		log.Error("failed to issue access token", slog.Any("error", err))
		return RefreshResult{}, err
	}
	if err := s.Store.Sessions().TouchSession(ctx, session.ID, now); err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Error("failed to touch session", slog.Any("error", err))
		return RefreshResult{}, err
	}

	log.Debug("access token refreshed",
		slog.String("user_id", user.ID),
		slog.String("session_id", session.ID),
	)
	return RefreshResult{AccessToken: accessToken, ExpiresIn: s.Codec.AccessTTL()}, nil
}

// Logout deletes the session behind refreshToken. A session that is
// already gone is not an error.
func (s *SessionService) Logout(ctx context.Context, refreshToken string) error {
	log := slogx.FromContext(ctx)

	if refreshToken == "" {
		return invalid("refreshToken", "refresh token is required")
	}

	removed, err := s.Store.Sessions().DeleteByTokenHash(ctx, cryptox.FingerprintToken(refreshToken))
	if err != nil {
		log.Error("failed to delete session", slog.Any("error", err))
		return err
	}
	if !removed {
		log.Debug("logout for unknown session")
		return nil
	}

	log.Info("user logged out")
	return nil
}

// LogoutAll deletes every session of userID and returns how many there were.
func (s *SessionService) LogoutAll(ctx context.Context, userID string) (int64, error) {
	log := slogx.FromContext(ctx)

	n, err := s.Store.Sessions().DeleteAllForUser(ctx, userID)
	if err != nil {
		log.Error("failed to delete sessions", slog.Any("error", err))
		return 0, err
	}

	log.Info("all sessions terminated",
		slog.String("user_id", userID),
		slog.Int64("sessions", n),
	)
	return n, nil
}

func (s *SessionService) sessionTTL() time.Duration {
	if s.SessionTTL <= 0 {
		return DefaultSessionTTL
	}
	return s.SessionTTL
}

// loginResult is the metric label for a login or refresh outcome.
func loginResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrAccountBanned):
		return "banned"
	case errors.Is(err, ErrEmailNotVerified):
		return "unverified"
	case errors.Is(err, ErrTenantInactiveOrUnknown):
		return "unknown_tenant"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenInvalid):
		return "invalid_token"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	default:
		return "error"
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
