package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/techauth/internal/auth/domain"
	"github.com/aussiebroadwan/techauth/internal/auth/metrics"
	"github.com/aussiebroadwan/techauth/internal/auth/notify"
	"github.com/aussiebroadwan/techauth/internal/auth/store"
	"github.com/aussiebroadwan/techauth/pkg/cryptox"
	"github.com/aussiebroadwan/techauth/pkg/idx"
	"github.com/aussiebroadwan/techauth/pkg/slogx"
)

const (
	DefaultVerificationTTL = 24 * time.Hour
	DefaultResetTTL        = time.Hour
)

// AccountService owns registration, email verification and password
// recovery, together with their single-use tokens.
type AccountService struct {
	Store    store.Store
	Hasher   *cryptox.Hasher
	Notifier notify.Notifier
	Projects *ProjectService

	// BootstrapSentinel is the invitation value that creates the first global
	// admin while no user exists. Empty disables bootstrap.
	BootstrapSentinel string

	VerificationTTL time.Duration
	ResetTTL        time.Duration
	Clock           Clock
}

type RegisterInput struct {
	Email         string
	Password      string
	FirstName     string
	LastName      string
	ProjectAPIKey string
	InvitationKey string
}

// RegisterResult never carries credentials.
type RegisterResult struct {
	UserID      string
	Email       string
	GlobalAdmin bool
}

// Register creates an unverified account attached to the project behind
// ProjectAPIKey, or bootstraps the first global admin.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (RegisterResult, error) {
	log := slogx.FromContext(ctx)

	// 1. Validate input
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return RegisterResult{}, err
	}
	if err := validatePassword("password", in.Password); err != nil {
		return RegisterResult{}, err
	}
	if err := validateName("firstName", in.FirstName); err != nil {
		return RegisterResult{}, err
	}
	if err := validateName("lastName", in.LastName); err != nil {
		return RegisterResult{}, err
	}

	// 2. One-time bootstrap path
	if s.isBootstrapKey(in.InvitationKey) {
		res, ok, err := s.bootstrapAdmin(ctx, email, in)
		if err != nil || ok {
			metrics.ObserveRegistration("bootstrap", metrics.Result(err))
			return res, err
		}
		log.Warn("bootstrap sentinel presented but users already exist")
	}

	res, err := s.registerMember(ctx, email, in)
	metrics.ObserveRegistration("tenant", metrics.Result(err))
	return res, err
}

func (s *AccountService) isBootstrapKey(key string) bool {
	if s.BootstrapSentinel == "" || key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(s.BootstrapSentinel)) == 1
}

// bootstrapAdmin creates a verified global admin iff the user table is
// empty. ok is false when bootstrap no longer applies.
func (s *AccountService) bootstrapAdmin(ctx context.Context, email string, in RegisterInput) (RegisterResult, bool, error) {
	log := slogx.FromContext(ctx)

	hash, err := hashPassword(s.Hasher, in.Password)
	if err != nil {
		log.Error("failed to hash password", slog.Any("error", err))
		return RegisterResult{}, false, err
	}

	now := s.Clock.now()
	user := domain.User{
		ID:            idx.New().String(),
		Email:         email,
		FirstName:     strings.TrimSpace(in.FirstName),
		LastName:      strings.TrimSpace(in.LastName),
		PasswordHash:  hash,
		EmailVerified: true,
		IsActive:      true,
		IsGlobalAdmin: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	created := false
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		empty, err := tx.Users().IsEmpty(ctx)
		if err != nil || !empty {
			return err
		}
		if err := tx.Users().CreateUser(ctx, user); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		log.Error("failed to bootstrap global admin", slog.Any("error", err))
		return RegisterResult{}, false, err
	}
	if !created {
		return RegisterResult{}, false, nil
	}

	log.Info("global admin bootstrapped",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)
	return RegisterResult{UserID: user.ID, Email: user.Email, GlobalAdmin: true}, true, nil
}

func (s *AccountService) registerMember(ctx context.Context, email string, in RegisterInput) (RegisterResult, error) {
	log := slogx.FromContext(ctx)

	// 1. Resolve the tenant
	if in.ProjectAPIKey == "" {
		return RegisterResult{}, invalid("projectApiKey", "project API key is required")
	}
	project, err := s.Projects.ResolveAPIKey(ctx, in.ProjectAPIKey)
	if err != nil {
		return RegisterResult{}, err
	}

	// 2. Cheap duplicate check; the unique index settles races
	if _, err := s.Store.Users().GetUserByEmail(ctx, email); err == nil {
		log.Warn("registration with existing email", slog.String("project_id", project.ID))
		return RegisterResult{}, ErrDuplicateEmail
	} else if !errors.Is(err, store.ErrNotFound) {
		log.Error("failed to fetch user", slog.Any("error", err))
		return RegisterResult{}, err
	}

	// 3. Hash the password before opening the transaction
	hash, err := hashPassword(s.Hasher, in.Password)
	if err != nil {
		log.Error("failed to hash password", slog.Any("error", err))
		return RegisterResult{}, err
	}

	now := s.Clock.now()
	user := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// 4. User, membership and pending verification commit together
	var token string
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, user); err != nil {
			return err
		}
		if err := tx.Memberships().CreateMembership(ctx, domain.Membership{
			ID:        idx.New().String(),
			UserID:    user.ID,
			ProjectID: project.ID,
			Role:      domain.RoleUser,
			CreatedAt: now,
		}); err != nil {
			return err
		}
		token, err = createVerification(ctx, tx, user, s.verificationTTL(), now)
		return err
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			log.Warn("registration lost duplicate email race", slog.String("project_id", project.ID))
			return RegisterResult{}, ErrDuplicateEmail
		}
		log.Error("failed to register user", slog.Any("error", err))
		return RegisterResult{}, err
	}

	// 5. Send the verification email. A failure is only a warning.
	bestEffort(ctx, string(notify.KindVerification), func() error {
		return s.Notifier.SendVerification(ctx, user.Email, token)
	})

	log.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("project_id", project.ID),
	)
	return RegisterResult{UserID: user.ID, Email: user.Email}, nil
}

// VerifyEmail consumes a verification token and marks the account verified.
func (s *AccountService) VerifyEmail(ctx context.Context, token string) (domain.User, error) {
	log := slogx.FromContext(ctx)

	// 1. Resolve the token
	if token == "" {
		return domain.User{}, invalid("token", "verification token is required")
	}
	v, err := s.Store.EmailVerifications().GetByTokenHash(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("email verification with unknown token")
			return domain.User{}, ErrTokenInvalid
		}
		log.Error("failed to fetch email verification", slog.Any("error", err))
		return domain.User{}, err
	}

	// 2. Must still be pending
	now := s.Clock.now()
	if v.Verified {
		return domain.User{}, ErrAlreadyVerified
	}
	if v.Expired(now) {
		return domain.User{}, ErrTokenExpired
	}

	// 3. Flip the record and the user together
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.EmailVerifications().MarkVerified(ctx, v.ID, now); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrAlreadyVerified
			}
			return err
		}
		return tx.Users().SetEmailVerified(ctx, v.UserID, true)
	})
	if err != nil {
		if !errors.Is(err, ErrAlreadyVerified) {
			log.Error("failed to verify email", slog.Any("error", err))
		}
		return domain.User{}, err
	}

	user, err := s.Store.Users().GetUserByID(ctx, v.UserID)
	if err != nil {
		log.Error("failed to fetch verified user", slog.Any("error", err))
		return domain.User{}, err
	}

	// 4. Welcome mail happens after commit and never undoes it
	bestEffort(ctx, string(notify.KindWelcome), func() error {
		return s.Notifier.SendWelcome(ctx, user.Email, user.FirstName)
	})

	log.Info("email verified", slog.String("user_id", user.ID))
	return user, nil
}

// ResendVerification replaces every pending verification of the user with a
// fresh one.
func (s *AccountService) ResendVerification(ctx context.Context, email, apiKey string) error {
	log := slogx.FromContext(ctx)

	// 1. Validate input and resolve the tenant
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	project, err := s.Projects.ResolveAPIKey(ctx, apiKey)
	if err != nil {
		return err
	}

	// 2. The account must exist, be unverified and belong to the tenant
	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		log.Error("failed to fetch user", slog.Any("error", err))
		return err
	}
	if user.EmailVerified {
		return ErrAlreadyVerified
	}
	if err := requireMembership(ctx, s.Store, user.ID, project.ID); err != nil {
		return err
	}

	// 3. Replace pending tokens
	now := s.Clock.now()
	var token string
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.EmailVerifications().DeletePendingForUser(ctx, user.ID); err != nil {
			return err
		}
		token, err = createVerification(ctx, tx, user, s.verificationTTL(), now)
		return err
	})
	if err != nil {
		log.Error("failed to reissue email verification", slog.Any("error", err))
		return err
	}

	bestEffort(ctx, string(notify.KindVerification), func() error {
		return s.Notifier.SendVerification(ctx, user.Email, token)
	})

	log.Info("verification email resent", slog.String("user_id", user.ID))
	return nil
}

// ForgotPassword issues a reset token when email belongs to a member of the
// project behind apiKey. Lookup misses are indistinguishable from success.
func (s *AccountService) ForgotPassword(ctx context.Context, email, apiKey, ipAddress string) error {
	log := slogx.FromContext(ctx)

	// 1. Validate input
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	if apiKey == "" {
		return invalid("projectApiKey", "project API key is required")
	}

	// 2. Silently stop on any lookup miss
	project, err := s.Store.Projects().GetProjectByAPIKey(ctx, apiKey)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("password reset requested for unknown project")
			return nil
		}
		log.Error("failed to fetch project", slog.Any("error", err))
		return err
	}
	if !project.IsActive {
		log.Warn("password reset requested for inactive project", slog.String("project_id", project.ID))
		return nil
	}
	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("password reset requested for non-existent user", slog.String("project_id", project.ID))
			return nil
		}
		log.Error("failed to fetch user", slog.Any("error", err))
		return err
	}
	if _, err := s.Store.Memberships().GetMembership(ctx, user.ID, project.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("password reset requested by non-member",
				slog.String("user_id", user.ID),
				slog.String("project_id", project.ID),
			)
			return nil
		}
		log.Error("failed to fetch membership", slog.Any("error", err))
		return err
	}

	// 3. Issue the reset token
	token, fingerprint, err := newOpaqueToken()
	if err != nil {
		log.Error("failed to generate reset token", slog.Any("error", err))
		return err
	}
	ttl := s.ResetTTL
	if ttl <= 0 {
		ttl = DefaultResetTTL
	}
	now := s.Clock.now()
	if err := s.Store.PasswordResets().CreatePasswordReset(ctx, domain.PasswordReset{
		ID:        idx.New().String(),
		UserID:    user.ID,
		TokenHash: fingerprint,
		ExpiresAt: now.Add(ttl),
		IPAddress: ipAddress,
		CreatedAt: now,
	}); err != nil {
		log.Error("failed to create password reset", slog.Any("error", err))
		return err
	}

	bestEffort(ctx, string(notify.KindPasswordReset), func() error {
		return s.Notifier.SendPasswordReset(ctx, user.Email, token)
	})

	log.Info("password reset issued", slog.String("user_id", user.ID))
	return nil
}

// ResetPassword consumes a reset token, stores the new password and ends
// every session of the user.
func (s *AccountService) ResetPassword(ctx context.Context, token, newPassword string) error {
	log := slogx.FromContext(ctx)

	// 1. Validate input
	if token == "" {
		return invalid("token", "reset token is required")
	}
	if err := validatePassword("newPassword", newPassword); err != nil {
		return err
	}

	// 2. Resolve the token
	reset, err := s.Store.PasswordResets().GetByTokenHash(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("password reset with unknown token")
			return ErrTokenInvalid
		}
		log.Error("failed to fetch password reset", slog.Any("error", err))
		return err
	}
	now := s.Clock.now()
	if reset.Used {
		log.Warn("password reset token replayed", slog.String("user_id", reset.UserID))
		return ErrTokenUsed
	}
	if reset.Expired(now) {
		return ErrTokenExpired
	}

	// 3. Hash before the transaction
	hash, err := hashPassword(s.Hasher, newPassword)
	if err != nil {
		log.Error("failed to hash password", slog.Any("error", err))
		return err
	}

	// 4. Mark used, store the password and drop all sessions together
	var revoked int64
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.PasswordResets().MarkUsed(ctx, reset.ID, now); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrTokenUsed
			}
			return err
		}
		if err := tx.Users().UpdatePasswordHash(ctx, reset.UserID, hash); err != nil {
			return err
		}
		revoked, err = tx.Sessions().DeleteAllForUser(ctx, reset.UserID)
		return err
	})
	if err != nil {
		if !errors.Is(err, ErrTokenUsed) {
			log.Error("failed to reset password", slog.Any("error", err))
		}
		return err
	}

	log.Info("password reset",
		slog.String("user_id", reset.UserID),
		slog.Int64("sessions_revoked", revoked),
	)
	return nil
}

// ChangePassword replaces the password of an authenticated user. Existing
// sessions stay valid.
func (s *AccountService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	log := slogx.FromContext(ctx)

	// 1. Validate input
	if err := required("currentPassword", currentPassword); err != nil {
		return err
	}
	if err := validatePassword("newPassword", newPassword); err != nil {
		return err
	}

	// 2. Check the current password
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		log.Error("failed to fetch user", slog.Any("error", err))
		return err
	}
	if !user.HasPassword() {
		return ErrCurrentPasswordIncorrect
	}
	ok, err := s.Hasher.Verify(currentPassword, user.PasswordHash)
	if err != nil {
		log.Error("stored password hash is unreadable", slog.String("user_id", user.ID), slog.Any("error", err))
		return err
	}
	if !ok {
		log.Warn("password change with wrong current password", slog.String("user_id", user.ID))
		return ErrCurrentPasswordIncorrect
	}

	// 3. Store the new hash
	hash, err := hashPassword(s.Hasher, newPassword)
	if err != nil {
		log.Error("failed to hash password", slog.Any("error", err))
		return err
	}
	if err := s.Store.Users().UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		log.Error("failed to update password", slog.Any("error", err))
		return err
	}

	log.Info("password changed", slog.String("user_id", user.ID))
	return nil
}

func (s *AccountService) verificationTTL() time.Duration {
	if s.VerificationTTL <= 0 {
		return DefaultVerificationTTL
	}
	return s.VerificationTTL
}

// createVerification stores a pending verification for user and returns the
// plaintext token.
func createVerification(ctx context.Context, st store.Store, user domain.User, ttl time.Duration, now time.Time) (string, error) {
	token, fingerprint, err := newOpaqueToken()
	if err != nil {
		return "", err
	}
	err = st.EmailVerifications().CreateEmailVerification(ctx, domain.EmailVerification{
		ID:        idx.New().String(),
		UserID:    user.ID,
		Email:     user.Email,
		TokenHash: fingerprint,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

func requireMembership(ctx context.Context, st store.Store, userID, projectID string) error {
	if _, err := st.Memberships().GetMembership(ctx, userID, projectID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotMember
		}
		slogx.FromContext(ctx).Error("failed to fetch membership", slog.Any("error", err))
		return err
	}
	return nil
}
