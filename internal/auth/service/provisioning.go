package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/techauth/internal/auth/domain"
	"github.com/aussiebroadwan/techauth/internal/auth/metrics"
	"github.com/aussiebroadwan/techauth/internal/auth/notify"
	"github.com/aussiebroadwan/techauth/internal/auth/store"
	"github.com/aussiebroadwan/techauth/internal/auth/tracing"
	"github.com/aussiebroadwan/techauth/pkg/cryptox"
	"github.com/aussiebroadwan/techauth/pkg/idx"
	"github.com/aussiebroadwan/techauth/pkg/slogx"
	"go.opentelemetry.io/otel/attribute"
)

// ProvisioningService redeems an invitation into a new project, its admin
// user and the membership between them.
type ProvisioningService struct {
	Store    store.Store
	Hasher   *cryptox.Hasher
	Notifier notify.Notifier
	Projects *ProjectService

	VerificationTTL time.Duration
	Clock           Clock
}

type CreateTenantInput struct {
	InvitationKey  string
	TenantName     string
	TenantSlug     string
	Email          string
	Password       string
	FirstName      string
	LastName       string
	AllowedOrigins []string
}

// CreateTenantResult carries the plaintext API secret. It is never
// retrievable again.
type CreateTenantResult struct {
	Project     domain.Project
	User        domain.User
	APIKey      string
	APISecret   string
	UserCreated bool
}

// CreateTenant consumes invitationKey and creates the project together with
// its admin. Either everything commits or nothing does; concurrent
// redemptions of one key leave exactly one winner.
func (s *ProvisioningService) CreateTenant(ctx context.Context, in CreateTenantInput) (res CreateTenantResult, err error) {
	start := time.Now()
	ctx, span := tracing.Start(ctx, "ProvisioningService.CreateTenant")
	defer func() {
		tracing.End(span, err)
		metrics.ObserveProvision(provisionResult(err), time.Since(start))
	}()
	log := slogx.FromContext(ctx)

	// 1. Validate input
	rawEmail := strings.TrimSpace(in.Email)
	email, err := normalizeEmail(rawEmail)
	if err != nil {
		return CreateTenantResult{}, err
	}
	if err := required("invitationKey", in.InvitationKey); err != nil {
		return CreateTenantResult{}, err
	}
	if err := validateProjectName(in.TenantName); err != nil {
		return CreateTenantResult{}, err
	}
	if err := validateSlug(in.TenantSlug); err != nil {
		return CreateTenantResult{}, err
	}
	if err := validatePassword("password", in.Password); err != nil {
		return CreateTenantResult{}, err
	}

	// 2. Redeemability check; repeated inside the transaction
	now := s.Clock.now()
	inv, err := lookupRedeemable(ctx, s.Store.Invitations(), in.InvitationKey, rawEmail, now)
	if err != nil {
		s.logRejected(ctx, inv, err)
		return CreateTenantResult{}, err
	}
	span.SetAttributes(attribute.String("invitation.id", inv.ID))

	// 3. Hash the password up front unless the account already exists
	var passwordHash string
	existing, err := s.Store.Users().GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		if err := s.requireNames(in); err != nil {
			return CreateTenantResult{}, err
		}
		if passwordHash, err = hashPassword(s.Hasher, in.Password); err != nil {
			log.Error("failed to hash password", slog.Any("error", err))
			return CreateTenantResult{}, err
		}
	case err != nil:
		log.Error("failed to fetch user", slog.Any("error", err))
		return CreateTenantResult{}, err
	default:
		log.Debug("provisioning for existing user", slog.String("user_id", existing.ID))
	}

	// 4. Project and credentials
	project, creds, err := s.Projects.newProject(in.TenantName, in.TenantSlug, in.AllowedOrigins)
	if err != nil {
		log.Error("failed to generate project credentials", slog.Any("error", err))
		return CreateTenantResult{}, err
	}

	// 5. The atomic unit
	var (
		user    domain.User
		created bool
	)
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := lookupRedeemable(ctx, tx.Invitations(), in.InvitationKey, rawEmail, now); err != nil {
			return err
		}

		if _, err := tx.Projects().GetProjectBySlug(ctx, project.Slug); err == nil {
			return ErrSlugTaken
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if err := tx.Projects().CreateProject(ctx, project); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrSlugTaken
			}
			return err
		}

		var err error
		user, created, err = s.findOrCreateUser(ctx, tx, email, passwordHash, in, now)
		if err != nil {
			return err
		}

		if err := tx.Memberships().CreateMembership(ctx, domain.Membership{
			ID:        idx.New().String(),
			UserID:    user.ID,
			ProjectID: project.ID,
			Role:      domain.RoleAdmin,
			CreatedAt: now,
		}); err != nil {
			return err
		}

		if err := tx.Invitations().MarkUsed(ctx, inv.ID, project.ID, now); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvitationUsed
			}
			return err
		}
		return nil
	})
	if err != nil {
		if isDomainError(err) {
			s.logRejected(ctx, inv, err)
		} else {
			log.Error("failed to provision project", slog.Any("error", err))
		}
		return CreateTenantResult{}, err
	}

	log.Info("project provisioned",
		slog.String("project_id", project.ID),
		slog.String("slug", project.Slug),
		slog.String("user_id", user.ID),
		slog.String("invitation_id", inv.ID),
		slog.Bool("user_created", created),
	)

	// 6. Verification for new accounts, outside the transaction
	if created {
		s.sendVerification(ctx, user, now)
	}

	return CreateTenantResult{
		Project:     project,
		User:        user,
		APIKey:      creds.APIKey,
		APISecret:   creds.APISecret,
		UserCreated: created,
	}, nil
}

// findOrCreateUser returns the account for email, creating an unverified
// one when none exists. Existing credentials are never touched.
func (s *ProvisioningService) findOrCreateUser(ctx context.Context, tx store.Tx, email, passwordHash string, in CreateTenantInput, now time.Time) (domain.User, bool, error) {
	user, err := tx.Users().GetUserByEmail(ctx, email)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, false, err
	}

	// The account vanished between the pre-check and now.
	if passwordHash == "" {
		if err := s.requireNames(in); err != nil {
			return domain.User{}, false, err
		}
		if passwordHash, err = hashPassword(s.Hasher, in.Password); err != nil {
			return domain.User{}, false, err
		}
	}

	user = domain.User{
		ID:           idx.New().String(),
		Email:        email,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := tx.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, false, ErrDuplicateEmail
		}
		return domain.User{}, false, err
	}
	return user, true, nil
}

func (s *ProvisioningService) requireNames(in CreateTenantInput) error {
	if err := validateName("firstName", in.FirstName); err != nil {
		return err
	}
	return validateName("lastName", in.LastName)
}

// sendVerification issues the first verification token of a provisioned
// admin. Failures are logged; the project already exists.
func (s *ProvisioningService) sendVerification(ctx context.Context, user domain.User, now time.Time) {
	ttl := s.VerificationTTL
	if ttl <= 0 {
		ttl = DefaultVerificationTTL
	}

	token, err := createVerification(ctx, s.Store, user, ttl, now)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to create email verification after provisioning",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
		return
	}
	bestEffort(ctx, string(notify.KindVerification), func() error {
		return s.Notifier.SendVerification(ctx, user.Email, token)
	})
}

func (s *ProvisioningService) logRejected(ctx context.Context, inv domain.Invitation, err error) {
	slogx.FromContext(ctx).Warn("project provisioning rejected",
		slog.String("invitation_id", inv.ID),
		slog.String("reason", err.Error()),
	)
}

func isDomainError(err error) bool {
	for _, target := range []error{
		ErrInvalidRequest,
		ErrInvitationInvalid,
		ErrInvitationExpired,
		ErrInvitationEmailMismatch,
		ErrSlugTaken,
		ErrDuplicateEmail,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func provisionResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvitationUsed):
		return "invitation_used"
	case isDomainError(err):
		return "rejected"
	default:
		return "error"
	}
}
