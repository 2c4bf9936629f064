package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/techauth/internal/auth/domain"
	"github.com/aussiebroadwan/techauth/internal/auth/notify"
	"github.com/aussiebroadwan/techauth/internal/auth/store"
	"github.com/aussiebroadwan/techauth/pkg/cryptox"
	"github.com/aussiebroadwan/techauth/pkg/idx"
	"github.com/aussiebroadwan/techauth/pkg/slogx"
)

// DefaultInvitationTTL is how long a project invitation stays redeemable.
const DefaultInvitationTTL = 3 * 24 * time.Hour

// InvitationService is the invitation ledger: it mints single-use keys that
// authorise creating exactly one project.
type InvitationService struct {
	Store    store.Store
	Notifier notify.Notifier
	TTL      time.Duration
	Clock    Clock

	// LinkFor builds the web app URL for a key. Optional.
	LinkFor func(key string) string
}

type CreateInvitationInput struct {
	CreatedByID string
	Email       string
	Description string
}

// IssuedInvitation holds the plaintext key; only its fingerprint is stored.
type IssuedInvitation struct {
	Invitation domain.Invitation
	Key        string
	Link       string
}

// Create mints an invitation bound to an email address and notifies it.
// The creator must be a global administrator.
func (s *InvitationService) Create(ctx context.Context, in CreateInvitationInput) (IssuedInvitation, error) {
	if strings.TrimSpace(in.Email) == "" {
		return IssuedInvitation{}, invalid("email", "email address is required")
	}
	return s.issue(ctx, in)
}

// CreateUnbound mints an invitation that may or may not be bound to an
// email. Operators use it from the command line.
func (s *InvitationService) CreateUnbound(ctx context.Context, in CreateInvitationInput) (IssuedInvitation, error) {
	return s.issue(ctx, in)
}

func (s *InvitationService) issue(ctx context.Context, in CreateInvitationInput) (IssuedInvitation, error) {
	log := slogx.FromContext(ctx)

	// 1. Validate input. The email is kept exactly as given; redemption
	// compares it verbatim.
	email := strings.TrimSpace(in.Email)
	if email != "" {
		if _, err := normalizeEmail(email); err != nil {
			return IssuedInvitation{}, err
		}
	}
	if err := validateDescription(in.Description); err != nil {
		return IssuedInvitation{}, err
	}

	// 2. Only global admins may invite
	creator, err := s.Store.Users().GetUserByID(ctx, in.CreatedByID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("invitation requested by unknown user", slog.String("user_id", in.CreatedByID))
			return IssuedInvitation{}, ErrForbidden
		}
		log.Error("failed to fetch invitation creator", slog.Any("error", err))
		return IssuedInvitation{}, err
	}
	if !creator.IsGlobalAdmin {
		log.Warn("invitation requested by non-admin", slog.String("user_id", creator.ID))
		return IssuedInvitation{}, ErrForbidden
	}

	// 3. Generate the key and store its fingerprint
	key, fingerprint, err := newOpaqueToken()
	if err != nil {
		log.Error("failed to generate invitation key", slog.Any("error", err))
		return IssuedInvitation{}, err
	}

	ttl := s.TTL
	if ttl <= 0 {
		ttl = DefaultInvitationTTL
	}
	now := s.Clock.now()
	inv := domain.Invitation{
		ID:          idx.New().String(),
		KeyHash:     fingerprint,
		Email:       email,
		Description: strings.TrimSpace(in.Description),
		ExpiresAt:   now.Add(ttl),
		CreatedByID: creator.ID,
		CreatedAt:   now,
	}
	if err := s.Store.Invitations().CreateInvitation(ctx, inv); err != nil {
		log.Error("failed to create invitation", slog.Any("error", err))
		return IssuedInvitation{}, err
	}

	log.Info("invitation created",
		slog.String("invitation_id", inv.ID),
		slog.String("created_by", creator.ID),
		slog.Bool("email_bound", email != ""),
		slog.Time("expires_at", inv.ExpiresAt),
	)

	// 4. Notify the invitee
	if email != "" {
		bestEffort(ctx, string(notify.KindProjectInvitation), func() error {
			return s.Notifier.SendProjectInvitation(ctx, email, key, inv.ExpiresAt)
		})
	}

	issued := IssuedInvitation{Invitation: inv, Key: key}
	if s.LinkFor != nil {
		issued.Link = s.LinkFor(key)
	}
	return issued, nil
}

// lookupRedeemable resolves a plaintext key to an invitation that may still
// be redeemed by email at now.
func lookupRedeemable(ctx context.Context, invitations store.Invitations, key, email string, now time.Time) (domain.Invitation, error) {
	if key == "" {
		return domain.Invitation{}, ErrInvitationInvalid
	}

	inv, err := invitations.GetByKeyHash(ctx, cryptox.FingerprintToken(key))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Invitation{}, ErrInvitationInvalid
		}
		return domain.Invitation{}, err
	}

	switch {
	case inv.Used:
		return inv, ErrInvitationUsed
	case inv.Expired(now):
		return inv, ErrInvitationExpired
	case inv.Email != "" && inv.Email != email:
		return inv, ErrInvitationEmailMismatch
	}
	return inv, nil
}
