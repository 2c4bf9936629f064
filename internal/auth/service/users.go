package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aussiebroadwan/techauth/internal/auth/domain"
	"github.com/aussiebroadwan/techauth/internal/auth/store"
	"github.com/aussiebroadwan/techauth/pkg/slogx"
)

// UserAdminService holds operator mutations on accounts. None of them are
// reachable over HTTP.
type UserAdminService struct {
	Store store.Store
}

// MarkVerified verifies an account without a token and drops its pending
// verification records.
func (s *UserAdminService) MarkVerified(ctx context.Context, email string) (domain.User, error) {
	user, err := s.lookup(ctx, email)
	if err != nil {
		return domain.User{}, err
	}
	if user.EmailVerified {
		return user, ErrAlreadyVerified
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().SetEmailVerified(ctx, user.ID, true); err != nil {
			return err
		}
		return tx.EmailVerifications().DeletePendingForUser(ctx, user.ID)
	})
	if err != nil {
		return domain.User{}, err
	}

	user.EmailVerified = true
	slogx.FromContext(ctx).Info("email verified by operator", slog.String("user_id", user.ID))
	return user, nil
}

// SetGlobalAdmin grants or revokes the global administrator flag.
func (s *UserAdminService) SetGlobalAdmin(ctx context.Context, email string, admin bool) (domain.User, error) {
	user, err := s.lookup(ctx, email)
	if err != nil {
		return domain.User{}, err
	}
	if err := s.Store.Users().SetGlobalAdmin(ctx, user.ID, admin); err != nil {
		return domain.User{}, err
	}

	user.IsGlobalAdmin = admin
	slogx.FromContext(ctx).Info("global admin flag changed",
		slog.String("user_id", user.ID),
		slog.Bool("admin", admin),
	)
	return user, nil
}

// SetBanned bans or unbans an account. Banning also revokes every session so
// existing refresh tokens stop working at once.
func (s *UserAdminService) SetBanned(ctx context.Context, email string, banned bool, reason string) (domain.User, error) {
	user, err := s.lookup(ctx, email)
	if err != nil {
		return domain.User{}, err
	}

	var revoked int64
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().SetBanned(ctx, user.ID, banned, reason); err != nil {
			return err
		}
		if !banned {
			return nil
		}
		n, err := tx.Sessions().DeleteAllForUser(ctx, user.ID)
		revoked = n
		return err
	})
	if err != nil {
		return domain.User{}, err
	}

	user.IsBanned = banned
	user.BanReason = ""
	if banned {
		user.BanReason = reason
	}
	slogx.FromContext(ctx).Info("ban flag changed",
		slog.String("user_id", user.ID),
		slog.Bool("banned", banned),
		slog.Int64("sessions_revoked", revoked),
	)
	return user, nil
}

func (s *UserAdminService) lookup(ctx context.Context, email string) (domain.User, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return domain.User{}, err
	}
	user, err := s.Store.Users().GetUserByEmail(ctx, normalized)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrUserNotFound
	}
	return user, err
}
