package http

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aussiebroadwan/techauth/internal/auth/store"
	"github.com/aussiebroadwan/techauth/pkg/slogx"
)

// storeAdmins answers httpx.RequireGlobalAdmin from the user table.
type storeAdmins struct {
	store store.Store
}

func (a storeAdmins) IsGlobalAdmin(ctx context.Context, userID string) (bool, error) {
	user, err := a.store.Users().GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !user.IsGlobalAdmin {
		slogx.FromContext(ctx).Warn("global admin access denied", slog.String("user_id", userID))
	}
	return user.IsGlobalAdmin, nil
}
