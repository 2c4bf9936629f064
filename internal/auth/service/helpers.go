package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/techauth/pkg/cryptox"
	"github.com/aussiebroadwan/techauth/pkg/slogx"
)

func hashPassword(h *cryptox.Hasher, password string) (string, error) {
	hash, err := h.Hash(password)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrHashing, err)
	}
	return hash, nil
}

// newOpaqueToken returns a 256-bit hex token and its storage fingerprint.
func newOpaqueToken() (token, fingerprint string, err error) {
	token, err = cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", "", err
	}
	return token, cryptox.FingerprintToken(token), nil
}

// bestEffort runs a notification and logs a failure instead of returning it.
func bestEffort(ctx context.Context, kind string, send func() error) {
	if err := send(); err != nil {
		slogx.FromContext(ctx).Warn("notification failed",
			slog.String("kind", kind),
			slog.Any("error", err),
		)
	}
}
