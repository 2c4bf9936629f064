package httpx

import (
	"context"
	"net/http"

	"github.com/aussiebroadwan/techauth/pkg/slogx"
)

// AdminChecker reports whether a user holds the global admin flag.
type AdminChecker interface {
	IsGlobalAdmin(ctx context.Context, userID string) (bool, error)
}

// RequireGlobalAdmin must run after AuthnMiddleware. The flag is read from
// storage on every request so a demotion takes effect immediately.
func RequireGlobalAdmin(c AdminChecker) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			userID, ok := UserIDFromContext(ctx)
			if !ok {
				writeBearerError(w, "missing bearer token")
				return
			}

			admin, err := c.IsGlobalAdmin(ctx, userID)
			if err != nil {
				slogx.FromContext(ctx).Error("admin lookup failed", "user_id", userID, "err", err)
				WriteJSON(w, http.StatusInternalServerError, map[string]string{
					"error":             "server_error",
					"error_description": "internal server error",
				})
				return
			}
			if !admin {
				WriteJSON(w, http.StatusForbidden, map[string]string{
					"error":             "access_denied",
					"error_description": "global admin access required",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
