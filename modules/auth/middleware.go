package auth

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/budgetbook/pkg/cookie"
	"github.com/dmitrymomot/budgetbook/pkg/jwt"
	"github.com/dmitrymomot/budgetbook/pkg/logger"
)

// Middleware validates the session credential on every request and attaches
// the caller identity to the context. It is read-only and side-effect-free
// beyond the context attachment, so requests proceed fully in parallel.
//
// Response mapping: no cookie yields 401, a bad signature yields 403, a
// valid signature past its expiry yields 401 with a "session_expired"
// reason. The expired/invalid distinction is safe to expose here because no
// secret token material is at stake, unlike the verification endpoint.
func Middleware(svc *jwt.Service, cookies *cookie.Manager, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			credential, err := cookies.Get(r, SessionCookieName)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, map[string]any{
					"authenticated": false,
					"error":         "unauthenticated",
				})
				return
			}

			var claims SessionClaims
			if err := svc.Parse(credential, &claims); err != nil {
				if errors.Is(err, jwt.ErrExpiredToken) {
					writeJSON(w, http.StatusUnauthorized, map[string]any{
						"authenticated": false,
						"error":         "session_expired",
					})
					return
				}

				log.Warn("rejected session credential",
					logger.Error(err),
					logger.Component("auth.middleware"),
				)
				writeJSON(w, http.StatusForbidden, map[string]any{
					"authenticated": false,
					"error":         "forbidden",
				})
				return
			}

			if !claims.Authenticated || claims.Email == "" {
				writeJSON(w, http.StatusForbidden, map[string]any{
					"authenticated": false,
					"error":         "forbidden",
				})
				return
			}

			ctx := WithIdentity(r.Context(), Identity{Email: claims.Email})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
