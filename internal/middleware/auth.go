package middleware

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	logpkg "github.com/benvon/idgate/internal/logger"
	"github.com/benvon/idgate/internal/request"
	"github.com/benvon/idgate/internal/services/oidc"
)

// Auth creates authentication middleware that validates bearer tokens and
// attaches the resolved identity to the request context. Credential and
// validation failures map to 401, upstream identity-provider failures to 500.
// When the verifier runs without AutoError, requests without a token pass
// through with no identity attached.
func Auth(authenticator *oidc.Authenticator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := request.BearerToken(r)
			if !ok {
				respondAuthError(w, http.StatusUnauthorized, "Invalid Authorization header format")
				return
			}

			identity, err := authenticator.Authenticate(r.Context(), token)
			if err != nil {
				status := oidc.HTTPStatus(err)
				logger.Warn("authentication_failed",
					zap.String("error", logpkg.SanitizeError(err)),
					zap.Int("status_code", status),
					zap.String("path", logpkg.SanitizePath(r.URL.Path)),
				)
				if status == http.StatusUnauthorized {
					respondAuthError(w, status, "Invalid or expired token")
				} else {
					respondAuthError(w, status, "Identity provider unavailable")
				}
				return
			}

			if identity != nil {
				r = r.WithContext(request.WithIdentity(r.Context(), identity))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func respondAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success": false,
		"error":   message,
	}
	_ = json.NewEncoder(w).Encode(response)
}
