package request

import (
	"context"
	"net/http"
	"strings"

	"github.com/benvon/idgate/internal/models"
)

type contextKey string

const identityContextKey contextKey = "identity"

// IdentityContextKey returns the context key used for the resolved identity.
// Exposed for tests that inject non-identity values.
func IdentityContextKey() contextKey { return identityContextKey }

// ClientIP extracts the client IP from the request, respecting X-Forwarded-For and X-Real-IP.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return r.RemoteAddr
}

// BearerToken extracts the bearer token from the Authorization header. It
// returns an empty string when the header is absent, and ok=false when the
// header is present but not a well-formed bearer scheme.
func BearerToken(r *http.Request) (token string, ok bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", true
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// WithIdentity returns a context with the resolved identity attached.
func WithIdentity(ctx context.Context, identity *models.ResolvedIdentity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// IdentityFromContext returns the resolved identity from the request context,
// or nil if missing or wrong type.
func IdentityFromContext(r *http.Request) *models.ResolvedIdentity {
	id, _ := r.Context().Value(identityContextKey).(*models.ResolvedIdentity)
	return id
}
