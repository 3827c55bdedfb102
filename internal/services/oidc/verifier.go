package oidc

import (
	"context"
	"strings"

	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/benvon/idgate/internal/models"
)

// VerifierConfig holds the construction-time settings for token verification.
// ClientName and Scopes are cosmetic: they are surfaced through API metadata
// but play no role in validation.
type VerifierConfig struct {
	BaseURL        string
	ClientName     string
	Scopes         string
	ClientID       string
	VerifyAudience bool
	ExtraAudiences string
	AutoError      bool
}

// Verifier decodes and validates bearer tokens against the provider's
// signing keys.
type Verifier struct {
	cfg       VerifierConfig
	resolver  *KeyResolver
	audiences []string
}

// NewVerifier builds a verifier around an already-initialized key resolver.
// Enabling audience verification without a client id is a configuration
// error; it is rejected here, before any token is seen.
func NewVerifier(resolver *KeyResolver, cfg VerifierConfig) (*Verifier, error) {
	v := &Verifier{cfg: cfg, resolver: resolver}
	if cfg.VerifyAudience {
		if cfg.ClientID == "" {
			return nil, &ConfigurationError{Reason: "audience verification requires a client id"}
		}
		v.audiences = append(v.audiences, cfg.ClientID)
		for _, aud := range strings.Split(cfg.ExtraAudiences, ",") {
			if aud = strings.TrimSpace(aud); aud != "" {
				v.audiences = append(v.audiences, aud)
			}
		}
	}
	return v, nil
}

// Config returns the verifier's construction-time settings.
func (v *Verifier) Config() VerifierConfig { return v.cfg }

// AcceptedAudiences returns the audience set enforced when verification is
// enabled: the client id plus any configured extras.
func (v *Verifier) AcceptedAudiences() []string {
	return append([]string(nil), v.audiences...)
}

// Verify validates rawToken and returns its claims. An empty token returns
// (nil, nil) when AutoError is disabled; that absent state is a valid
// no-result, not an error. All validation failures are terminal for the
// request; nothing is retried.
func (v *Verifier) Verify(ctx context.Context, rawToken string) (*models.VerifiedToken, error) {
	if rawToken == "" {
		if v.cfg.AutoError {
			return nil, &MissingCredentialsError{}
		}
		return nil, nil
	}

	key, err := v.resolver.ResolveKey(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	token, err := jwt.Parse([]byte(rawToken),
		jwt.WithKey(key.Algorithm, key.Key),
		jwt.WithValidate(true),
		jwt.WithRequiredClaim(jwt.ExpirationKey),
		jwt.WithRequiredClaim(jwt.IssuedAtKey),
		jwt.WithRequiredClaim(jwt.NotBeforeKey),
	)
	if err != nil {
		return nil, &TokenValidationError{Reason: "signature or claim validation failed", Err: err}
	}

	if v.cfg.VerifyAudience && !audienceAllowed(token.Audience(), v.audiences) {
		return nil, &TokenValidationError{
			Reason: "token audience " + strings.Join(token.Audience(), ",") + " not in accepted set",
		}
	}

	return &models.VerifiedToken{
		Token:  rawToken,
		Claims: claimsFromToken(token),
	}, nil
}

// audienceAllowed reports whether the token audience intersects the accepted
// set.
func audienceAllowed(tokenAud, accepted []string) bool {
	for _, aud := range tokenAud {
		for _, want := range accepted {
			if aud == want {
				return true
			}
		}
	}
	return false
}

func claimsFromToken(token jwt.Token) models.AccessTokenClaims {
	claims := models.AccessTokenClaims{
		Issuer:    token.Issuer(),
		ExpiresAt: token.Expiration().Unix(),
		NotBefore: token.NotBefore().Unix(),
		IssuedAt:  token.IssuedAt().Unix(),
		TokenID:   token.JwtID(),
		Subject:   token.Subject(),
		Audience:  append([]string(nil), token.Audience()...),
	}

	private := token.PrivateClaims()
	claims.TokenVersion = intClaim(private, "jwt_ver")
	claims.ApplicationName = stringClaim(private, "application_name")
	claims.IdentityType = stringClaim(private, "identity_type")
	claims.AuthorizedParty = stringClaim(private, "azp")
	claims.AccountID = stringClaim(private, "account_id")
	claims.Scope = stringClaim(private, "scope")
	claims.DataRegion = stringClaim(private, "data_region")

	if amr, ok := private["amr"].([]any); ok {
		for _, m := range amr {
			if s, ok := m.(string); ok {
				claims.AuthMethods = append(claims.AuthMethods, s)
			}
		}
	}
	if raw, ok := private["auth_time"]; ok {
		if n, ok := numericClaim(raw); ok {
			claims.AuthTime = &n
		}
	}
	return claims
}

func stringClaim(private map[string]any, name string) string {
	s, _ := private[name].(string)
	return s
}

func intClaim(private map[string]any, name string) int {
	if n, ok := numericClaim(private[name]); ok {
		return int(n)
	}
	return 0
}

// numericClaim normalizes the types a JSON number claim can decode to.
func numericClaim(raw any) (int64, bool) {
	switch n := raw.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}
