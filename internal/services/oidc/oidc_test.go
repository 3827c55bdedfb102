package oidc

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/benvon/idgate/internal/models"
)

// testProvider is a fake identity provider backed by httptest. It serves a
// discovery document, a JWKS endpoint and a userinfo endpoint, and signs
// tokens with a generated RSA key.
type testProvider struct {
	server *httptest.Server

	privKey jwk.Key
	pubSet  jwk.Set

	userinfoCalls  int32
	userinfoStatus int
	profile        models.UserProfile
}

func newTestProvider(t *testing.T) *testProvider {
	t.Helper()

	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %v", err)
	}
	privKey, err := jwk.FromRaw(raw)
	if err != nil {
		t.Fatalf("failed to build JWK: %v", err)
	}
	if err := privKey.Set(jwk.KeyIDKey, "test-key-1"); err != nil {
		t.Fatalf("failed to set kid: %v", err)
	}
	if err := privKey.Set(jwk.AlgorithmKey, jwa.RS256); err != nil {
		t.Fatalf("failed to set alg: %v", err)
	}
	pubKey, err := privKey.PublicKey()
	if err != nil {
		t.Fatalf("failed to derive public key: %v", err)
	}
	pubSet := jwk.NewSet()
	if err := pubSet.AddKey(pubKey); err != nil {
		t.Fatalf("failed to add key to set: %v", err)
	}

	p := &testProvider{
		privKey:        privKey,
		pubSet:         pubSet,
		userinfoStatus: http.StatusOK,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"issuer":   p.server.URL,
			"jwks_uri": p.server.URL + "/jwks",
		})
	})
	mux.HandleFunc("/jwks", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(p.pubSet)
	})
	mux.HandleFunc("/oauth/userinfo", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&p.userinfoCalls, 1)
		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if p.userinfoStatus != http.StatusOK {
			w.WriteHeader(p.userinfoStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(p.profile)
	})

	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

func (p *testProvider) userinfoCallCount() int {
	return int(atomic.LoadInt32(&p.userinfoCalls))
}

// baseClaims returns a complete, currently-valid claim set for a user token
// issued by this provider. Tests mutate or delete entries as needed.
func (p *testProvider) baseClaims(sub string) map[string]any {
	now := time.Now()
	return map[string]any{
		jwt.IssuerKey:     p.server.URL,
		jwt.SubjectKey:    sub,
		jwt.ExpirationKey: now.Add(time.Hour),
		jwt.NotBeforeKey:  now.Add(-time.Minute),
		jwt.IssuedAtKey:   now,
		jwt.JwtIDKey:      "jti-" + sub,
		jwt.AudienceKey:   []string{"c1"},
		"jwt_ver":         1,
		"amr":             []string{"password"},
	}
}

// signToken signs the given claims with the provider's key.
func (p *testProvider) signToken(t *testing.T, claims map[string]any) string {
	t.Helper()
	return signWithKey(t, p.privKey, claims)
}

func signWithKey(t *testing.T, key jwk.Key, claims map[string]any) string {
	t.Helper()
	tok := jwt.New()
	for name, value := range claims {
		if err := tok.Set(name, value); err != nil {
			t.Fatalf("failed to set claim %s: %v", name, err)
		}
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256, key))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return string(signed)
}

// newForeignKey generates a signing key that is not in any provider's JWKS.
func newForeignKey(t *testing.T, kid string) jwk.Key {
	t.Helper()
	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %v", err)
	}
	key, err := jwk.FromRaw(raw)
	if err != nil {
		t.Fatalf("failed to build JWK: %v", err)
	}
	if err := key.Set(jwk.KeyIDKey, kid); err != nil {
		t.Fatalf("failed to set kid: %v", err)
	}
	if err := key.Set(jwk.AlgorithmKey, jwa.RS256); err != nil {
		t.Fatalf("failed to set alg: %v", err)
	}
	return key
}

func (p *testProvider) newResolver(t *testing.T, opts ...KeyResolverOption) *KeyResolver {
	t.Helper()
	resolver, err := NewKeyResolver(context.Background(), p.server.URL, opts...)
	if err != nil {
		t.Fatalf("failed to build key resolver: %v", err)
	}
	return resolver
}

func (p *testProvider) newVerifier(t *testing.T, cfg VerifierConfig) *Verifier {
	t.Helper()
	if cfg.BaseURL == "" {
		cfg.BaseURL = p.server.URL
	}
	verifier, err := NewVerifier(p.newResolver(t), cfg)
	if err != nil {
		t.Fatalf("failed to build verifier: %v", err)
	}
	return verifier
}
