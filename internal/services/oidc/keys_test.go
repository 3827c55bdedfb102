package oidc

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewKeyResolver_DiscoveryFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "discovery endpoint down",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "malformed discovery document",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("not json"))
			},
		},
		{
			name: "discovery document without jwks_uri",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"issuer":"x"}`))
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(tt.handler)
			defer server.Close()

			_, err := NewKeyResolver(context.Background(), server.URL)
			var discoveryErr *DiscoveryError
			if !errors.As(err, &discoveryErr) {
				t.Fatalf("expected DiscoveryError, got %v", err)
			}
		})
	}
}

func TestNewKeyResolver_KeySetFailure(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	var serverURL string
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"jwks_uri":"` + serverURL + `/jwks"}`))
	})
	mux.HandleFunc("/jwks", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not a key set {"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()
	serverURL = server.URL

	_, err := NewKeyResolver(context.Background(), server.URL)
	var keySetErr *KeySetError
	if !errors.As(err, &keySetErr) {
		t.Fatalf("expected KeySetError, got %v", err)
	}
}

func TestKeyResolver_ResolveKey(t *testing.T) {
	t.Parallel()

	provider := newTestProvider(t)
	resolver := provider.newResolver(t)

	rawToken := provider.signToken(t, provider.baseClaims("u1"))
	key, err := resolver.ResolveKey(context.Background(), rawToken)
	if err != nil {
		t.Fatalf("ResolveKey failed: %v", err)
	}
	if key.Key.KeyID() != "test-key-1" {
		t.Errorf("expected key id 'test-key-1', got %q", key.Key.KeyID())
	}
	if key.Algorithm.String() != "RS256" {
		t.Errorf("expected algorithm RS256, got %q", key.Algorithm.String())
	}
}

func TestKeyResolver_UnknownKeyID(t *testing.T) {
	t.Parallel()

	provider := newTestProvider(t)
	resolver := provider.newResolver(t)

	foreign := newForeignKey(t, "rotated-key")
	rawToken := signWithKey(t, foreign, provider.baseClaims("u1"))

	_, err := resolver.ResolveKey(context.Background(), rawToken)
	var unknownErr *UnknownKeyError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("expected UnknownKeyError, got %v", err)
	}
	if unknownErr.KeyID != "rotated-key" {
		t.Errorf("expected key id 'rotated-key', got %q", unknownErr.KeyID)
	}
}

func TestKeyResolver_RefreshOnUnknownKey(t *testing.T) {
	t.Parallel()

	provider := newTestProvider(t)
	resolver := provider.newResolver(t, WithRefreshOnUnknownKey(true))

	// Rotate the provider's key after the resolver cached the old set.
	rotated := newForeignKey(t, "test-key-2")
	rotatedPub, err := rotated.PublicKey()
	if err != nil {
		t.Fatalf("failed to derive public key: %v", err)
	}
	if err := provider.pubSet.AddKey(rotatedPub); err != nil {
		t.Fatalf("failed to add rotated key: %v", err)
	}

	rawToken := signWithKey(t, rotated, provider.baseClaims("u1"))
	key, err := resolver.ResolveKey(context.Background(), rawToken)
	if err != nil {
		t.Fatalf("expected refresh to pick up rotated key, got %v", err)
	}
	if key.Key.KeyID() != "test-key-2" {
		t.Errorf("expected rotated key id, got %q", key.Key.KeyID())
	}
}

func TestKeyResolver_MalformedToken(t *testing.T) {
	t.Parallel()

	provider := newTestProvider(t)
	resolver := provider.newResolver(t)

	_, err := resolver.ResolveKey(context.Background(), "not.a.jwt")
	var validationErr *TokenValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected TokenValidationError, got %v", err)
	}
}

func TestKeyResolver_PreBuiltKeySet(t *testing.T) {
	t.Parallel()

	provider := newTestProvider(t)

	// No discovery fetch happens when a key set is supplied directly; the
	// base URL is never contacted.
	resolver, err := NewKeyResolver(context.Background(), "http://unreachable.invalid", WithKeySet(provider.pubSet))
	if err != nil {
		t.Fatalf("NewKeyResolver with pre-built set failed: %v", err)
	}

	rawToken := provider.signToken(t, provider.baseClaims("u1"))
	if _, err := resolver.ResolveKey(context.Background(), rawToken); err != nil {
		t.Fatalf("ResolveKey failed: %v", err)
	}
}
