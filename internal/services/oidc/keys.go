package oidc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
)

const (
	discoveryPath      = "/.well-known/openid-configuration"
	defaultHTTPTimeout = 10 * time.Second
)

// ResolvedKey is the key material and algorithm needed to verify one token.
type ResolvedKey struct {
	Key       jwk.Key
	Algorithm jwa.KeyAlgorithm
}

// KeyResolver fetches the provider's signing keys via its discovery document
// and caches them for the life of the process. The cached set is replaced
// wholesale on refresh, so reads need only a read lock.
type KeyResolver struct {
	httpClient       *http.Client
	jwksURL          string
	refreshOnUnknown bool

	mu   sync.RWMutex
	keys jwk.Set
}

// KeyResolverOption configures a KeyResolver.
type KeyResolverOption func(*KeyResolver)

// WithHTTPClient sets the client used for discovery and JWKS fetches.
func WithHTTPClient(client *http.Client) KeyResolverOption {
	return func(r *KeyResolver) {
		r.httpClient = client
	}
}

// WithKeySet supplies a pre-built key set, skipping discovery entirely.
func WithKeySet(keys jwk.Set) KeyResolverOption {
	return func(r *KeyResolver) {
		r.keys = keys
	}
}

// WithRefreshOnUnknownKey enables a single forced JWKS refresh when a token
// references a key id missing from the cached set. The default preserves the
// original behavior of failing immediately, which matters when providers
// rotate keys rarely and an unknown kid usually means a forged token.
func WithRefreshOnUnknownKey(enabled bool) KeyResolverOption {
	return func(r *KeyResolver) {
		r.refreshOnUnknown = enabled
	}
}

// NewKeyResolver builds a resolver for the given provider base URL. Unless a
// pre-built key set is supplied, the discovery document and JWKS are loaded
// eagerly so startup fails fast on a misconfigured provider.
func NewKeyResolver(ctx context.Context, baseURL string, opts ...KeyResolverOption) (*KeyResolver, error) {
	r := &KeyResolver{
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.keys != nil {
		return r, nil
	}

	discoveryURL := strings.TrimSuffix(baseURL, "/") + discoveryPath
	jwksURL, err := r.fetchJWKSURL(ctx, discoveryURL)
	if err != nil {
		return nil, err
	}
	r.jwksURL = jwksURL

	if err := r.Refresh(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// ResolveKey inspects the token's protected header and returns the matching
// key from the cached set.
func (r *KeyResolver) ResolveKey(ctx context.Context, rawToken string) (*ResolvedKey, error) {
	msg, err := jws.ParseString(rawToken)
	if err != nil {
		return nil, &TokenValidationError{Reason: "malformed token", Err: err}
	}
	sigs := msg.Signatures()
	if len(sigs) == 0 {
		return nil, &TokenValidationError{Reason: "token has no signature"}
	}
	headers := sigs[0].ProtectedHeaders()
	kid := headers.KeyID()
	if kid == "" {
		return nil, &TokenValidationError{Reason: "token header missing kid"}
	}

	key, ok := r.lookup(kid)
	if !ok && r.refreshOnUnknown {
		if err := r.Refresh(ctx); err != nil {
			return nil, err
		}
		key, ok = r.lookup(kid)
	}
	if !ok {
		return nil, &UnknownKeyError{KeyID: kid}
	}

	alg := jwa.KeyAlgorithm(headers.Algorithm())
	if keyAlg := key.Algorithm(); keyAlg != nil && keyAlg.String() != "" {
		alg = keyAlg
	}
	return &ResolvedKey{Key: key, Algorithm: alg}, nil
}

// Refresh refetches the JWKS and atomically swaps the cached set.
func (r *KeyResolver) Refresh(ctx context.Context) error {
	if r.jwksURL == "" {
		return &KeySetError{Err: errors.New("no jwks url configured")}
	}
	body, err := r.get(ctx, r.jwksURL)
	if err != nil {
		return &KeySetError{URL: r.jwksURL, Err: err}
	}
	keys, err := jwk.Parse(body)
	if err != nil {
		return &KeySetError{URL: r.jwksURL, Err: fmt.Errorf("failed to parse JWKS: %w", err)}
	}
	r.mu.Lock()
	r.keys = keys
	r.mu.Unlock()
	return nil
}

func (r *KeyResolver) lookup(kid string) (jwk.Key, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.keys == nil {
		return nil, false
	}
	return r.keys.LookupKeyID(kid)
}

func (r *KeyResolver) fetchJWKSURL(ctx context.Context, discoveryURL string) (string, error) {
	body, err := r.get(ctx, discoveryURL)
	if err != nil {
		return "", &DiscoveryError{URL: discoveryURL, Err: err}
	}
	var doc struct {
		JWKSURI string `json:"jwks_uri"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return "", &DiscoveryError{URL: discoveryURL, Err: fmt.Errorf("failed to parse discovery document: %w", err)}
	}
	if doc.JWKSURI == "" {
		return "", &DiscoveryError{URL: discoveryURL, Err: errors.New("discovery document has no jwks_uri")}
	}
	return doc.JWKSURI, nil
}

func (r *KeyResolver) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}
