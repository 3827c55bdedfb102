package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/benvon/idgate/internal/models"
)

const (
	userInfoPath       = "/oauth/userinfo"
	defaultUserInfoTTL = 15 * time.Minute
)

type cachedProfile struct {
	profile   *models.UserProfile
	fetchedAt time.Time
}

// Enricher turns a verified token into a resolved identity. User profiles
// are fetched from the provider's userinfo endpoint and cached per subject;
// application identities are derived from claims alone and never cached.
type Enricher struct {
	httpClient *http.Client
	ttl        time.Duration

	mu       sync.RWMutex
	profiles map[string]cachedProfile
	group    singleflight.Group
}

// EnricherOption configures an Enricher.
type EnricherOption func(*Enricher)

// WithUserInfoHTTPClient sets the client used for userinfo fetches.
func WithUserInfoHTTPClient(client *http.Client) EnricherOption {
	return func(e *Enricher) {
		e.httpClient = client
	}
}

// WithUserInfoTTL sets how long cached profiles stay fresh. Zero or negative
// disables expiry, keeping profiles for the life of the process.
func WithUserInfoTTL(ttl time.Duration) EnricherOption {
	return func(e *Enricher) {
		e.ttl = ttl
	}
}

// NewEnricher creates an enricher with an empty profile cache.
func NewEnricher(opts ...EnricherOption) *Enricher {
	e := &Enricher{
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		ttl:        defaultUserInfoTTL,
		profiles:   make(map[string]cachedProfile),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Resolve combines the verified token with exactly one of a user profile or
// an application identity. Concurrent misses for the same subject share a
// single upstream fetch.
func (e *Enricher) Resolve(ctx context.Context, vt *models.VerifiedToken) (*models.ResolvedIdentity, error) {
	if vt.Claims.IsApplication() {
		return &models.ResolvedIdentity{
			VerifiedToken: *vt,
			App: &models.ApplicationIdentity{
				Service: vt.Claims.ApplicationName,
				Subject: vt.Claims.Subject,
			},
		}, nil
	}

	profile, err := e.profile(ctx, vt)
	if err != nil {
		return nil, err
	}
	return &models.ResolvedIdentity{
		VerifiedToken: *vt,
		User:          profile,
	}, nil
}

// Invalidate drops the cached profile for a subject, forcing a refetch on
// the next resolve.
func (e *Enricher) Invalidate(subject string) {
	e.mu.Lock()
	delete(e.profiles, subject)
	e.mu.Unlock()
}

// CachedSubjects returns the number of profiles currently cached.
func (e *Enricher) CachedSubjects() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.profiles)
}

func (e *Enricher) profile(ctx context.Context, vt *models.VerifiedToken) (*models.UserProfile, error) {
	sub := vt.Claims.Subject
	if p, ok := e.cached(sub); ok {
		return p, nil
	}

	result, err, _ := e.group.Do(sub, func() (any, error) {
		// A concurrent flight may have populated the cache while this
		// caller waited for the flight slot.
		if p, ok := e.cached(sub); ok {
			return p, nil
		}
		p, err := e.fetchUserInfo(ctx, vt)
		if err != nil {
			return nil, err
		}
		e.store(sub, p)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.UserProfile), nil
}

func (e *Enricher) cached(sub string) (*models.UserProfile, bool) {
	e.mu.RLock()
	entry, ok := e.profiles[sub]
	e.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if e.ttl > 0 && time.Since(entry.fetchedAt) > e.ttl {
		return nil, false
	}
	return entry.profile, true
}

func (e *Enricher) store(sub string, profile *models.UserProfile) {
	e.mu.Lock()
	e.profiles[sub] = cachedProfile{profile: profile, fetchedAt: time.Now()}
	e.mu.Unlock()
}

func (e *Enricher) fetchUserInfo(ctx context.Context, vt *models.VerifiedToken) (*models.UserProfile, error) {
	url := strings.TrimSuffix(vt.Claims.Issuer, "/") + userInfoPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &UserInfoFetchError{URL: url, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+vt.Token)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, &UserInfoFetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &UserInfoFetchError{URL: url, Err: fmt.Errorf("userinfo endpoint returned status %d", resp.StatusCode)}
	}

	var profile models.UserProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, &UserInfoFetchError{URL: url, Err: fmt.Errorf("failed to decode userinfo response: %w", err)}
	}
	return &profile, nil
}
