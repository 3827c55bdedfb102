package oidc

import (
	"context"

	"github.com/benvon/idgate/internal/models"
)

// Authenticator runs the full pipeline: verify a raw bearer token, then
// enrich it into a resolved identity. Verifier and Enricher stay independent
// components; this type only delegates.
type Authenticator struct {
	verifier *Verifier
	enricher *Enricher
}

// NewAuthenticator composes a verifier and an enricher.
func NewAuthenticator(verifier *Verifier, enricher *Enricher) *Authenticator {
	return &Authenticator{verifier: verifier, enricher: enricher}
}

// Authenticate verifies rawToken and resolves its identity. When the
// verifier is configured without AutoError and no token is supplied, it
// returns (nil, nil) and enrichment is never attempted.
func (a *Authenticator) Authenticate(ctx context.Context, rawToken string) (*models.ResolvedIdentity, error) {
	vt, err := a.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, err
	}
	if vt == nil {
		return nil, nil
	}
	return a.enricher.Resolve(ctx, vt)
}

// Verifier returns the composed verifier.
func (a *Authenticator) Verifier() *Verifier { return a.verifier }
