package oidc

import (
	"errors"
	"fmt"
	"net/http"
)

// ConfigurationError indicates an invalid verifier configuration. It is
// returned at construction time, before any network call.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "oidc configuration error: " + e.Reason
}

// DiscoveryError indicates the provider's discovery document could not be
// fetched or parsed.
type DiscoveryError struct {
	URL string
	Err error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("oidc discovery failed for %s: %v", e.URL, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// KeySetError indicates the JWKS endpoint could not be fetched or parsed.
type KeySetError struct {
	URL string
	Err error
}

func (e *KeySetError) Error() string {
	return fmt.Sprintf("jwks fetch failed for %s: %v", e.URL, e.Err)
}

func (e *KeySetError) Unwrap() error { return e.Err }

// UnknownKeyError indicates a token references a signing key id that is not
// present in the cached key set.
type UnknownKeyError struct {
	KeyID string
}

func (e *UnknownKeyError) Error() string {
	return fmt.Sprintf("signing key %q not found in key set", e.KeyID)
}

// MissingCredentialsError indicates no bearer token was supplied on a request
// that requires one.
type MissingCredentialsError struct{}

func (e *MissingCredentialsError) Error() string {
	return "missing bearer credentials"
}

// TokenValidationError indicates a structural, signature, time-window or
// audience failure while validating a token. Reason carries the underlying
// cause for diagnosability; it never contains key material.
type TokenValidationError struct {
	Reason string
	Err    error
}

func (e *TokenValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token validation failed: %s: %v", e.Reason, e.Err)
	}
	return "token validation failed: " + e.Reason
}

func (e *TokenValidationError) Unwrap() error { return e.Err }

// UserInfoFetchError indicates the userinfo call to the identity provider
// failed during enrichment. This is an upstream failure, not a bad credential.
type UserInfoFetchError struct {
	URL string
	Err error
}

func (e *UserInfoFetchError) Error() string {
	return fmt.Sprintf("userinfo fetch failed for %s: %v", e.URL, e.Err)
}

func (e *UserInfoFetchError) Unwrap() error { return e.Err }

// HTTPStatus maps pipeline errors to their HTTP status equivalent: 401 for
// credential and validation failures, 500 for upstream and integration
// failures.
func HTTPStatus(err error) int {
	var (
		missing    *MissingCredentialsError
		validation *TokenValidationError
		unknownKey *UnknownKeyError
	)
	switch {
	case errors.As(err, &missing), errors.As(err, &validation), errors.As(err, &unknownKey):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
