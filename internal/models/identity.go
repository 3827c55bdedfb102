package models

import "errors"

// Identity type discriminator values carried in the identity_type claim
const (
	IdentityTypeUser        = "user"
	IdentityTypeApplication = "application"
)

// ErrIllegalState is returned when a ResolvedIdentity carries neither user
// nor application data. Construction rules make this unreachable, but callers
// of PrimaryIdentifier must still handle it.
var ErrIllegalState = errors.New("resolved identity has neither user nor application data")

// AccessTokenClaims represents the decoded payload of a provider-issued
// access token. exp, nbf and iat are required by the verifier; their absence
// is a validation failure, never a zero default.
type AccessTokenClaims struct {
	Issuer          string   `json:"iss"`
	ExpiresAt       int64    `json:"exp"`
	NotBefore       int64    `json:"nbf"`
	IssuedAt        int64    `json:"iat"`
	TokenID         string   `json:"jti"`
	TokenVersion    int      `json:"jwt_ver"`
	Subject         string   `json:"sub"`
	ApplicationName string   `json:"application_name,omitempty"`
	IdentityType    string   `json:"identity_type,omitempty"`
	AuthMethods     []string `json:"amr"`
	AuthTime        *int64   `json:"auth_time,omitempty"`
	AuthorizedParty string   `json:"azp,omitempty"`
	AccountID       string   `json:"account_id,omitempty"`
	Audience        []string `json:"aud"`
	Scope           string   `json:"scope,omitempty"`
	DataRegion      string   `json:"data_region,omitempty"`
}

// IsApplication reports whether the token was issued to a service via client
// credentials rather than to a person.
func (c *AccessTokenClaims) IsApplication() bool {
	return c.IdentityType == IdentityTypeApplication
}

// VerifiedToken pairs a raw bearer token with its decoded claims. Instances
// are only produced by successful verification and are never mutated after.
type VerifiedToken struct {
	Token  string            `json:"token"`
	Claims AccessTokenClaims `json:"token_data"`
}

// UserProfile is the identity provider's userinfo response for a user token.
type UserProfile struct {
	Issuer        string `json:"iss"`
	Subject       string `json:"sub"`
	IdentityType  string `json:"identity_type"`
	GivenName     string `json:"given_name,omitempty"`
	FamilyName    string `json:"family_name,omitempty"`
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified"`
	AccountID     string `json:"account_id,omitempty"`
	Locale        string `json:"locale,omitempty"`
	Picture       string `json:"picture,omitempty"`
	DataRegion    string `json:"data_region,omitempty"`
	UpdatedAt     int64  `json:"updated_at"`
}

// ApplicationIdentity describes a service token, derived purely from claims.
type ApplicationIdentity struct {
	Service string `json:"service"`
	Subject string `json:"sub"`
}

// ResolvedIdentity combines a verified token with exactly one of a user
// profile or an application identity.
type ResolvedIdentity struct {
	VerifiedToken
	User *UserProfile         `json:"user_data,omitempty"`
	App  *ApplicationIdentity `json:"app_data,omitempty"`
}

// PrimaryIdentifier returns the user's email for user tokens and the service
// name for application tokens.
func (ri *ResolvedIdentity) PrimaryIdentifier() (string, error) {
	if ri.User != nil {
		return ri.User.Email, nil
	}
	if ri.App != nil {
		return ri.App.Service, nil
	}
	return "", ErrIllegalState
}

// IsUser reports whether the identity resolved to a user profile.
func (ri *ResolvedIdentity) IsUser() bool {
	return ri.User != nil
}
