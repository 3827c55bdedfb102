package models

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestPrimaryIdentifier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		identity ResolvedIdentity
		want     string
		wantErr  error
	}{
		{
			name: "user identity returns email",
			identity: ResolvedIdentity{
				User: &UserProfile{Subject: "u1", Email: "u1@example.com", EmailVerified: true},
			},
			want: "u1@example.com",
		},
		{
			name: "application identity returns service",
			identity: ResolvedIdentity{
				App: &ApplicationIdentity{Service: "billing-svc", Subject: "client-42"},
			},
			want: "billing-svc",
		},
		{
			name:     "neither populated is an illegal state",
			identity: ResolvedIdentity{},
			wantErr:  ErrIllegalState,
		},
		{
			name: "user wins when both are populated",
			identity: ResolvedIdentity{
				User: &UserProfile{Email: "u1@example.com"},
				App:  &ApplicationIdentity{Service: "billing-svc"},
			},
			want: "u1@example.com",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := tt.identity.PrimaryIdentifier()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("PrimaryIdentifier failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestIsApplication(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		identityType string
		want         bool
	}{
		{name: "application type", identityType: IdentityTypeApplication, want: true},
		{name: "user type", identityType: IdentityTypeUser, want: false},
		{name: "absent type defaults to user", identityType: "", want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			claims := AccessTokenClaims{IdentityType: tt.identityType}
			if got := claims.IsApplication(); got != tt.want {
				t.Errorf("IsApplication() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolvedIdentityJSON_OmitsEmptySide(t *testing.T) {
	t.Parallel()

	identity := ResolvedIdentity{
		VerifiedToken: VerifiedToken{Token: "raw", Claims: AccessTokenClaims{Subject: "u1"}},
		User:          &UserProfile{Subject: "u1", Email: "u1@example.com", EmailVerified: true},
	}

	out, err := json.Marshal(&identity)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if strings.Contains(string(out), "app_data") {
		t.Errorf("expected app_data to be omitted for a user identity: %s", out)
	}
	if !strings.Contains(string(out), "user_data") {
		t.Errorf("expected user_data to be present: %s", out)
	}
}
