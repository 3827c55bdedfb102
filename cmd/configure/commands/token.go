package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/benvon/idgate/internal/config"
	"github.com/benvon/idgate/internal/services/oidc"
)

// NewTokenCmd creates the token command
func NewTokenCmd() *cobra.Command {
	var clientSecret string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Fetch and verify a client-credentials token",
		Long:  "Request an access token via the client-credentials grant, run it through the local verification pipeline and print the decoded claims",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clientSecret == "" {
				clientSecret = os.Getenv("IDGATE_CLIENT_SECRET")
			}
			if clientSecret == "" {
				return fmt.Errorf("--client-secret or IDGATE_CLIENT_SECRET is required")
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cfg.ClientID == "" {
				return fmt.Errorf("IDGATE_CLIENT_ID is required")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			ccConfig := clientcredentials.Config{
				ClientID:     cfg.ClientID,
				ClientSecret: clientSecret,
				TokenURL:     strings.TrimSuffix(cfg.IDPBaseURL, "/") + "/oauth/token",
				Scopes:       strings.Fields(cfg.Scopes),
			}
			token, err := ccConfig.Token(ctx)
			if err != nil {
				return fmt.Errorf("failed to fetch token: %w", err)
			}
			fmt.Println("✓ Token obtained")

			resolver, err := oidc.NewKeyResolver(ctx, cfg.IDPBaseURL)
			if err != nil {
				return fmt.Errorf("failed to load signing keys: %w", err)
			}
			verifier, err := oidc.NewVerifier(resolver, oidc.VerifierConfig{
				BaseURL:        cfg.IDPBaseURL,
				ClientID:       cfg.ClientID,
				VerifyAudience: cfg.VerifyAudience,
				ExtraAudiences: cfg.ExtraAudiences,
				AutoError:      true,
			})
			if err != nil {
				return fmt.Errorf("failed to build verifier: %w", err)
			}

			verified, err := verifier.Verify(ctx, token.AccessToken)
			if err != nil {
				return fmt.Errorf("token failed local verification: %w", err)
			}
			fmt.Println("✓ Token verified")

			out, err := json.MarshalIndent(verified.Claims, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode claims: %w", err)
			}
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&clientSecret, "client-secret", "", "OAuth client secret (or IDGATE_CLIENT_SECRET)")
	return cmd
}
