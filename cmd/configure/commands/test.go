package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/benvon/idgate/internal/config"
)

// NewTestCmd creates the test command
func NewTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test identity provider configuration",
		Long:  "Probe the provider's discovery document and JWKS endpoint using the current settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			fmt.Printf("Testing identity provider: %s\n", cfg.IDPBaseURL)

			discoveryURL := strings.TrimSuffix(cfg.IDPBaseURL, "/") + "/.well-known/openid-configuration"
			fmt.Printf("\nTesting discovery endpoint: %s\n", discoveryURL)
			client := &http.Client{Timeout: 10 * time.Second}
			resp, err := client.Get(discoveryURL)
			if err != nil {
				return fmt.Errorf("failed to reach discovery endpoint: %w", err)
			}
			defer func() {
				if err := resp.Body.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close response body: %v\n", err)
				}
			}()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("discovery endpoint returned status: %d", resp.StatusCode)
			}
			fmt.Println("✓ Discovery endpoint is accessible")

			var doc struct {
				JWKSURI string `json:"jwks_uri"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
				return fmt.Errorf("failed to parse discovery document: %w", err)
			}
			if doc.JWKSURI == "" {
				return fmt.Errorf("discovery document has no jwks_uri")
			}

			fmt.Printf("\nTesting JWKS endpoint: %s\n", doc.JWKSURI)
			jwksResp, err := client.Get(doc.JWKSURI)
			if err != nil {
				return fmt.Errorf("failed to reach JWKS endpoint: %w", err)
			}
			defer func() {
				if err := jwksResp.Body.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close response body: %v\n", err)
				}
			}()

			if jwksResp.StatusCode != http.StatusOK {
				return fmt.Errorf("JWKS endpoint returned status: %d", jwksResp.StatusCode)
			}
			fmt.Println("✓ JWKS endpoint is accessible")

			fmt.Println("\nConfiguration looks good.")
			return nil
		},
	}

	return cmd
}
