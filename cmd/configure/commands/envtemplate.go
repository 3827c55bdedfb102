package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/benvon/idgate/internal/config"
)

// NewEnvTemplateCmd creates the env-template command
func NewEnvTemplateCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "env-template",
		Short: "Generate a .env template",
		Long:  "Emit a .env template listing every environment variable the service reads, with defaults and comments",
		RunE: func(cmd *cobra.Command, args []string) error {
			var b strings.Builder
			b.WriteString("# idgate environment template\n")
			b.WriteString("# Uncomment and fill in values as needed.\n\n")
			for _, v := range config.Template() {
				fmt.Fprintf(&b, "# %s\n", v.Comment)
				if v.Default == "" {
					fmt.Fprintf(&b, "%s=\n\n", v.Name)
				} else {
					fmt.Fprintf(&b, "# %s=%s\n\n", v.Name, v.Default)
				}
			}

			if output == "" {
				fmt.Print(b.String())
				return nil
			}
			if err := os.WriteFile(output, []byte(b.String()), 0o644); err != nil {
				return fmt.Errorf("failed to write template: %w", err)
			}
			fmt.Printf("Wrote %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write template to a file instead of stdout")
	return cmd
}
