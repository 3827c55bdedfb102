package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/benvon/idgate/cmd/configure/commands"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "idgate-configure",
		Short: "Configuration tool for idgate",
		Long:  "CLI tool for generating settings templates and testing identity provider connectivity",
	}

	rootCmd.AddCommand(commands.NewEnvTemplateCmd())
	rootCmd.AddCommand(commands.NewTestCmd())
	rootCmd.AddCommand(commands.NewTokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
