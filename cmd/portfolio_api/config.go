package main

import (
	"fmt"

	"github.com/jonathan/portfolio-backend/internal/config"
	"github.com/jonathan/portfolio-backend/internal/observability"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the resolved settings",
	Long:  "Resolves settings from defaults, the optional --config file and the environment, prints them with secrets masked, and reports warnings and validation errors.",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, _ []string) error {
	settings, err := config.Resolve(configPath)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	printer := observability.NewPrinter(cmd.OutOrStdout())
	printer.PrintSettings(settings)
	printer.PrintWarnings(settings.Validation())

	if err := settings.Validate(); err != nil {
		return err
	}
	return nil
}
