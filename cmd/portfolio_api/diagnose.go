package main

import (
	"context"
	"fmt"

	"github.com/jonathan/portfolio-backend/internal/config"
	"github.com/jonathan/portfolio-backend/internal/health"
	"github.com/jonathan/portfolio-backend/internal/logging"
	"github.com/jonathan/portfolio-backend/internal/observability"
	"github.com/spf13/cobra"
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Run the health diagnostics without starting the server",
	RunE:  runDiagnose,
}

func init() {
	rootCmd.AddCommand(diagnoseCmd)
}

func runDiagnose(cmd *cobra.Command, _ []string) error {
	settings, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	srv, err := buildServer(ctx, settings, logging.Nop())
	if err != nil {
		return err
	}
	defer srv.Close()

	diag := srv.Health().Diagnose(ctx)
	observability.NewPrinter(cmd.OutOrStdout()).PrintDiagnostics(diag)

	if diag.OverallStatus == health.CheckFail {
		return fmt.Errorf("diagnostics failed")
	}
	return nil
}
