package main

import (
	"fmt"

	"github.com/jonathan/portfolio-backend/internal/config"
	"github.com/jonathan/portfolio-backend/internal/server"
	"github.com/spf13/cobra"
)

var tokenSubject string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print an admin bearer token",
	Long:  "Issues an admin token signed with SECRET_KEY for the protected endpoints, such as POST /api/v1/data/cache/clear.",
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "admin", "Subject recorded in the token")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	settings, err := config.Resolve(configPath)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	jwtConfig, err := settings.JWT()
	if err != nil {
		return err
	}

	token, err := server.NewJWTService(jwtConfig).GenerateToken(tokenSubject)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
