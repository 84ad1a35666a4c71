// Package main provides the entry point for the portfolio backend HTTP API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "portfolio_api",
	Short:         "Portfolio backend HTTP API server",
	Long:          "Serves portfolio content (profile, projects, experience, certificates) from JSON files, with a keyword assistant, health diagnostics and data validation.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a JSON, YAML or TOML settings file")
}

// loadEnvFiles loads .env.local and .env if present. Values already in the
// environment are kept, and .env.local wins over .env.
func loadEnvFiles() {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")
}

func main() {
	loadEnvFiles()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
