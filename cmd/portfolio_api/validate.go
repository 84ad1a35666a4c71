package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jonathan/portfolio-backend/internal/config"
	"github.com/jonathan/portfolio-backend/internal/observability"
	"github.com/jonathan/portfolio-backend/internal/schemas"
	"github.com/spf13/cobra"
)

var (
	validateDataDir string
	validateJSON    bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate data files against their JSON schemas",
	Long:  "Validates page.json, intro.json, layout.json, projects.json, jobs.json and certificates.json in the data directory. Missing files are reported but do not fail validation.",
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().StringVarP(&validateDataDir, "data-dir", "d", "", "Data directory (defaults to DATA_DIR)")
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "Print the report as JSON")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, _ []string) error {
	dir := validateDataDir
	if dir == "" {
		settings, err := config.Resolve(configPath)
		if err != nil {
			return fmt.Errorf("failed to load settings: %w", err)
		}
		dir = settings.DataDir
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("data directory not found: %s", dir)
	}

	report := schemas.ValidateFS(os.DirFS(dir))

	if validateJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
	} else {
		observability.NewPrinter(cmd.OutOrStdout()).PrintSchemaReport(report)
	}

	if !report.Valid() {
		return fmt.Errorf("data validation failed: %d invalid file(s)",
			report.Count(schemas.FileInvalid)+report.Count(schemas.FileReadFail))
	}
	return nil
}
