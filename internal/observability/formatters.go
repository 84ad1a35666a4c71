// Package observability provides formatted output utilities for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/portfolio-backend/internal/config"
	"github.com/jonathan/portfolio-backend/internal/health"
	"github.com/jonathan/portfolio-backend/internal/schemas"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted CLI output
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// mask hides all but the last four characters of a secret.
func mask(secret string) string {
	switch {
	case secret == "":
		return "(not set)"
	case len(secret) <= 4:
		return "****"
	default:
		return "****" + secret[len(secret)-4:]
	}
}

// PrintSettings outputs a summary of the resolved settings with secrets masked.
func (p *Printer) PrintSettings(s *config.Settings) {
	if s == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("App:      %s v%s\n", s.AppName, s.AppVersion))
	sb.WriteString(fmt.Sprintf("Listen:   %s\n", s.Addr()))
	sb.WriteString(fmt.Sprintf("Debug:    %t\n", s.Debug))
	sb.WriteString(fmt.Sprintf("Data dir: %s\n", s.DataDir))
	sb.WriteString(fmt.Sprintf("Watch:    %t\n", s.DataWatch))
	sb.WriteString(fmt.Sprintf("Cache:    enabled=%t ttl=%s max=%d\n", s.CacheEnabled, s.CacheTTL.Std(), s.CacheMaxSize))
	sb.WriteString(fmt.Sprintf("CORS:     %s\n", strings.Join(s.CORSOrigins, ", ")))
	sb.WriteString(fmt.Sprintf("Logging:  %s -> %s\n", s.LogLevel, s.LogDir))
	sb.WriteString(fmt.Sprintf("Secret:   %s\n", mask(s.SecretKey)))
	if s.DatabaseURL != "" {
		sb.WriteString(fmt.Sprintf("Database: configured (pool %d)\n", s.DBPoolSize))
	} else {
		sb.WriteString("Database: not configured\n")
	}
	sb.WriteString("\n")

	providers := s.ConfiguredProviders()
	if len(providers) == 0 {
		sb.WriteString("LLM providers: none")
	} else {
		sb.WriteString(fmt.Sprintf("LLM providers (primary %s):\n", s.PrimaryLLMProvider))
		for _, pr := range providers {
			sb.WriteString(fmt.Sprintf("  • %s (%s)\n", pr.Name, pr.Model))
		}
	}

	p.printBox("SETTINGS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintWarnings outputs soft configuration warnings. Nothing is printed when there are none.
func (p *Printer) PrintWarnings(warnings []string) {
	if len(warnings) == 0 {
		return
	}

	var sb strings.Builder
	for i, w := range warnings {
		sb.WriteString(fmt.Sprintf("⚠ %s", w))
		if i < len(warnings)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("CONFIGURATION WARNINGS", sb.String())
}

// statusIcon maps a check or file status to a one-character marker.
func statusIcon(status string) string {
	switch status {
	case health.CheckPass, schemas.FileValid:
		return "✓"
	case health.CheckWarning, schemas.FileMissing:
		return "!"
	default:
		return "✗"
	}
}

// PrintDiagnostics outputs each diagnostic check and the overall status.
func (p *Printer) PrintDiagnostics(d health.Diagnostics) {
	var sb strings.Builder
	for _, c := range d.Checks {
		sb.WriteString(fmt.Sprintf("%s %-16s %s\n", statusIcon(c.Status), c.Name, c.Status))
		if c.Details != "" {
			sb.WriteString(fmt.Sprintf("    %s\n", c.Details))
		}
	}
	sb.WriteString(fmt.Sprintf("\nOverall: %s", strings.ToUpper(d.OverallStatus)))

	p.printBox("DIAGNOSTICS", sb.String())
}

// PrintSchemaReport outputs the validation result of each data document.
func (p *Printer) PrintSchemaReport(report schemas.Report) {
	if len(report.Results) == 0 {
		return
	}

	var sb strings.Builder
	for i, r := range report.Results {
		sb.WriteString(fmt.Sprintf("%s %-20s %s\n", statusIcon(r.Status), r.File, r.Status))
		if r.Detail != "" {
			sb.WriteString(fmt.Sprintf("    %s\n", r.Detail))
		}

		count := min(len(r.Errors), maxItemsToShow)
		for _, fe := range r.Errors[:count] {
			sb.WriteString(fmt.Sprintf("    • %s: %s\n", fe.Field, fe.Message))
		}
		if len(r.Errors) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("    ... and %d more\n", len(r.Errors)-maxItemsToShow))
		}
		if i < len(report.Results)-1 && len(r.Errors) > 0 {
			sb.WriteString("\n")
		}
	}

	sb.WriteString(fmt.Sprintf("\nValid: %d  Invalid: %d  Missing: %d",
		report.Count(schemas.FileValid),
		report.Count(schemas.FileInvalid)+report.Count(schemas.FileReadFail),
		report.Count(schemas.FileMissing)))

	p.printBox("DATA SCHEMA VALIDATION", sb.String())
}
