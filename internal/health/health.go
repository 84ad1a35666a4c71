// Package health reports service status, runtime information and diagnostics.
package health

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/jonathan/portfolio-backend/internal/assistant"
	"github.com/jonathan/portfolio-backend/internal/config"
	"github.com/jonathan/portfolio-backend/internal/portfolio"
	"github.com/jonathan/portfolio-backend/internal/schemas"
	"go.uber.org/zap"
)

// Service status values.
const (
	StatusOperational   = "operational"
	StatusError         = "error"
	StatusDisabled      = "disabled"
	StatusNotConfigured = "not_configured"
)

// Check status values.
const (
	CheckPass    = "pass"
	CheckWarning = "warning"
	CheckFail    = "fail"
)

// DataSource provides data directory statistics.
type DataSource interface {
	Stats(ctx context.Context) (portfolio.Stats, error)
}

// Assistant reports assistant availability.
type Assistant interface {
	Status() assistant.Status
	ProviderCount() int
}

// Database reports database connectivity.
type Database interface {
	Status(ctx context.Context) string
}

// SchemaValidator validates the data documents.
type SchemaValidator func() schemas.Report

// Options configures a Service. Database and Schemas may be nil.
type Options struct {
	Settings  *config.Settings
	Data      DataSource
	Assistant Assistant
	Database  Database
	Schemas   SchemaValidator
	Logger    *zap.Logger
}

// Service assembles health reports.
type Service struct {
	settings  *config.Settings
	data      DataSource
	assistant Assistant
	database  Database
	schemas   SchemaValidator
	logger    *zap.Logger
	start     time.Time
	now       func() time.Time
}

// NewService creates a Service. Uptime is measured from this call.
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		settings:  opts.Settings,
		data:      opts.Data,
		assistant: opts.Assistant,
		database:  opts.Database,
		schemas:   opts.Schemas,
		logger:    logger,
		start:     time.Now(),
		now:       time.Now,
	}
}

// Uptime returns seconds since the service was created.
func (s *Service) Uptime() float64 {
	return s.now().Sub(s.start).Seconds()
}

// Report is the detailed health report.
type Report struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Uptime    float64           `json:"uptime"`
	System    SystemInfo        `json:"system"`
	Services  map[string]string `json:"services"`
	Data      *DataStatus       `json:"data,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// SystemInfo describes the running process.
type SystemInfo struct {
	GoVersion    string     `json:"go_version"`
	OS           string     `json:"os"`
	Arch         string     `json:"arch"`
	NumCPU       int        `json:"num_cpu"`
	NumGoroutine int        `json:"num_goroutine"`
	Memory       MemoryInfo `json:"memory"`
}

// MemoryInfo is a subset of runtime.MemStats, in bytes.
type MemoryInfo struct {
	Alloc      uint64 `json:"alloc"`
	TotalAlloc uint64 `json:"total_alloc"`
	Sys        uint64 `json:"sys"`
	HeapInUse  uint64 `json:"heap_in_use"`
	NumGC      uint32 `json:"num_gc"`
}

// DataStatus summarizes loaded data.
type DataStatus struct {
	DataDirectory     string   `json:"data_directory"`
	CachedFiles       []string `json:"cached_files"`
	ProjectsCount     int      `json:"projects_count"`
	ExperienceCount   int      `json:"experience_count"`
	CertificatesCount int      `json:"certificates_count"`
}

// Health returns the detailed report. A failing data source degrades the
// report to unhealthy rather than returning an error.
func (s *Service) Health(ctx context.Context) Report {
	report := Report{
		Status:    "healthy",
		Timestamp: s.now().UTC(),
		Version:   s.settings.AppVersion,
		Uptime:    s.Uptime(),
		System:    SystemStatus(),
		Services:  s.Services(ctx),
	}

	stats, err := s.data.Stats(ctx)
	if err != nil {
		s.logger.Warn("Could not get data status", zap.Error(err))
		report.Status = "unhealthy"
		report.Error = "Data status unavailable"
		return report
	}
	report.Data = &DataStatus{
		DataDirectory:     stats.DataDirectory,
		CachedFiles:       stats.CachedFiles,
		ProjectsCount:     stats.ProjectsCount,
		ExperienceCount:   stats.ExperienceCount,
		CertificatesCount: stats.CertificatesCount,
	}
	return report
}

// SystemStatus reads Go runtime information.
func SystemStatus() SystemInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return SystemInfo{
		GoVersion:    runtime.Version(),
		OS:           runtime.GOOS,
		Arch:         runtime.GOARCH,
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
		Memory: MemoryInfo{
			Alloc:      m.Alloc,
			TotalAlloc: m.TotalAlloc,
			Sys:        m.Sys,
			HeapInUse:  m.HeapInuse,
			NumGC:      m.NumGC,
		},
	}
}

// Services reports the status of each dependency.
func (s *Service) Services(ctx context.Context) map[string]string {
	services := map[string]string{}

	if _, err := s.data.Stats(ctx); err != nil {
		s.logger.Warn("Data service check failed", zap.Error(err))
		services["data_service"] = StatusError
	} else {
		services["data_service"] = StatusOperational
	}

	if s.assistant != nil {
		services["ai_service"] = s.assistant.Status().Status
	} else {
		services["ai_service"] = StatusNotConfigured
	}

	if s.database != nil {
		services["database"] = s.database.Status(ctx)
	} else {
		services["database"] = StatusNotConfigured
	}

	if s.settings.CacheEnabled {
		services["cache"] = StatusOperational
	} else {
		services["cache"] = StatusDisabled
	}

	return services
}

// Status is the basic application status.
type Status struct {
	Version     string  `json:"version"`
	Debug       bool    `json:"debug"`
	Host        string  `json:"host"`
	Port        int     `json:"port"`
	Uptime      float64 `json:"uptime"`
	Environment string  `json:"environment"`
}

// AppStatus returns basic application status.
func (s *Service) AppStatus() Status {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	return Status{
		Version:     s.settings.AppVersion,
		Debug:       s.settings.Debug,
		Host:        s.settings.Host,
		Port:        s.settings.Port,
		Uptime:      s.Uptime(),
		Environment: env,
	}
}

// ConfigStatus is the non-sensitive configuration summary.
type ConfigStatus struct {
	AppName               string   `json:"app_name"`
	Version               string   `json:"version"`
	Debug                 bool     `json:"debug"`
	CORSOrigins           []string `json:"cors_origins"`
	DataDirectory         string   `json:"data_directory"`
	LogLevel              string   `json:"log_level"`
	CacheEnabled          bool     `json:"cache_enabled"`
	AIProvidersConfigured int      `json:"ai_providers_configured"`
}

// Config returns configuration without secrets.
func (s *Service) Config() ConfigStatus {
	return ConfigStatus{
		AppName:               s.settings.AppName,
		Version:               s.settings.AppVersion,
		Debug:                 s.settings.Debug,
		CORSOrigins:           s.settings.CORSOrigins,
		DataDirectory:         s.settings.DataDir,
		LogLevel:              s.settings.LogLevel,
		CacheEnabled:          s.settings.CacheEnabled,
		AIProvidersConfigured: s.providerCount(),
	}
}

func (s *Service) providerCount() int {
	if s.assistant == nil {
		return len(s.settings.ConfiguredProviders())
	}
	return s.assistant.ProviderCount()
}

// Check is one diagnostic result.
type Check struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Details string `json:"details"`
}

// Diagnostics is the result of running every check.
type Diagnostics struct {
	Timestamp     time.Time `json:"timestamp"`
	Checks        []Check   `json:"checks"`
	OverallStatus string    `json:"overall_status"`
}

// Diagnose runs every check. Overall status is fail when any check fails;
// warnings do not fail the run.
func (s *Service) Diagnose(ctx context.Context) Diagnostics {
	checks := []Check{
		s.checkDataDir(),
		s.checkConfig(),
		s.checkProviders(),
		s.checkServices(ctx),
	}
	if s.schemas != nil {
		checks = append(checks, s.checkSchemas())
	}

	overall := CheckPass
	for _, c := range checks {
		if c.Status == CheckFail {
			overall = CheckFail
			break
		}
	}

	return Diagnostics{
		Timestamp:     s.now().UTC(),
		Checks:        checks,
		OverallStatus: overall,
	}
}

func (s *Service) checkDataDir() Check {
	status := CheckPass
	if info, err := os.Stat(s.settings.DataDir); err != nil || !info.IsDir() {
		status = CheckFail
	}
	return Check{
		Name:    "Data Directory",
		Status:  status,
		Details: fmt.Sprintf("Directory: %s", s.settings.DataDir),
	}
}

func (s *Service) checkConfig() Check {
	status := CheckPass
	if err := s.settings.Validate(); err != nil {
		status = CheckFail
	}
	return Check{
		Name:    "Configuration",
		Status:  status,
		Details: fmt.Sprintf("App: %s v%s", s.settings.AppName, s.settings.AppVersion),
	}
}

func (s *Service) checkProviders() Check {
	n := s.providerCount()
	status := CheckPass
	if n == 0 {
		status = CheckWarning
	}
	return Check{
		Name:    "AI Providers",
		Status:  status,
		Details: fmt.Sprintf("Configured providers: %d", n),
	}
}

func (s *Service) checkServices(ctx context.Context) Check {
	services := s.Services(ctx)
	operational := 0
	for _, st := range services {
		if st == StatusOperational {
			operational++
		}
	}
	status := CheckPass
	if operational == 0 {
		status = CheckWarning
	}
	return Check{
		Name:    "Services",
		Status:  status,
		Details: fmt.Sprintf("Operational services: %d/%d", operational, len(services)),
	}
}

func (s *Service) checkSchemas() Check {
	report := s.schemas()
	status := CheckPass
	if !report.Valid() {
		status = CheckFail
	}
	return Check{
		Name:   "Data Schemas",
		Status: status,
		Details: fmt.Sprintf("Valid: %d, invalid: %d, missing: %d",
			report.Count(schemas.FileValid),
			report.Count(schemas.FileInvalid)+report.Count(schemas.FileReadFail),
			report.Count(schemas.FileMissing)),
	}
}
