// Package config provides settings loading and validation for the portfolio API.
//
// Settings are resolved in three layers: built-in defaults, an optional config
// file (JSON, YAML or TOML), and finally environment variables, which always win.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that reads and writes as a Go duration string ("500ms").
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Settings holds every runtime option of the API server.
type Settings struct {
	// Application
	AppName    string `json:"app_name,omitempty" yaml:"app_name,omitempty" toml:"app_name,omitempty" validate:"required"`
	AppVersion string `json:"app_version,omitempty" yaml:"app_version,omitempty" toml:"app_version,omitempty" validate:"required"`
	Debug      bool   `json:"debug,omitempty" yaml:"debug,omitempty" toml:"debug,omitempty"`
	Host       string `json:"host,omitempty" yaml:"host,omitempty" toml:"host,omitempty" validate:"required"`
	Port       int    `json:"port,omitempty" yaml:"port,omitempty" toml:"port,omitempty" validate:"min=1,max=65535"`

	// Security
	SecretKey          string `json:"secret_key,omitempty" yaml:"secret_key,omitempty" toml:"secret_key,omitempty" validate:"required"`
	JWTExpirationHours int    `json:"jwt_expiration_hours,omitempty" yaml:"jwt_expiration_hours,omitempty" toml:"jwt_expiration_hours,omitempty" validate:"min=1"`

	// Data
	DataDir      string   `json:"data_dir,omitempty" yaml:"data_dir,omitempty" toml:"data_dir,omitempty" validate:"required"`
	DataWatch    bool     `json:"data_watch,omitempty" yaml:"data_watch,omitempty" toml:"data_watch,omitempty"`
	CacheEnabled bool     `json:"cache_enabled,omitempty" yaml:"cache_enabled,omitempty" toml:"cache_enabled,omitempty"`
	CacheTTL     Duration `json:"cache_ttl,omitempty" yaml:"cache_ttl,omitempty" toml:"cache_ttl,omitempty" validate:"min=0"`
	CacheMaxSize int      `json:"cache_max_size,omitempty" yaml:"cache_max_size,omitempty" toml:"cache_max_size,omitempty" validate:"min=0"`

	// HTTP
	CORSOrigins []string `json:"cors_origins,omitempty" yaml:"cors_origins,omitempty" toml:"cors_origins,omitempty" validate:"min=1,dive,required"`

	// Logging
	LogLevel         string `json:"log_level,omitempty" yaml:"log_level,omitempty" toml:"log_level,omitempty" validate:"oneof=debug info warn warning error DEBUG INFO WARN WARNING ERROR"`
	LogDir           string `json:"log_dir,omitempty" yaml:"log_dir,omitempty" toml:"log_dir,omitempty"`
	LogCompleteFile  string `json:"log_complete_file,omitempty" yaml:"log_complete_file,omitempty" toml:"log_complete_file,omitempty"`
	LogSessionPrefix string `json:"log_session_prefix,omitempty" yaml:"log_session_prefix,omitempty" toml:"log_session_prefix,omitempty"`

	// Database
	DatabaseURL string   `json:"database_url,omitempty" yaml:"database_url,omitempty" toml:"database_url,omitempty" validate:"omitempty,url"`
	DBPoolSize  int      `json:"db_pool_size,omitempty" yaml:"db_pool_size,omitempty" toml:"db_pool_size,omitempty" validate:"min=1"`
	DBTimeout   Duration `json:"db_timeout,omitempty" yaml:"db_timeout,omitempty" toml:"db_timeout,omitempty" validate:"min=0"`

	// AI providers
	PrimaryLLMProvider string `json:"primary_llm_provider,omitempty" yaml:"primary_llm_provider,omitempty" toml:"primary_llm_provider,omitempty" validate:"oneof=openai anthropic groq"`
	OpenAIAPIKey       string `json:"openai_api_key,omitempty" yaml:"openai_api_key,omitempty" toml:"openai_api_key,omitempty"`
	OpenAIModel        string `json:"openai_model,omitempty" yaml:"openai_model,omitempty" toml:"openai_model,omitempty"`
	AnthropicAPIKey    string `json:"anthropic_api_key,omitempty" yaml:"anthropic_api_key,omitempty" toml:"anthropic_api_key,omitempty"`
	AnthropicModel     string `json:"anthropic_model,omitempty" yaml:"anthropic_model,omitempty" toml:"anthropic_model,omitempty"`
	GroqAPIKey         string `json:"groq_api_key,omitempty" yaml:"groq_api_key,omitempty" toml:"groq_api_key,omitempty"`
	GroqModel          string `json:"groq_model,omitempty" yaml:"groq_model,omitempty" toml:"groq_model,omitempty"`
}

// Defaults returns the built-in settings. SecretKey has no default.
func Defaults() Settings {
	return Settings{
		AppName:            "Portfolio Go API Backend",
		AppVersion:         "1.0.0",
		Debug:              true,
		Host:               "0.0.0.0",
		Port:               8000,
		JWTExpirationHours: 24,
		DataDir:            "./data",
		CacheEnabled:       true,
		CORSOrigins:        []string{"*"},
		LogLevel:           "debug",
		LogDir:             "logs",
		LogCompleteFile:    "complete.log",
		LogSessionPrefix:   "session",
		DBPoolSize:         10,
		DBTimeout:          Duration(500 * time.Millisecond),
		PrimaryLLMProvider: "openai",
		OpenAIModel:        "gpt-4o-mini",
		AnthropicModel:     "claude-3-haiku-20240307",
		GroqModel:          "llama-3.1-8b-instant",
	}
}

// Load resolves settings from defaults, the optional config file at path, and
// the environment, then validates the result.
func Load(path string) (*Settings, error) {
	settings, err := Resolve(path)
	if err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// Resolve is Load without validation, for commands that only inspect settings.
func Resolve(path string) (*Settings, error) {
	base := Defaults()
	if path != "" {
		file, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		base = file.MergeWithDefaults(base)
	}

	settings, err := FromEnv(base)
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// LoadFile loads settings from a JSON, YAML or TOML file, chosen by extension.
// Fields absent from the file stay at their zero value.
func LoadFile(path string) (*Settings, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var s Settings
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, &s)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &s)
	case ".toml":
		err = toml.Unmarshal(data, &s)
	default:
		return nil, fmt.Errorf("unsupported config file extension %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &s, nil
}

// MergeWithDefaults returns a copy of s with zero-valued fields filled from defaults.
func (s *Settings) MergeWithDefaults(defaults Settings) Settings {
	result := *s

	mergeString(&result.AppName, defaults.AppName)
	mergeString(&result.AppVersion, defaults.AppVersion)
	mergeString(&result.Host, defaults.Host)
	mergeString(&result.SecretKey, defaults.SecretKey)
	mergeString(&result.DataDir, defaults.DataDir)
	mergeString(&result.LogLevel, defaults.LogLevel)
	mergeString(&result.LogDir, defaults.LogDir)
	mergeString(&result.LogCompleteFile, defaults.LogCompleteFile)
	mergeString(&result.LogSessionPrefix, defaults.LogSessionPrefix)
	mergeString(&result.DatabaseURL, defaults.DatabaseURL)
	mergeString(&result.PrimaryLLMProvider, defaults.PrimaryLLMProvider)
	mergeString(&result.OpenAIAPIKey, defaults.OpenAIAPIKey)
	mergeString(&result.OpenAIModel, defaults.OpenAIModel)
	mergeString(&result.AnthropicAPIKey, defaults.AnthropicAPIKey)
	mergeString(&result.AnthropicModel, defaults.AnthropicModel)
	mergeString(&result.GroqAPIKey, defaults.GroqAPIKey)
	mergeString(&result.GroqModel, defaults.GroqModel)

	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.JWTExpirationHours == 0 {
		result.JWTExpirationHours = defaults.JWTExpirationHours
	}
	if result.CacheMaxSize == 0 {
		result.CacheMaxSize = defaults.CacheMaxSize
	}
	if result.DBPoolSize == 0 {
		result.DBPoolSize = defaults.DBPoolSize
	}
	if result.CacheTTL == 0 {
		result.CacheTTL = defaults.CacheTTL
	}
	if result.DBTimeout == 0 {
		result.DBTimeout = defaults.DBTimeout
	}
	if len(result.CORSOrigins) == 0 {
		result.CORSOrigins = defaults.CORSOrigins
	}

	// A file cannot tell "false" from "unset", so booleans only turn on here.
	// Environment variables can still switch them off.
	result.Debug = result.Debug || defaults.Debug
	result.DataWatch = result.DataWatch || defaults.DataWatch
	result.CacheEnabled = result.CacheEnabled || defaults.CacheEnabled

	return result
}

func mergeString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

// Validate checks struct constraints.
func (s *Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return &ValidationError{Cause: err}
	}
	return nil
}

// Validation returns soft configuration warnings. The server still starts when
// any are present.
func (s *Settings) Validation() []string {
	var warnings []string
	if len(s.ConfiguredProviders()) == 0 {
		warnings = append(warnings, "No LLM provider API keys configured")
	}
	if info, err := os.Stat(s.DataDir); err != nil || !info.IsDir() {
		warnings = append(warnings, fmt.Sprintf("Data directory does not exist: %s", s.DataDir))
	}
	return warnings
}

// Provider describes one configured LLM provider.
type Provider struct {
	Name  string `json:"provider"`
	Model string `json:"model"`
}

// ConfiguredProviders lists providers with an API key, primary provider first.
func (s *Settings) ConfiguredProviders() []Provider {
	all := []struct {
		name, key, model string
	}{
		{"groq", s.GroqAPIKey, s.GroqModel},
		{"openai", s.OpenAIAPIKey, s.OpenAIModel},
		{"anthropic", s.AnthropicAPIKey, s.AnthropicModel},
	}

	var out []Provider
	for _, p := range all {
		if p.key == "" {
			continue
		}
		if p.name == s.PrimaryLLMProvider {
			out = append([]Provider{{Name: p.name, Model: p.model}}, out...)
			continue
		}
		out = append(out, Provider{Name: p.name, Model: p.model})
	}
	return out
}

// Addr returns the host:port listen address.
func (s *Settings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ValidationError wraps struct validation failures.
type ValidationError struct {
	Cause error
}

func (e *ValidationError) Error() string {
	var errs validator.ValidationErrors
	if errors.As(e.Cause, &errs) {
		parts := make([]string, 0, len(errs))
		for _, fe := range errs {
			parts = append(parts, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
		}
		return "config error: " + strings.Join(parts, "; ")
	}
	return "config error: " + e.Cause.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

var validate = validator.New(validator.WithRequiredStructEnabled())
