package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EndpointConfig is a rate limit tier for one route or route prefix.
type EndpointConfig struct {
	Name   string        // Tier name; requests in the same tier share a bucket per client
	Path   string        // Exact path, or a prefix when it ends with "/"
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	IdleTTL         time.Duration // Buckets unused this long are dropped
	Whitelist       map[string]bool
	Blacklist       map[string]bool
	EndpointConfigs []EndpointConfig
}

// DefaultConfig returns the limits used when no environment overrides are set.
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		DefaultLimit:    600,
		DefaultWindow:   time.Minute,
		CleanupInterval: 5 * time.Minute,
		IdleTTL:         time.Hour,
		Whitelist:       make(map[string]bool),
		Blacklist:       make(map[string]bool),
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// LoadConfig loads rate limiting configuration from environment variables.
//
//	RATE_LIMIT_ENABLED           (default true)
//	RATE_LIMIT_DEFAULT_LIMIT     requests per window for untiered routes (600)
//	RATE_LIMIT_DEFAULT_WINDOW    (1m)
//	RATE_LIMIT_AI_LIMIT          chat/classify requests per window (30)
//	RATE_LIMIT_AI_WINDOW         (1m)
//	RATE_LIMIT_CLEANUP_INTERVAL  (5m)
//	RATE_LIMIT_WHITELIST         comma-separated client IPs
//	RATE_LIMIT_BLACKLIST         comma-separated client IPs
func LoadConfig() *Config {
	cfg := DefaultConfig()
	cfg.Enabled = getEnvBool("RATE_LIMIT_ENABLED", true)
	if !cfg.Enabled {
		return &Config{Enabled: false}
	}

	cfg.DefaultLimit = getEnvInt("RATE_LIMIT_DEFAULT_LIMIT", cfg.DefaultLimit)
	cfg.DefaultWindow = getEnvDuration("RATE_LIMIT_DEFAULT_WINDOW", cfg.DefaultWindow)
	cfg.CleanupInterval = getEnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", cfg.CleanupInterval)
	cfg.Whitelist = parseIPList(getEnvString("RATE_LIMIT_WHITELIST", ""))
	cfg.Blacklist = parseIPList(getEnvString("RATE_LIMIT_BLACKLIST", ""))

	aiLimit := getEnvInt("RATE_LIMIT_AI_LIMIT", 30)
	aiWindow := getEnvDuration("RATE_LIMIT_AI_WINDOW", time.Minute)
	for i := range cfg.EndpointConfigs {
		if cfg.EndpointConfigs[i].Name == TierAI {
			cfg.EndpointConfigs[i].Limit = aiLimit
			cfg.EndpointConfigs[i].Window = aiWindow
		}
	}

	return cfg
}

// Tier names.
const (
	TierAI    = "ai"
	TierAdmin = "admin"
	TierData  = "data"
)

// DefaultEndpointConfigs returns the per-route tiers. The assistant endpoints
// get the strictest budget; cache administration is rarer still.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		{Name: TierAI, Path: "/api/v1/ai/chat", Method: "POST", Limit: 30, Window: time.Minute, Burst: 5},
		{Name: TierAI, Path: "/api/v1/ai/classify", Method: "POST", Limit: 30, Window: time.Minute, Burst: 5},
		{Name: TierAdmin, Path: "/api/v1/data/cache/clear", Method: "POST", Limit: 10, Window: time.Minute, Burst: 2},
		{Name: TierData, Path: "/api/v1/data/", Method: "GET", Limit: 300, Window: time.Minute, Burst: 60},
	}
}

// getEnvString returns an environment variable or a default value.
func getEnvString(key string, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns an environment variable as int or a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool returns an environment variable as bool or a default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvDuration returns an environment variable as duration or a default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// parseIPList parses a comma-separated list of IP addresses.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}
