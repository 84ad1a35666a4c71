package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// FromEnv overlays environment variables on base. Unset or empty variables keep
// the base value; malformed numbers, booleans and durations are errors.
func FromEnv(base Settings) (Settings, error) {
	s := base
	var errs []string

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("invalid %s: %v", key, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("invalid %s: %v", key, err))
				return
			}
			*dst = b
		}
	}
	duration := func(key string, dst *Duration) {
		if v, ok := lookup(key); ok {
			d, err := parseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("invalid %s: %v", key, err))
				return
			}
			*dst = Duration(d)
		}
	}

	str("APP_NAME", &s.AppName)
	str("APP_VERSION", &s.AppVersion)
	boolean("DEBUG", &s.Debug)
	str("HOST", &s.Host)
	integer("PORT", &s.Port)

	str("SECRET_KEY", &s.SecretKey)
	integer("JWT_EXPIRATION_HOURS", &s.JWTExpirationHours)

	str("DATA_DIR", &s.DataDir)
	boolean("DATA_WATCH", &s.DataWatch)
	boolean("CACHE_ENABLED", &s.CacheEnabled)
	duration("CACHE_TTL", &s.CacheTTL)
	integer("CACHE_MAX_SIZE", &s.CacheMaxSize)

	if v, ok := lookup("CORS_ORIGINS"); ok {
		s.CORSOrigins = parseList(v)
	}

	str("LOG_LEVEL", &s.LogLevel)
	str("LOG_DIR", &s.LogDir)
	str("LOG_COMPLETE_FILE", &s.LogCompleteFile)
	str("LOG_SESSION_PREFIX", &s.LogSessionPrefix)

	str("DATABASE_URL", &s.DatabaseURL)
	integer("DB_POOL_SIZE", &s.DBPoolSize)
	duration("DB_TIMEOUT", &s.DBTimeout)

	str("PRIMARY_LLM_PROVIDER", &s.PrimaryLLMProvider)
	s.PrimaryLLMProvider = strings.ToLower(s.PrimaryLLMProvider)
	str("OPENAI_API_KEY", &s.OpenAIAPIKey)
	str("OPENAI_MODEL", &s.OpenAIModel)
	str("ANTHROPIC_API_KEY", &s.AnthropicAPIKey)
	str("ANTHROPIC_MODEL", &s.AnthropicModel)
	str("GROQ_API_KEY", &s.GroqAPIKey)
	str("GROQ_MODEL", &s.GroqModel)

	if len(errs) > 0 {
		return base, fmt.Errorf("config error: %s", strings.Join(errs, "; "))
	}
	return s, nil
}

func lookup(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

// parseDuration accepts Go duration strings and bare numbers of seconds
// ("0.5" or "300").
func parseDuration(v string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(v)
}

// parseList splits a comma-separated list, dropping blanks.
func parseList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
