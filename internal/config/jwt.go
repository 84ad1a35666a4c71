package config

import (
	"fmt"
)

// JWTConfig holds configuration for admin token generation and validation.
type JWTConfig struct {
	Secret          string
	ExpirationHours int
}

// JWT derives the token configuration from SECRET_KEY and JWT_EXPIRATION_HOURS.
func (s *Settings) JWT() (*JWTConfig, error) {
	config := &JWTConfig{
		Secret:          s.SecretKey,
		ExpirationHours: s.JWTExpirationHours,
	}

	if err := config.normalize(); err != nil {
		return nil, err
	}

	return config, nil
}

// normalize validates the configuration.
func (c *JWTConfig) normalize() error {
	if c.Secret == "" {
		return fmt.Errorf("SECRET_KEY cannot be empty")
	}
	if c.ExpirationHours < 1 {
		return fmt.Errorf("JWT_EXPIRATION_HOURS must be at least 1 hour, got: %d", c.ExpirationHours)
	}
	return nil
}
