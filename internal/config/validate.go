package config

import (
	"errors"
	"fmt"
	"strings"
)

const minSecretLength = 32

// Validate checks cross-field constraints that struct tags cannot express.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil config")
	}
	var problems []string
	switch cfg.App.Env {
	case "development", "production", "test":
	default:
		problems = append(problems, fmt.Sprintf("app.env %q is not one of development, production, test", cfg.App.Env))
	}
	switch cfg.DB.Driver {
	case "postgres", "sqlite":
	default:
		problems = append(problems, fmt.Sprintf("db.driver %q is not supported", cfg.DB.Driver))
	}
	if cfg.DB.DSN == "" {
		problems = append(problems, "db.dsn is required")
	}
	if cfg.HTTP.Addr == "" {
		problems = append(problems, "http.addr is required")
	}
	if cfg.Auth.TokenTTL <= 0 {
		problems = append(problems, "auth.token_ttl must be positive")
	}
	if cfg.Auth.LoginMaxAttempts <= 0 || cfg.Auth.LoginWindow <= 0 {
		problems = append(problems, "auth.login_max_attempts and auth.login_window must be positive")
	}
	switch cfg.Auth.CookieSecure {
	case "", "auto", "true", "false":
	default:
		problems = append(problems, fmt.Sprintf("auth.cookie_secure %q must be auto, true or false", cfg.Auth.CookieSecure))
	}
	if cfg.Auth.JWTSecret == "" {
		problems = append(problems, "auth.jwt_secret is required")
	} else if cfg.Production() && len(cfg.Auth.JWTSecret) < minSecretLength {
		problems = append(problems, fmt.Sprintf("auth.jwt_secret must be at least %d characters in production", minSecretLength))
	}
	if cfg.Production() && cfg.Seed.AdminPassword == "admin123" {
		problems = append(problems, "seed.admin_password must be changed in production")
	}
	if len(problems) > 0 {
		return fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}
