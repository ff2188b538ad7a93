package config

import (
	"net"
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	defaultConfigPath = "config/vpfs.yaml"
	pathEnv           = "VPFS_CONFIG"
)

// Load reads the YAML file at path (when it exists), overlays environment
// variables, applies legacy aliases, normalizes and validates the result.
// An empty path falls back to $VPFS_CONFIG and then to config/vpfs.yaml.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	path = resolveConfigPath(path)
	if st, err := os.Stat(path); err == nil && !st.IsDir() {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, err
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, err
	}
	applyEnvAliases(cfg)
	normalizeConfig(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func resolveConfigPath(path string) string {
	if p := strings.TrimSpace(path); p != "" {
		return p
	}
	if p := strings.TrimSpace(os.Getenv(pathEnv)); p != "" {
		return p
	}
	return defaultConfigPath
}

// applyEnvAliases honours the variable names used by older deployments.
func applyEnvAliases(cfg *Config) {
	if v := getEnv("DATABASE_URL"); v != "" && cfg.DB.DSN == "" {
		cfg.DB.DSN = v
	}
	if v := getEnv("JWT_SECRET"); v != "" && cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = v
	}
	if v := getEnv("NODE_ENV", "APP_ENV"); v != "" && os.Getenv("VPFS_ENV") == "" {
		cfg.App.Env = v
	}
	if v := getEnv("PORT"); v != "" && os.Getenv("VPFS_HTTP_ADDR") == "" {
		cfg.HTTP.Addr = listenAddrWithPort(cfg.HTTP.Addr, v)
	}
}

func normalizeConfig(cfg *Config) {
	cfg.App.Env = strings.ToLower(strings.TrimSpace(cfg.App.Env))
	cfg.DB.Driver = strings.ToLower(strings.TrimSpace(cfg.DB.Driver))
	if cfg.DB.Driver == "pg" || cfg.DB.Driver == "pgx" {
		cfg.DB.Driver = "postgres"
	}
	cfg.DB.DSN = strings.TrimSpace(cfg.DB.DSN)
	cfg.HTTP.Addr = strings.TrimSpace(cfg.HTTP.Addr)
	cfg.GRPC.Addr = strings.TrimSpace(cfg.GRPC.Addr)
	cfg.Auth.JWTSecret = strings.TrimSpace(cfg.Auth.JWTSecret)
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Auth.CookieSecure = strings.ToLower(strings.TrimSpace(cfg.Auth.CookieSecure))

	origins := cfg.HTTP.CORSOrigins[:0]
	for _, o := range cfg.HTTP.CORSOrigins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			origins = append(origins, o)
		}
	}
	cfg.HTTP.CORSOrigins = origins
}

func getEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func listenAddrWithPort(addr, port string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = ""
	}
	return net.JoinHostPort(host, strings.TrimSpace(port))
}
