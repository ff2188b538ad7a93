package config

import "time"

// Config is the full runtime configuration of vpfs-api.
type Config struct {
	App   AppConfig   `yaml:"app"`
	HTTP  HTTPConfig  `yaml:"http"`
	GRPC  GRPCConfig  `yaml:"grpc"`
	DB    DBConfig    `yaml:"db"`
	Auth  AuthConfig  `yaml:"auth"`
	Audit AuditConfig `yaml:"audit"`
	Log   LogConfig   `yaml:"log"`
	Seed  SeedConfig  `yaml:"seed"`
}

type AppConfig struct {
	Env     string `yaml:"env" env:"VPFS_ENV" env-default:"development"`
	Version string `yaml:"version" env:"VPFS_VERSION" env-default:"dev"`
	Commit  string `yaml:"commit" env:"VPFS_COMMIT" env-default:"unknown"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr" env:"VPFS_HTTP_ADDR" env-default:":3000"`
	CORSOrigins     []string      `yaml:"cors_origins" env:"VPFS_CORS_ORIGINS" env-separator:","`
	RateLimitRPS    float64       `yaml:"rate_limit_rps" env:"VPFS_RATE_LIMIT_RPS" env-default:"20"`
	RateLimitBurst  int           `yaml:"rate_limit_burst" env:"VPFS_RATE_LIMIT_BURST" env-default:"40"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes" env:"VPFS_MAX_BODY_BYTES" env-default:"1048576"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"VPFS_SHUTDOWN_TIMEOUT" env-default:"10s"`

	// TrustProxy is set when a reverse proxy in front of the API owns
	// X-Forwarded-For.
	TrustProxy bool `yaml:"trust_proxy" env:"VPFS_TRUST_PROXY" env-default:"false"`
}

type GRPCConfig struct {
	Addr string `yaml:"addr" env:"VPFS_GRPC_ADDR" env-default:":9090"`
}

type DBConfig struct {
	Driver string `yaml:"driver" env:"VPFS_DB_DRIVER" env-default:"postgres"`
	DSN    string `yaml:"dsn" env:"VPFS_DB_DSN"`
}

type AuthConfig struct {
	JWTSecret        string        `yaml:"jwt_secret" env:"VPFS_JWT_SECRET"`
	TokenTTL         time.Duration `yaml:"token_ttl" env:"VPFS_TOKEN_TTL" env-default:"8h"`
	CookieSecure     string        `yaml:"cookie_secure" env:"VPFS_COOKIE_SECURE" env-default:"auto"`
	LoginMaxAttempts int           `yaml:"login_max_attempts" env:"VPFS_LOGIN_MAX_ATTEMPTS" env-default:"5"`
	LoginWindow      time.Duration `yaml:"login_window" env:"VPFS_LOGIN_WINDOW" env-default:"60s"`
}

type AuditConfig struct {
	WriteTimeout time.Duration `yaml:"write_timeout" env:"VPFS_AUDIT_WRITE_TIMEOUT" env-default:"5s"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"VPFS_LOG_LEVEL" env-default:"info"`
}

type SeedConfig struct {
	AdminPassword string `yaml:"admin_password" env:"VPFS_ADMIN_PASSWORD" env-default:"admin123"`
}

// Production reports whether the service runs with production hardening.
func (c *Config) Production() bool {
	return c.App.Env == "production"
}

// SecureCookies reports whether the auth cookie must carry the Secure flag.
func (c *Config) SecureCookies() bool {
	switch c.Auth.CookieSecure {
	case "true":
		return true
	case "false":
		return false
	default:
		return c.Production()
	}
}
