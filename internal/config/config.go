package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/identity-service/internal/services"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const minSecretLen = 32

var (
	ErrSecretRequired = errors.New("JWT_SECRET environment variable is required")
	ErrSecretTooShort = errors.New("JWT_SECRET is too short")
	ErrUnknownStore   = errors.New("unknown TOKEN_STORE driver")
)

type Config struct {
	// Database
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"postgres"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME" envDefault:"identity_db"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	// Tokens
	JWTSecret        string        `env:"JWT_SECRET"`
	JWTIssuer        string        `env:"JWT_ISSUER" envDefault:"identity-service"`
	JWTAccessExpiry  time.Duration `env:"JWT_ACCESS_EXPIRY" envDefault:"15m"`
	JWTRefreshExpiry time.Duration `env:"JWT_REFRESH_EXPIRY" envDefault:"168h"`
	BcryptCost       int           `env:"BCRYPT_COST" envDefault:"10"`

	// Refresh token storage: postgres | redis | memory
	TokenStore    string `env:"TOKEN_STORE" envDefault:"postgres"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Timeouts
	ProviderTimeout time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"10s"`
	StoreTimeout    time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`

	// Maintenance
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1h"`
	LogRetention  time.Duration `env:"LOG_RETENTION" envDefault:"720h"`

	// Social providers
	GoogleClientID             string   `env:"GOOGLE_CLIENT_ID"`
	AppleClientIDs             []string `env:"APPLE_CLIENT_IDS" envSeparator:","`
	AppleKeysURL               string   `env:"APPLE_KEYS_URL" envDefault:"https://appleid.apple.com/auth/keys"`
	FacebookGraphURL           string   `env:"FACEBOOK_GRAPH_URL" envDefault:"https://graph.facebook.com"`
	InstagramGraphURL          string   `env:"INSTAGRAM_GRAPH_URL" envDefault:"https://graph.instagram.com"`
	InstagramPlaceholderDomain string   `env:"INSTAGRAM_PLACEHOLDER_DOMAIN" envDefault:"instagram.placeholder.invalid"`

	// Admin
	AdminEmails []string `env:"ADMIN_EMAILS" envSeparator:","`

	// Server
	Port        string `env:"PORT" envDefault:"8080"`
	GRPCPort    string `env:"GRPC_PORT" envDefault:"9090"`
	CORSOrigins string `env:"CORS_ORIGINS" envDefault:"*"`
	AppEnv      string `env:"APP_ENV" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	SentryDSN   string `env:"SENTRY_DSN"`
}

// Load reads the process environment, seeded from a .env file when one is
// present in the working directory.
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		slog.Debug("loaded .env file")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return &cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return ErrSecretRequired
	}
	if len(c.JWTSecret) < minSecretLen {
		return fmt.Errorf("%w - minimum of %d characters", ErrSecretTooShort, minSecretLen)
	}
	switch c.TokenStore {
	case "postgres", "redis", "memory":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStore, c.TokenStore)
	}
	return nil
}

// Auth is the immutable token and credential policy handed to the auth core.
func (c *Config) Auth() services.AuthConfig {
	return services.AuthConfig{
		Secret:       []byte(c.JWTSecret),
		Issuer:       c.JWTIssuer,
		AccessTTL:    c.JWTAccessExpiry,
		RefreshTTL:   c.JWTRefreshExpiry,
		BcryptCost:   c.BcryptCost,
		StoreTimeout: c.StoreTimeout,
	}
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

// IsAdminEmail reports whether email is listed in ADMIN_EMAILS.
func (c *Config) IsAdminEmail(email string) bool {
	for _, e := range c.AdminEmails {
		if strings.EqualFold(strings.TrimSpace(e), email) {
			return true
		}
	}
	return false
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
