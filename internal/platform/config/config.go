// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// DefaultJWTSecret is the development placeholder; Validate refuses it in prod.
const DefaultJWTSecret = "change-me"

// Config is the root configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Tokens    TokenConfig
	Google    GoogleConfig
	Session   AuthSessionConfig
	Audit     AuditConfig
	RateLimit RateLimitConfig
}

// ServerConfig captures HTTP server level configuration.
type ServerConfig struct {
	Env       string `env:"APP_ENV" envDefault:"dev"`
	Addr      string `env:"APP_ADDR" envDefault:":8000"`
	APIPrefix string `env:"API_V1_STR" envDefault:"/v1"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT"`
	// TrustedProxies are the CIDRs whose forwarding headers are believed.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`
}

// DatabaseConfig describes the relational store.
type DatabaseConfig struct {
	Driver          string        `env:"DB_DRIVER" envDefault:"pgx"`
	Host            string        `env:"DB_HOST" envDefault:"localhost"`
	Port            int           `env:"DB_PORT" envDefault:"5432"`
	User            string        `env:"DB_USER" envDefault:"postgres"`
	Password        string        `env:"DB_PASSWORD"`
	Name            string        `env:"DB_NAME" envDefault:"odyssey"`
	SSLMode         string        `env:"DB_SSLMODE" envDefault:"disable"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
	AutoMigrate     bool          `env:"DB_AUTO_MIGRATE" envDefault:"true"`
}

// RedisConfig describes the key-value store.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// TokenConfig drives access and refresh token issuance.
type TokenConfig struct {
	JWTSecret         string `env:"JWT_SECRET" envDefault:"change-me"`
	Issuer            string `env:"JWT_ISSUER" envDefault:"sangcheol-odyssey"`
	AccessExpiresSec  int    `env:"JWT_EXPIRES_SEC" envDefault:"3600"`
	RefreshExpiresSec int    `env:"REFRESH_EXPIRES_SEC" envDefault:"2592000"`
	RefreshPrefix     string `env:"REFRESH_REDIS_PREFIX" envDefault:"rt:"`
	RefreshUserPrefix string `env:"REFRESH_USER_SET_PREFIX" envDefault:"rtu:"`
	RefreshPepper     string `env:"REFRESH_HASH_PEPPER"`
}

// GoogleConfig describes the external identity provider.
type GoogleConfig struct {
	ClientIDs    []string      `env:"GOOGLE_CLIENT_IDS" envSeparator:","`
	WebClientID  string        `env:"GOOGLE_CLIENT_ID_WEB"`
	ClientSecret string        `env:"GOOGLE_CLIENT_SECRET"`
	RedirectURI  string        `env:"GOOGLE_REDIRECT_URI"`
	AuthURL      string        `env:"GOOGLE_AUTH_URL" envDefault:"https://accounts.google.com/o/oauth2/v2/auth"`
	TokenURL     string        `env:"GOOGLE_TOKEN_URL" envDefault:"https://oauth2.googleapis.com/token"`
	JWKSURL      string        `env:"GOOGLE_JWKS_URL" envDefault:"https://www.googleapis.com/oauth2/v3/certs"`
	Issuers      []string      `env:"GOOGLE_ISSUERS" envSeparator:"," envDefault:"https://accounts.google.com,accounts.google.com"`
	JWKSCacheTTL time.Duration `env:"GOOGLE_JWKS_CACHE_TTL" envDefault:"1h"`
	HTTPTimeout  time.Duration `env:"GOOGLE_HTTP_TIMEOUT" envDefault:"10s"`
}

// AuthSessionConfig sets the lifetimes of polling login sessions.
type AuthSessionConfig struct {
	TTL      time.Duration `env:"AUTH_SESSION_TTL" envDefault:"600s"`
	ReadyTTL time.Duration `env:"AUTH_SESSION_READY_TTL" envDefault:"30s"`
	ErrorTTL time.Duration `env:"AUTH_SESSION_ERROR_TTL" envDefault:"120s"`
}

// AuditConfig enables the Kafka audit sink when brokers are set.
type AuditConfig struct {
	KafkaBrokers []string `env:"AUDIT_KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"AUDIT_KAFKA_TOPIC" envDefault:"odyssey.audit"`
	BufferSize   int      `env:"AUDIT_BUFFER_SIZE" envDefault:"256"`
}

// RateLimitConfig bounds unauthenticated login initiation per client IP.
type RateLimitConfig struct {
	RPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"1"`
	Burst int     `env:"RATE_LIMIT_BURST" envDefault:"10"`
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Google.ClientIDs = compact(cfg.Google.ClientIDs)
	cfg.Google.Issuers = compact(cfg.Google.Issuers)
	cfg.Server.TrustedProxies = compact(cfg.Server.TrustedProxies)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations that must never reach production.
func (c Config) Validate() error {
	if c.EnvPrefix() == "prod" && c.Tokens.JWTSecret == DefaultJWTSecret {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	if c.Tokens.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	switch c.Database.Driver {
	case "pgx", "postgres":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	return nil
}

// EnvPrefix normalizes APP_ENV to the key namespace used in the key-value store.
func (c Config) EnvPrefix() string {
	switch strings.ToLower(strings.TrimSpace(c.Server.Env)) {
	case "stg", "stage", "staging":
		return "stg"
	case "prod", "production":
		return "prod"
	default:
		return "dev"
	}
}

// IsDev reports whether the process runs in the development namespace.
func (c Config) IsDev() bool { return c.EnvPrefix() == "dev" }

// RefreshPepper returns the HMAC key for refresh token hashes.
func (c Config) RefreshPepper() string {
	if c.Tokens.RefreshPepper != "" {
		return c.Tokens.RefreshPepper
	}
	return c.Tokens.JWTSecret
}

// WebClientID is the client id used for browser-redirect flows.
func (c Config) WebClientID() string {
	if c.Google.WebClientID != "" {
		return c.Google.WebClientID
	}
	if len(c.Google.ClientIDs) > 0 {
		return c.Google.ClientIDs[0]
	}
	return ""
}

// AccessTokenTTL is the lifetime of issued access tokens.
func (c Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.Tokens.AccessExpiresSec) * time.Second
}

// RefreshTokenTTL is the lifetime of issued refresh tokens.
func (c Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.Tokens.RefreshExpiresSec) * time.Second
}

// DSN renders a libpq-style URL accepted by both pgx and lib/pq.
func (c DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + c.Name,
	}
	q := u.Query()
	q.Set("sslmode", c.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
