// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN. Empty runs the server on in-memory stores.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// JWTSecret signs session tokens (HS256). Required.
	JWTSecret string `mapstructure:"JWT_SECRET"`
	// JWTIssuer is the iss claim of issued tokens.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTTTL is the session token lifetime (e.g. "24h").
	JWTTTL string `mapstructure:"JWT_TTL"`
	// OTPTTL is the lifetime of a registration OTP (e.g. "10m").
	OTPTTL string `mapstructure:"OTP_TTL"`
	// EmailVerificationTTL is the lifetime of a verification link (e.g. "24h").
	EmailVerificationTTL string `mapstructure:"EMAIL_VERIFICATION_TTL"`
	// LockoutThreshold is the number of consecutive failed logins that locks an account.
	LockoutThreshold int `mapstructure:"LOCKOUT_THRESHOLD"`
	// LockoutDuration is how long a locked account stays locked (e.g. "30m").
	LockoutDuration string `mapstructure:"LOCKOUT_DURATION"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// BaseURL is the public URL used to build verification links.
	BaseURL string `mapstructure:"BASE_URL"`

	// SMTP relay. When SMTPHost is empty emails are logged instead of sent.
	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom     string `mapstructure:"SMTP_FROM"`

	// RedisAddr enables the shared Redis rate limiter for auth routes (e.g. "localhost:6379").
	// When empty an in-process limiter is used.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	// AuthRateLimit is the number of auth requests allowed per client IP per AuthRateWindow. 0 disables limiting.
	AuthRateLimit  int    `mapstructure:"AUTH_RATE_LIMIT"`
	AuthRateWindow string `mapstructure:"AUTH_RATE_WINDOW"`
	// TrustedProxies is a comma-separated list of CIDRs or IPs (e.g. the load balancer)
	// whose X-Forwarded-For header is believed. Empty trusts no forwarding header.
	TrustedProxies string `mapstructure:"TRUSTED_PROXIES"`

	// OTLPEndpoint is the OTLP gRPC collector (e.g. "localhost:4317"). Empty disables trace and metric export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure disables TLS to the collector.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	// LogLevel is a logrus level name; LogFormat is "json" or "text".
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// OTPReturnToClient when true enables dev OTP mode: issued OTPs are stored for GET /dev/otp. Must not be true when Env is production.
	OTPReturnToClient bool `mapstructure:"OTP_RETURN_TO_CLIENT"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// Seed-only: the single super admin account.
	SuperAdminEmail    string `mapstructure:"SUPER_ADMIN_EMAIL"`
	SuperAdminPassword string `mapstructure:"SUPER_ADMIN_PASSWORD"`
	SuperAdminName     string `mapstructure:"SUPER_ADMIN_NAME"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ISSUER", "prepmaster")
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("OTP_TTL", "10m")
	v.SetDefault("EMAIL_VERIFICATION_TTL", "24h")
	v.SetDefault("LOCKOUT_THRESHOLD", 5)
	v.SetDefault("LOCKOUT_DURATION", "30m")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("BASE_URL", "http://localhost:8080")
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SMTP_FROM", "PrepMaster <noreply@prepmaster.local>")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("AUTH_RATE_LIMIT", 20)
	v.SetDefault("AUTH_RATE_WINDOW", "1m")
	v.SetDefault("TRUSTED_PROXIES", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", true)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("OTP_RETURN_TO_CLIENT", false)
	v.SetDefault("APP_ENV", "")
	v.SetDefault("SUPER_ADMIN_EMAIL", "")
	v.SetDefault("SUPER_ADMIN_PASSWORD", "")
	v.SetDefault("SUPER_ADMIN_NAME", "Super Admin")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, errors.New("config: JWT_SECRET must be set")
	}
	if cfg.Env == "production" && len(cfg.JWTSecret) < 32 {
		return nil, errors.New("config: JWT_SECRET must be at least 32 bytes when APP_ENV=production")
	}

	if cfg.OTPReturnToClient && cfg.Env == "production" {
		return nil, errors.New("config: OTP_RETURN_TO_CLIENT must not be true when APP_ENV=production")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if cfg.LockoutThreshold < 1 {
		return nil, errors.New("config: LOCKOUT_THRESHOLD must be at least 1")
	}
	if cfg.AuthRateLimit < 0 {
		return nil, errors.New("config: AUTH_RATE_LIMIT must not be negative")
	}

	return &cfg, nil
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// TokenTTL parses JWTTTL. Returns 24h if unset or invalid.
func (c *Config) TokenTTL() time.Duration { return parseDuration(c.JWTTTL, 24*time.Hour) }

// OTPLifetime parses OTPTTL. Returns 10m if unset or invalid.
func (c *Config) OTPLifetime() time.Duration { return parseDuration(c.OTPTTL, 10*time.Minute) }

// VerificationLifetime parses EmailVerificationTTL. Returns 24h if unset or invalid.
func (c *Config) VerificationLifetime() time.Duration {
	return parseDuration(c.EmailVerificationTTL, 24*time.Hour)
}

// LockDuration parses LockoutDuration. Returns 30m if unset or invalid.
func (c *Config) LockDuration() time.Duration {
	return parseDuration(c.LockoutDuration, 30*time.Minute)
}

// RateWindow parses AuthRateWindow. Returns 1m if unset or invalid.
func (c *Config) RateWindow() time.Duration { return parseDuration(c.AuthRateWindow, time.Minute) }

// TrustedProxyList splits TrustedProxies on commas, dropping empty entries.
func (c *Config) TrustedProxyList() []string {
	var out []string
	for _, p := range strings.Split(c.TrustedProxies, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool { return strings.EqualFold(c.Env, "production") }
