package config

import (
	"os"
	"testing"
	"time"
)

func setBaseEnv() {
	os.Clearenv()
	os.Setenv("JWT_SECRET", "test-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.JWTIssuer != "prepmaster" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "prepmaster")
	}
	if cfg.TokenTTL() != 24*time.Hour {
		t.Errorf("TokenTTL = %v, want 24h", cfg.TokenTTL())
	}
	if cfg.OTPLifetime() != 10*time.Minute {
		t.Errorf("OTPLifetime = %v, want 10m", cfg.OTPLifetime())
	}
	if cfg.VerificationLifetime() != 24*time.Hour {
		t.Errorf("VerificationLifetime = %v, want 24h", cfg.VerificationLifetime())
	}
	if cfg.LockoutThreshold != 5 {
		t.Errorf("LockoutThreshold = %d, want 5", cfg.LockoutThreshold)
	}
	if cfg.LockDuration() != 30*time.Minute {
		t.Errorf("LockDuration = %v, want 30m", cfg.LockDuration())
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if cfg.SMTPPort != 587 {
		t.Errorf("SMTPPort = %d, want 587", cfg.SMTPPort)
	}
	if cfg.AuthRateLimit != 20 || cfg.RateWindow() != time.Minute {
		t.Errorf("rate limit = %d per %v", cfg.AuthRateLimit, cfg.RateWindow())
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "json" {
		t.Errorf("log = %q/%q", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.OTPReturnToClient {
		t.Error("OTPReturnToClient should default to false")
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	setBaseEnv()
	os.Setenv("HTTP_ADDR", ":9090")
	os.Setenv("JWT_TTL", "1h")
	os.Setenv("LOCKOUT_THRESHOLD", "3")
	os.Setenv("LOCKOUT_DURATION", "5m")
	os.Setenv("BCRYPT_COST", "4")
	os.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.TokenTTL() != time.Hour {
		t.Errorf("TokenTTL = %v", cfg.TokenTTL())
	}
	if cfg.LockoutThreshold != 3 || cfg.LockDuration() != 5*time.Minute {
		t.Errorf("lockout = %d / %v", cfg.LockoutThreshold, cfg.LockDuration())
	}
	if cfg.BcryptCost != 4 {
		t.Errorf("BcryptCost = %d", cfg.BcryptCost)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("RedisAddr = %q", cfg.RedisAddr)
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{"JWT_SECRET": ""}},
		{"bcrypt too low", map[string]string{"BCRYPT_COST": "3"}},
		{"bcrypt too high", map[string]string{"BCRYPT_COST": "32"}},
		{"zero threshold", map[string]string{"LOCKOUT_THRESHOLD": "0"}},
		{"negative rate limit", map[string]string{"AUTH_RATE_LIMIT": "-1"}},
		{"dev otp in production", map[string]string{"APP_ENV": "production", "OTP_RETURN_TO_CLIENT": "true", "JWT_SECRET": "0123456789abcdef0123456789abcdef"}},
		{"short secret in production", map[string]string{"APP_ENV": "production"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv()
			for k, v := range tt.env {
				os.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoad_DevOTPOutsideProduction(t *testing.T) {
	setBaseEnv()
	os.Setenv("OTP_RETURN_TO_CLIENT", "true")
	os.Setenv("APP_ENV", "development")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.OTPReturnToClient || cfg.IsProduction() {
		t.Errorf("OTPReturnToClient=%v IsProduction=%v", cfg.OTPReturnToClient, cfg.IsProduction())
	}
}

func TestDurations_InvalidFallback(t *testing.T) {
	c := &Config{JWTTTL: "soon", OTPTTL: "-1m", LockoutDuration: "", AuthRateWindow: "0s"}
	if c.TokenTTL() != 24*time.Hour || c.OTPLifetime() != 10*time.Minute || c.LockDuration() != 30*time.Minute || c.RateWindow() != time.Minute {
		t.Errorf("fallbacks = %v %v %v %v", c.TokenTTL(), c.OTPLifetime(), c.LockDuration(), c.RateWindow())
	}
}

func TestTrustedProxyList(t *testing.T) {
	setBaseEnv()
	os.Setenv("TRUSTED_PROXIES", " 10.0.0.0/8, ,192.0.2.1 ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := cfg.TrustedProxyList()
	if len(got) != 2 || got[0] != "10.0.0.0/8" || got[1] != "192.0.2.1" {
		t.Errorf("TrustedProxyList = %q", got)
	}
	if (&Config{}).TrustedProxyList() != nil {
		t.Error("empty TRUSTED_PROXIES must trust nothing")
	}
}
