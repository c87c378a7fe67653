package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		DB: DBConfig{
			Host: "localhost", Port: 5432, User: "edugen",
			Password: "secret", Name: "edugen", SSLMode: "disable", MaxConns: 25,
		},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		JWT: JWTConfig{
			Secret:   "jwt-secret-that-is-at-least-32-characters!",
			Audience: "authenticated",
		},
		AI: AIConfig{
			BaseURL: "https://ai.gateway.lovable.dev/v1",
			APIKey:  "ai-key",
			Model:   "google/gemini-3-flash-preview",
			Timeout: 60 * time.Second,
		},
		Razorpay:  RazorpayConfig{KeyID: "rzp_test_1", KeySecret: "rzp-secret"},
		RateLimit: RateLimitConfig{Backend: "memory", MaxRequests: 5, Window: time.Minute},
		Usage:     UsageConfig{FreeLimit: 10},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
}

func TestValidate_JWTSecretTooShort(t *testing.T) {
	cfg := validConfig()
	cfg.JWT.Secret = "short"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Fatalf("expected JWT_SECRET error, got: %v", err)
	}
}

func TestValidate_AIKeyRequired(t *testing.T) {
	cfg := validConfig()
	cfg.AI.APIKey = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "AI_API_KEY") {
		t.Fatalf("expected AI_API_KEY error, got: %v", err)
	}
}

func TestValidate_AIBaseURLMustBeAbsolute(t *testing.T) {
	cfg := validConfig()
	cfg.AI.BaseURL = "not a url"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "AI_BASE_URL") {
		t.Fatalf("expected AI_BASE_URL error, got: %v", err)
	}
}

func TestValidate_RateLimitBackend(t *testing.T) {
	cfg := validConfig()
	cfg.RateLimit.Backend = "memcached"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "RATELIMIT_BACKEND") {
		t.Fatalf("expected RATELIMIT_BACKEND error, got: %v", err)
	}
}

func TestValidate_RazorpaySecretRequiredWithKeyID(t *testing.T) {
	cfg := validConfig()
	cfg.Razorpay.KeySecret = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "RAZORPAY_KEY_SECRET") {
		t.Fatalf("expected RAZORPAY_KEY_SECRET error, got: %v", err)
	}
}

func TestValidate_InvalidPorts(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	cfg.DB.Port = 99999
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected port validation errors")
	}
	if !strings.Contains(err.Error(), "SERVER_PORT") {
		t.Errorf("expected SERVER_PORT error in: %v", err)
	}
	if !strings.Contains(err.Error(), "DB_PORT") {
		t.Errorf("expected DB_PORT error in: %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := &Config{
		Server:    ServerConfig{Port: 0},
		DB:        DBConfig{Port: 5432},
		Redis:     RedisConfig{Port: 6379},
		RateLimit: RateLimitConfig{Backend: "memory", MaxRequests: 5, Window: time.Minute},
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected multiple validation errors")
	}
	errStr := err.Error()
	for _, substr := range []string{"JWT_SECRET", "AI_API_KEY", "AI_TIMEOUT", "DB_PASSWORD", "SERVER_PORT"} {
		if !strings.Contains(errStr, substr) {
			t.Errorf("expected %q in error: %s", substr, errStr)
		}
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.RateLimit.MaxRequests != 5 {
		t.Errorf("expected default rate limit 5, got %d", cfg.RateLimit.MaxRequests)
	}
	if cfg.Usage.FreeLimit != 10 {
		t.Errorf("expected default free limit 10, got %d", cfg.Usage.FreeLimit)
	}
	if len(cfg.CORS.AllowedOrigins) != 1 || cfg.CORS.AllowedOrigins[0] != "*" {
		t.Errorf("expected wildcard CORS origin, got %v", cfg.CORS.AllowedOrigins)
	}
	if cfg.JWT.Audience != "authenticated" {
		t.Errorf("expected default audience, got %q", cfg.JWT.Audience)
	}
}

func TestValidate_TrustedProxyHops(t *testing.T) {
	cfg := validConfig()
	cfg.RateLimit.TrustedProxyHops = -1
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "RATELIMIT_TRUSTED_PROXY_HOPS") {
		t.Fatalf("expected RATELIMIT_TRUSTED_PROXY_HOPS error, got: %v", err)
	}
}
