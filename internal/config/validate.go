package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

// Validate checks Config for production-critical problems.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	// Token verification
	if len(c.JWT.Secret) < 32 {
		errs = append(errs, "JWT_SECRET must be at least 32 characters")
	}

	// Completion API
	if c.AI.APIKey == "" {
		errs = append(errs, "AI_API_KEY is required")
	}
	if u, err := url.Parse(c.AI.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Sprintf("AI_BASE_URL must be an absolute URL, got %q", c.AI.BaseURL))
	}
	if c.AI.Timeout <= 0 {
		errs = append(errs, "AI_TIMEOUT must be positive")
	}

	// DB password
	if c.DB.Password == "" {
		errs = append(errs, "DB_PASSWORD is required")
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1–65535, got %d", c.Server.Port))
	}
	if c.DB.Port < 1 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Sprintf("DB_PORT must be 1–65535, got %d", c.DB.Port))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1–65535, got %d", c.Redis.Port))
	}

	// Rate limiting
	switch c.RateLimit.Backend {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Sprintf("RATELIMIT_BACKEND must be memory or redis, got %q", c.RateLimit.Backend))
	}
	if c.RateLimit.MaxRequests < 1 {
		errs = append(errs, "RATELIMIT_MAX must be at least 1")
	}
	if c.RateLimit.Window <= 0 {
		errs = append(errs, "RATELIMIT_WINDOW must be positive")
	}
	if c.RateLimit.TrustedProxyHops < 0 {
		errs = append(errs, "RATELIMIT_TRUSTED_PROXY_HOPS must not be negative")
	}

	if c.Usage.FreeLimit < 0 {
		errs = append(errs, "USAGE_FREE_LIMIT must not be negative")
	}

	// Payments are optional, but a key id without a secret is a misconfiguration.
	if c.Razorpay.KeyID != "" && c.Razorpay.KeySecret == "" {
		errs = append(errs, "RAZORPAY_KEY_SECRET is required when RAZORPAY_KEY_ID is set")
	}
	if c.Razorpay.KeySecret == "" {
		slog.Warn("RAZORPAY_KEY_SECRET is empty, payment verification will fail")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
