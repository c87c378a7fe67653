package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig
	DB        DBConfig
	Redis     RedisConfig
	NATS      NATSConfig
	JWT       JWTConfig
	AI        AIConfig
	Razorpay  RazorpayConfig
	RateLimit RateLimitConfig
	Usage     UsageConfig
	CORS      CORSConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	MigrationsPath string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NATSConfig is optional; an empty URL disables event publishing.
type NATSConfig struct {
	URL string
}

// JWTConfig verifies access tokens issued by the identity provider.
type JWTConfig struct {
	Secret   string
	Audience string
}

type AIConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	Structured bool
}

type RazorpayConfig struct {
	KeyID     string
	KeySecret string
	BaseURL   string
}

type RateLimitConfig struct {
	Backend     string // memory | redis
	MaxRequests int
	Window      time.Duration
	// Payment routes are limited per client IP.
	PaymentMaxRequests int
	// TrustedProxyHops is how many reverse proxies append to
	// X-Forwarded-For. Zero ignores the header.
	TrustedProxyHops int
}

type UsageConfig struct {
	FreeLimit int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Load .env file if it exists (ignore error if missing)
	_ = k.Load(file.Provider(".env"), dotenv.Parser())

	// Load environment variables (override .env)
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "_", "."))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           k.String("server.host"),
			Port:           k.Int("server.port"),
			MigrationsPath: k.String("migrations.path"),
		},
		DB: DBConfig{
			Host:     k.String("db.host"),
			Port:     k.Int("db.port"),
			User:     k.String("db.user"),
			Password: k.String("db.password"),
			Name:     k.String("db.name"),
			SSLMode:  k.String("db.sslmode"),
			MaxConns: int32(k.Int("db.max.conns")),
		},
		Redis: RedisConfig{
			Host:     k.String("redis.host"),
			Port:     k.Int("redis.port"),
			Password: k.String("redis.password"),
			DB:       k.Int("redis.db"),
		},
		NATS: NATSConfig{
			URL: k.String("nats.url"),
		},
		JWT: JWTConfig{
			Secret:   k.String("jwt.secret"),
			Audience: k.String("jwt.audience"),
		},
		AI: AIConfig{
			BaseURL:    k.String("ai.base.url"),
			APIKey:     k.String("ai.api.key"),
			Model:      k.String("ai.model"),
			Structured: k.Bool("ai.structured"),
		},
		Razorpay: RazorpayConfig{
			KeyID:     k.String("razorpay.key.id"),
			KeySecret: k.String("razorpay.key.secret"),
			BaseURL:   k.String("razorpay.base.url"),
		},
		RateLimit: RateLimitConfig{
			Backend:            k.String("ratelimit.backend"),
			MaxRequests:        k.Int("ratelimit.max"),
			PaymentMaxRequests: k.Int("ratelimit.payment.max"),
			TrustedProxyHops:   k.Int("ratelimit.trusted.proxy.hops"),
		},
		Usage: UsageConfig{
			FreeLimit: k.Int("usage.free.limit"),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
	}

	if origins := k.String("cors.allowed.origins"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORS.AllowedOrigins = append(cfg.CORS.AllowedOrigins, o)
			}
		}
	}

	applyDefaults(cfg)

	// Parse durations
	cfg.AI.Timeout, err = parseDuration(k.String("ai.timeout"), "60s")
	if err != nil {
		return nil, fmt.Errorf("parsing ai timeout: %w", err)
	}
	cfg.RateLimit.Window, err = parseDuration(k.String("ratelimit.window"), "60s")
	if err != nil {
		return nil, fmt.Errorf("parsing rate limit window: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.MigrationsPath == "" {
		cfg.Server.MigrationsPath = "migrations"
	}
	if cfg.DB.Host == "" {
		cfg.DB.Host = "localhost"
	}
	if cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if cfg.DB.User == "" {
		cfg.DB.User = "edugen"
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = "edugen"
	}
	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "disable"
	}
	if cfg.DB.MaxConns == 0 {
		cfg.DB.MaxConns = 25
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.Audience == "" {
		cfg.JWT.Audience = "authenticated"
	}
	if cfg.AI.BaseURL == "" {
		cfg.AI.BaseURL = "https://ai.gateway.lovable.dev/v1"
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = "google/gemini-3-flash-preview"
	}
	if cfg.Razorpay.BaseURL == "" {
		cfg.Razorpay.BaseURL = "https://api.razorpay.com"
	}
	if cfg.RateLimit.Backend == "" {
		cfg.RateLimit.Backend = "memory"
	}
	if cfg.RateLimit.MaxRequests == 0 {
		cfg.RateLimit.MaxRequests = 5
	}
	if cfg.RateLimit.PaymentMaxRequests == 0 {
		cfg.RateLimit.PaymentMaxRequests = 20
	}
	if cfg.Usage.FreeLimit == 0 {
		cfg.Usage.FreeLimit = 10
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = []string{"*"}
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

func parseDuration(s, fallback string) (time.Duration, error) {
	if s == "" {
		s = fallback
	}
	return time.ParseDuration(s)
}
