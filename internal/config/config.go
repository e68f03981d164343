// AngelaMos | 2026
// config.go

package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	App        AppConfig        `koanf:"app"`
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Redis      RedisConfig      `koanf:"redis"`
	Auth       AuthConfig       `koanf:"auth"`
	RateLimit  RateLimitConfig  `koanf:"rate_limit"`
	Generation GenerationConfig `koanf:"generation"`
	Completion CompletionConfig `koanf:"completion"`
	Storage    StorageConfig    `koanf:"storage"`
	Billing    BillingConfig    `koanf:"billing"`
	Credits    CreditsConfig    `koanf:"credits"`
	Events     EventsConfig     `koanf:"events"`
	Metrics    MetricsConfig    `koanf:"metrics"`
	CORS       CORSConfig       `koanf:"cors"`
	Log        LogConfig        `koanf:"log"`
	Otel       OtelConfig       `koanf:"otel"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

type RedisConfig struct {
	URL          string `koanf:"url"`
	PoolSize     int    `koanf:"pool_size"`
	MinIdleConns int    `koanf:"min_idle_conns"`
}

// AuthConfig describes how access tokens from the identity provider are
// verified. Exactly one of JWTSecret or JWKSURL must be set.
type AuthConfig struct {
	JWTSecret string `koanf:"jwt_secret"`
	JWKSURL   string `koanf:"jwks_url"`
	Issuer    string `koanf:"issuer"`
	Audience  string `koanf:"audience"`
}

type RateLimitConfig struct {
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`
	Burst    int           `koanf:"burst"`
}

type GenerationConfig struct {
	CreditCost            int           `koanf:"credit_cost"`
	RateLimit             int           `koanf:"rate_limit"`
	RateWindow            time.Duration `koanf:"rate_window"`
	RequireIdempotencyKey bool          `koanf:"require_idempotency_key"`
	IdempotencyTTL        time.Duration `koanf:"idempotency_ttl"`
	IdempotencyLockTTL    time.Duration `koanf:"idempotency_lock_ttl"`
}

type CompletionConfig struct {
	BaseURL     string        `koanf:"base_url"`
	APIKey      string        `koanf:"api_key"`
	Model       string        `koanf:"model"`
	MaxTokens   int           `koanf:"max_tokens"`
	Temperature float64       `koanf:"temperature"`
	Timeout     time.Duration `koanf:"timeout"`
	MaxRetries  int           `koanf:"max_retries"`
}

type StorageConfig struct {
	URL        string        `koanf:"url"`
	ServiceKey string        `koanf:"service_key"`
	Bucket     string        `koanf:"bucket"`
	Timeout    time.Duration `koanf:"timeout"`
}

type BillingConfig struct {
	SecretKey      string          `koanf:"secret_key"`
	WebhookSecret  string          `koanf:"webhook_secret"`
	SuccessURL     string          `koanf:"success_url"`
	CancelURL      string          `koanf:"cancel_url"`
	PricingVersion string          `koanf:"pricing_version"`
	Packages       []PackageConfig `koanf:"packages"`
}

type PackageConfig struct {
	PriceID string `koanf:"price_id"`
	Name    string `koanf:"name"`
	Credits int    `koanf:"credits"`
}

type CreditsConfig struct {
	SignupBonus int `koanf:"signup_bonus"`
}

type EventsConfig struct {
	URL      string `koanf:"url"`
	Exchange string `koanf:"exchange"`
}

type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type OtelConfig struct {
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Enabled     bool    `koanf:"enabled"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

var (
	cfg  *Config
	once sync.Once
)

func Load(configPath string) (*Config, error) {
	var loadErr error

	once.Do(func() {
		cfg, loadErr = Parse(configPath)
	})

	if loadErr != nil {
		return nil, loadErr
	}

	return cfg, nil
}

// Parse builds a Config from defaults, the optional YAML file and the
// environment without touching the process-wide instance.
func Parse(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKeyReplacer), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	c := &Config{}
	if err := k.Unmarshal("", c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(c); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

func Get() *Config {
	if cfg == nil {
		panic("config not loaded: call Load() first")
	}
	return cfg
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":        "copystudio",
		"app.version":     "1.0.0",
		"app.environment": "development",

		"server.host":             "0.0.0.0",
		"server.port":             8080,
		"server.read_timeout":     "30s",
		"server.write_timeout":    "90s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "15s",

		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "30m",
		"database.auto_migrate":       true,

		"redis.pool_size":      10,
		"redis.min_idle_conns": 5,

		"auth.audience": "authenticated",

		"rate_limit.requests": 100,
		"rate_limit.window":   "1m",
		"rate_limit.burst":    20,

		"generation.credit_cost":             1,
		"generation.rate_limit":              5,
		"generation.rate_window":             "60s",
		"generation.require_idempotency_key": true,
		"generation.idempotency_ttl":         "24h",
		"generation.idempotency_lock_ttl":    "5m",

		"completion.base_url":    "https://api.openai.com/v1",
		"completion.model":       "gpt-4o",
		"completion.max_tokens":  2000,
		"completion.temperature": 0.7,
		"completion.timeout":     "60s",
		"completion.max_retries": 2,

		"storage.bucket":  "screenshots",
		"storage.timeout": "10s",

		"billing.pricing_version": "v1",

		"credits.signup_bonus": 3,

		"events.exchange": "copystudio.events",

		"metrics.enabled": true,
		"metrics.path":    "/metrics",

		"cors.allowed_origins": []string{"http://localhost:3000"},
		"cors.allowed_methods": []string{
			"GET",
			"POST",
			"PUT",
			"PATCH",
			"DELETE",
			"OPTIONS",
		},
		"cors.allowed_headers": []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"Idempotency-Key",
			"X-Request-ID",
		},
		"cors.allow_credentials": true,
		"cors.max_age":           300,

		"log.level":  "info",
		"log.format": "json",

		"otel.enabled":      false,
		"otel.insecure":     true,
		"otel.sample_rate":  0.1,
		"otel.service_name": "copystudio",
	}

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

var envKeyMap = map[string]string{
	"DATABASE_URL":                "database.url",
	"REDIS_URL":                   "redis.url",
	"ENVIRONMENT":                 "app.environment",
	"HOST":                        "server.host",
	"PORT":                        "server.port",
	"LOG_LEVEL":                   "log.level",
	"LOG_FORMAT":                  "log.format",
	"AUTH_JWT_SECRET":             "auth.jwt_secret",
	"AUTH_JWKS_URL":               "auth.jwks_url",
	"AUTH_ISSUER":                 "auth.issuer",
	"AUTH_AUDIENCE":               "auth.audience",
	"RATE_LIMIT_REQUESTS":         "rate_limit.requests",
	"RATE_LIMIT_WINDOW":           "rate_limit.window",
	"RATE_LIMIT_BURST":            "rate_limit.burst",
	"GENERATION_CREDIT_COST":      "generation.credit_cost",
	"GENERATION_RATE_LIMIT":       "generation.rate_limit",
	"GENERATION_RATE_WINDOW":      "generation.rate_window",
	"COMPLETION_BASE_URL":         "completion.base_url",
	"OPENAI_API_KEY":              "completion.api_key",
	"COMPLETION_MODEL":            "completion.model",
	"STORAGE_URL":                 "storage.url",
	"STORAGE_SERVICE_KEY":         "storage.service_key",
	"STORAGE_BUCKET":              "storage.bucket",
	"STRIPE_SECRET_KEY":           "billing.secret_key",
	"STRIPE_WEBHOOK_SECRET":       "billing.webhook_secret",
	"BILLING_SUCCESS_URL":         "billing.success_url",
	"BILLING_CANCEL_URL":          "billing.cancel_url",
	"CREDITS_SIGNUP_BONUS":        "credits.signup_bonus",
	"AMQP_URL":                    "events.url",
	"EVENTS_EXCHANGE":             "events.exchange",
	"METRICS_ENABLED":             "metrics.enabled",
	"OTEL_ENDPOINT":               "otel.endpoint",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "otel.endpoint",
	"OTEL_SERVICE_NAME":           "otel.service_name",
	"OTEL_ENABLED":                "otel.enabled",
	"OTEL_INSECURE":               "otel.insecure",
	"OTEL_SAMPLE_RATE":            "otel.sample_rate",
}

func envKeyReplacer(s string) string {
	if mapped, ok := envKeyMap[s]; ok {
		return mapped
	}
	return ""
}

//nolint:gocyclo // flat list of independent checks
func validate(c *Config) error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Auth.JWTSecret == "" && c.Auth.JWKSURL == "" {
		return fmt.Errorf("one of AUTH_JWT_SECRET or AUTH_JWKS_URL is required")
	}

	if c.Auth.JWTSecret != "" && c.Auth.JWKSURL != "" {
		return fmt.Errorf("AUTH_JWT_SECRET and AUTH_JWKS_URL are mutually exclusive")
	}

	if c.Completion.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}

	if c.Storage.URL == "" || c.Storage.ServiceKey == "" {
		return fmt.Errorf("STORAGE_URL and STORAGE_SERVICE_KEY are required")
	}

	if c.Billing.SecretKey == "" || c.Billing.WebhookSecret == "" {
		return fmt.Errorf(
			"STRIPE_SECRET_KEY and STRIPE_WEBHOOK_SECRET are required",
		)
	}

	if err := validatePackages(c.Billing.Packages); err != nil {
		return err
	}

	if c.Generation.CreditCost < 1 {
		return fmt.Errorf("generation.credit_cost must be at least 1")
	}

	if c.Generation.RateLimit < 1 || c.Generation.RateWindow <= 0 {
		return fmt.Errorf("generation rate limit and window must be positive")
	}

	if c.Credits.SignupBonus < 0 {
		return fmt.Errorf("credits.signup_bonus must not be negative")
	}

	if c.CORS.AllowCredentials {
		for _, origin := range c.CORS.AllowedOrigins {
			if origin == "*" {
				return fmt.Errorf(
					"CORS wildcard '*' cannot be used with AllowCredentials",
				)
			}
		}
	}

	if c.App.Environment == "production" {
		if c.Otel.Enabled && c.Otel.Insecure {
			return fmt.Errorf("OTEL_INSECURE must be false in production")
		}
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}

	return nil
}

func validatePackages(packages []PackageConfig) error {
	if len(packages) == 0 {
		return fmt.Errorf("billing.packages must define at least one price")
	}

	seen := make(map[string]struct{}, len(packages))
	for _, p := range packages {
		if p.PriceID == "" {
			return fmt.Errorf("billing.packages: price_id is required")
		}
		if p.Credits < 1 {
			return fmt.Errorf(
				"billing.packages: %s must grant at least one credit",
				p.PriceID,
			)
		}
		if _, dup := seen[p.PriceID]; dup {
			return fmt.Errorf("billing.packages: duplicate price_id %s", p.PriceID)
		}
		seen[p.PriceID] = struct{}{}
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
