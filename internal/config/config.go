// Package config loads the storefront service configuration from an optional YAML
// file, then lets environment variables override individual settings.
package config

import (
	"time"
)

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`
	Payments  PaymentsConfig  `yaml:"payments"`
	Sandbox   SandboxConfig   `yaml:"sandbox"`
	Auth      AuthConfig      `yaml:"auth"`
	Redis     RedisConfig     `yaml:"redis"`
	Database  DatabaseConfig  `yaml:"database"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Mongo     MongoConfig     `yaml:"mongo"`
	Views     ViewsConfig     `yaml:"views"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type HTTPConfig struct {
	Port               string        `yaml:"port"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout"`
	MaxRequestBodySize int64         `yaml:"max_request_body_size"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type PaymentsConfig struct {
	AppID      string `yaml:"app_id"`
	LocationID string `yaml:"location_id"`
	// ChargeBaseURL is where the charge endpoint lives. Empty means this service's own
	// sandbox endpoint.
	ChargeBaseURL   string        `yaml:"charge_base_url"`
	ChargePath      string        `yaml:"charge_path"`
	ChargeTimeout   time.Duration `yaml:"charge_timeout"`
	Currency        string        `yaml:"currency"`
	CountryCode     string        `yaml:"country_code"`
	SDKPollInterval time.Duration `yaml:"sdk_poll_interval"`
	SDKTimeout      time.Duration `yaml:"sdk_timeout"`
}

type SandboxConfig struct {
	Enabled        bool          `yaml:"enabled"`
	SDKLoadDelay   time.Duration `yaml:"sdk_load_delay"`
	RandomDeclines bool          `yaml:"random_declines"`
}

type AuthConfig struct {
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	AuthURL      string   `yaml:"auth_url"`
	TokenURL     string   `yaml:"token_url"`
	RedirectURL  string   `yaml:"redirect_url"`
	Scopes       []string `yaml:"scopes"`

	// TokenSecret verifies HS256 identity tokens.
	TokenSecret string        `yaml:"token_secret"`
	Issuer      string        `yaml:"issuer"`
	Audience    string        `yaml:"audience"`
	Leeway      time.Duration `yaml:"leeway"`

	CookieName   string        `yaml:"cookie_name"`
	CookieSecure bool          `yaml:"cookie_secure"`
	SessionTTL   time.Duration `yaml:"session_ttl"`
	PendingTTL   time.Duration `yaml:"pending_ttl"`

	ReadinessBudget   time.Duration `yaml:"readiness_budget"`
	ReadinessInterval time.Duration `yaml:"readiness_interval"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// DatabaseConfig enables the purchase ledger when Host is set.
type DatabaseConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	User          string `yaml:"user"`
	Password      string `yaml:"password"`
	Name          string `yaml:"name"`
	MigrationsDir string `yaml:"migrations_dir"`
}

func (d DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

// KafkaConfig enables the outbox publisher when Brokers is set.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
}

// MongoConfig enables quote request storage when URI is set.
type MongoConfig struct {
	URI                    string        `yaml:"uri"`
	Database               string        `yaml:"database"`
	MinPoolSize            int           `yaml:"min_pool_size"`
	MaxPoolSize            int           `yaml:"max_pool_size"`
	ConnectTimeout         time.Duration `yaml:"connect_timeout"`
	ServerSelectionTimeout time.Duration `yaml:"server_selection_timeout"`
}

type ViewsConfig struct {
	TTL             time.Duration `yaml:"ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// Default is a configuration that runs locally against the sandbox.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Port:               "8080",
			RequestTimeout:     30 * time.Second,
			ShutdownTimeout:    10 * time.Second,
			MaxRequestBodySize: 1 << 20, // 1MB
		},
		Log: LogConfig{Level: "info"},
		Payments: PaymentsConfig{
			AppID:           "sandbox-sq0idb-storefront",
			LocationID:      "sandbox-location",
			ChargePath:      "/api/square/payment",
			ChargeTimeout:   15 * time.Second,
			Currency:        "JPY",
			CountryCode:     "JP",
			SDKPollInterval: 30 * time.Millisecond,
			SDKTimeout:      10 * time.Second,
		},
		Sandbox: SandboxConfig{
			Enabled:      true,
			SDKLoadDelay: 200 * time.Millisecond,
		},
		Auth: AuthConfig{
			ClientID:          "storefront",
			AuthURL:           "http://localhost:8080/sandbox/oauth2/authorize",
			TokenURL:          "http://localhost:8080/sandbox/oauth2/token",
			RedirectURL:       "http://localhost:8080/auth/callback",
			Scopes:            []string{"openid", "email", "profile"},
			TokenSecret:       "sandbox-secret-change-me",
			Leeway:            30 * time.Second,
			CookieName:        "storefront_session",
			SessionTTL:        12 * time.Hour,
			PendingTTL:        10 * time.Minute,
			ReadinessBudget:   8000 * time.Millisecond,
			ReadinessInterval: 150 * time.Millisecond,
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
		Database: DatabaseConfig{
			Port:          5432,
			MigrationsDir: "internal/repository/migrations",
		},
		Mongo: MongoConfig{
			Database:               "storefront",
			MinPoolSize:            1,
			MaxPoolSize:            10,
			ConnectTimeout:         10 * time.Second,
			ServerSelectionTimeout: 5 * time.Second,
		},
		Views: ViewsConfig{
			TTL:             15 * time.Minute,
			CleanupInterval: 30 * time.Second,
		},
		RateLimit: RateLimitConfig{RPS: 2, Burst: 5},
	}
}
