package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load starts from Default, applies the YAML file at path (if any) and then the
// environment, and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	cfg.HTTP.Port = getEnv("HTTP_PORT", cfg.HTTP.Port)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)

	cfg.Payments.AppID = getEnv("SQUARE_APP_ID", cfg.Payments.AppID)
	cfg.Payments.LocationID = getEnv("SQUARE_LOCATION_ID", cfg.Payments.LocationID)
	cfg.Payments.ChargeBaseURL = getEnv("CHARGE_BASE_URL", cfg.Payments.ChargeBaseURL)

	cfg.Auth.ClientID = getEnv("AUTH_CLIENT_ID", cfg.Auth.ClientID)
	cfg.Auth.ClientSecret = getEnv("AUTH_CLIENT_SECRET", cfg.Auth.ClientSecret)
	cfg.Auth.AuthURL = getEnv("AUTH_URL", cfg.Auth.AuthURL)
	cfg.Auth.TokenURL = getEnv("AUTH_TOKEN_URL", cfg.Auth.TokenURL)
	cfg.Auth.RedirectURL = getEnv("AUTH_REDIRECT_URL", cfg.Auth.RedirectURL)
	cfg.Auth.TokenSecret = getEnv("AUTH_TOKEN_SECRET", cfg.Auth.TokenSecret)
	cfg.Auth.Issuer = getEnv("AUTH_ISSUER", cfg.Auth.Issuer)
	cfg.Auth.Audience = getEnv("AUTH_AUDIENCE", cfg.Auth.Audience)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)

	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.Name = getEnv("DB_NAME", cfg.Database.Name)
	cfg.Database.MigrationsDir = getEnv("MIGRATIONS_DIR", cfg.Database.MigrationsDir)

	cfg.Mongo.URI = getEnv("MONGO_URI", cfg.Mongo.URI)
	cfg.Mongo.Database = getEnv("MONGO_DATABASE", cfg.Mongo.Database)

	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		cfg.Kafka.Brokers = splitList(brokers)
	}

	var err error
	if cfg.Database.Port, err = getEnvInt("DB_PORT", cfg.Database.Port); err != nil {
		return err
	}
	if cfg.Redis.DB, err = getEnvInt("REDIS_DB", cfg.Redis.DB); err != nil {
		return err
	}
	if cfg.Mongo.MaxPoolSize, err = getEnvInt("MONGO_MAX_POOL_SIZE", cfg.Mongo.MaxPoolSize); err != nil {
		return err
	}
	if cfg.Sandbox.Enabled, err = getEnvBool("SANDBOX_ENABLED", cfg.Sandbox.Enabled); err != nil {
		return err
	}
	if cfg.Auth.CookieSecure, err = getEnvBool("AUTH_COOKIE_SECURE", cfg.Auth.CookieSecure); err != nil {
		return err
	}
	if cfg.Auth.ReadinessBudget, err = getEnvDuration("AUTH_READINESS_BUDGET", cfg.Auth.ReadinessBudget); err != nil {
		return err
	}
	if cfg.HTTP.RequestTimeout, err = getEnvDuration("HTTP_REQUEST_TIMEOUT", cfg.HTTP.RequestTimeout); err != nil {
		return err
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return i, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return b, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
