package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate checks the settings every component relies on.
func (c Config) Validate() error {
	if c.HTTP.Port == "" {
		return errors.New("http.port must be set")
	}
	if c.HTTP.RequestTimeout <= 0 {
		return errors.New("http.request_timeout must be positive")
	}

	if c.Payments.AppID == "" || c.Payments.LocationID == "" {
		return errors.New("payments.app_id and payments.location_id must be set")
	}
	if c.Payments.SDKPollInterval <= 0 || c.Payments.SDKTimeout <= 0 {
		return errors.New("payments.sdk_poll_interval and payments.sdk_timeout must be positive")
	}
	if !c.Sandbox.Enabled {
		return errors.New("sandbox.enabled must be true: the card surface only produces sandbox source ids")
	}
	if c.Payments.ChargeBaseURL != "" {
		if err := absoluteURL("payments.charge_base_url", c.Payments.ChargeBaseURL); err != nil {
			return err
		}
	}
	if len(c.Payments.Currency) != 3 {
		return fmt.Errorf("payments.currency %q must be an ISO 4217 code", c.Payments.Currency)
	}

	if c.Auth.TokenSecret == "" {
		return errors.New("auth.token_secret must be set")
	}
	if c.Auth.CookieName == "" {
		return errors.New("auth.cookie_name must be set")
	}
	for name, raw := range map[string]string{
		"auth.auth_url":     c.Auth.AuthURL,
		"auth.token_url":    c.Auth.TokenURL,
		"auth.redirect_url": c.Auth.RedirectURL,
	} {
		if err := absoluteURL(name, raw); err != nil {
			return err
		}
	}
	if c.Auth.ReadinessBudget <= 0 || c.Auth.ReadinessInterval <= 0 {
		return errors.New("auth.readiness_budget and auth.readiness_interval must be positive")
	}
	if c.Auth.ReadinessInterval > c.Auth.ReadinessBudget {
		return errors.New("auth.readiness_interval cannot exceed auth.readiness_budget")
	}

	if c.Redis.Addr == "" {
		return errors.New("redis.addr must be set")
	}
	if c.Database.Enabled() && (c.Database.Name == "" || c.Database.User == "") {
		return errors.New("database.name and database.user must be set when database.host is set")
	}
	if c.Mongo.URI != "" {
		if c.Mongo.Database == "" {
			return errors.New("mongo.database must be set when mongo.uri is set")
		}
		if c.Mongo.MinPoolSize < 0 || c.Mongo.MaxPoolSize < c.Mongo.MinPoolSize {
			return errors.New("mongo.max_pool_size cannot be below mongo.min_pool_size")
		}
		if c.Mongo.ConnectTimeout <= 0 || c.Mongo.ServerSelectionTimeout <= 0 {
			return errors.New("mongo.connect_timeout and mongo.server_selection_timeout must be positive")
		}
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		return errors.New("rate_limit.rps and rate_limit.burst must be positive")
	}
	return nil
}

func absoluteURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s %q must be an absolute URL", name, raw)
	}
	return nil
}
