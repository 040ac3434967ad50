package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env                   string        `mapstructure:"ENV"`
	APIBaseURL            string        `mapstructure:"API_BASE_URL"`
	CacheDir              string        `mapstructure:"CACHE_DIR"`
	AuthSecret            string        `mapstructure:"AUTH_SECRET"`
	AllowUnverifiedTokens bool          `mapstructure:"ALLOW_UNVERIFIED_TOKENS"`
	RequestTimeout        time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	RateLimitRPS          float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst        int           `mapstructure:"RATE_LIMIT_BURST"`
	LogLevel              string        `mapstructure:"LOG_LEVEL"`

	// Mock API server only.
	Port        string `mapstructure:"PORT"`
	LegacyWire  bool   `mapstructure:"LEGACY_WIRE"`
	TokenExpiry int    `mapstructure:"TOKEN_EXPIRY_MINUTES"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("ENV", "development")
	v.SetDefault("API_BASE_URL", "http://localhost:8000")
	v.SetDefault("CACHE_DIR", "")
	v.SetDefault("REQUEST_TIMEOUT", "15s")
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("PORT", "8000")
	v.SetDefault("TOKEN_EXPIRY_MINUTES", 60)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("ENV")
	v.BindEnv("API_BASE_URL")
	v.BindEnv("CACHE_DIR")
	v.BindEnv("AUTH_SECRET")
	v.BindEnv("ALLOW_UNVERIFIED_TOKENS")
	v.BindEnv("REQUEST_TIMEOUT")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("LOG_LEVEL")
	v.BindEnv("PORT")
	v.BindEnv("LEGACY_WIRE")
	v.BindEnv("TOKEN_EXPIRY_MINUTES")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the client is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. Unverified
// token decoding is a development convenience: without AUTH_SECRET the
// client cannot check signatures, and ALLOW_UNVERIFIED_TOKENS must be
// set explicitly to accept that. Production refuses it outright.
func (c *Config) Validate() error {
	if c.AuthSecret == "" && !c.AllowUnverifiedTokens {
		return fmt.Errorf(
			"AUTH_SECRET is not set and ALLOW_UNVERIFIED_TOKENS is false. " +
				"Set AUTH_SECRET to verify bearer tokens, or explicitly opt in to " +
				"unverified decoding with ALLOW_UNVERIFIED_TOKENS=true (development only)")
	}
	if c.IsProduction() && c.AllowUnverifiedTokens {
		return fmt.Errorf("ALLOW_UNVERIFIED_TOKENS must not be enabled in production")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	return nil
}

// ValidateServer checks the extra requirements of the mock API server,
// which signs tokens and therefore always needs a secret.
func (c *Config) ValidateServer() error {
	if c.AuthSecret == "" {
		return fmt.Errorf("AUTH_SECRET is required to sign tokens")
	}
	if c.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	return nil
}
