/**
 * @description
 * This package handles the configuration management for the gateway. It uses the
 * Viper library to read configuration from environment variables and an optional
 * .env file, providing a centralized way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var ErrMissingSessionSecret = errors.New("SESSION_SECRET must be set")

// Config holds all the configuration variables for the gateway.
// These values are loaded from environment variables.
type Config struct {
	ServerPort  string `mapstructure:"SERVER_PORT"`
	BaseURL     string `mapstructure:"BASE_URL"`
	DBDriver    string `mapstructure:"DB_DRIVER"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	SessionSecret   string `mapstructure:"SESSION_SECRET"`
	SessionTTLHours int    `mapstructure:"SESSION_TTL_HOURS"`
	CookieSecure    bool   `mapstructure:"COOKIE_SECURE"`

	AtlanticAPIBaseURL     string `mapstructure:"ATLANTIC_API_BASE_URL"`
	AtlanticAPIKey         string `mapstructure:"ATLANTIC_API_KEY"`
	AtlanticDepositType    string `mapstructure:"ATLANTIC_DEPOSIT_TYPE"`
	AtlanticDepositMethod  string `mapstructure:"ATLANTIC_DEPOSIT_METHOD"`
	UpstreamTimeoutSeconds int    `mapstructure:"UPSTREAM_TIMEOUT_SECONDS"`

	DepositFeePercent    float64 `mapstructure:"DEPOSIT_FEE_PERCENT"`
	DepositFeeFlat       int64   `mapstructure:"DEPOSIT_FEE_FLAT"`
	DepositExpiryMinutes int     `mapstructure:"DEPOSIT_EXPIRY_MINUTES"`

	AdminUsername string `mapstructure:"ADMIN_USERNAME"`
	AdminEmail    string `mapstructure:"ADMIN_EMAIL"`
	AdminPassword string `mapstructure:"ADMIN_PASSWORD"`

	WithdrawWhatsAppPhone   string `mapstructure:"WITHDRAW_WHATSAPP_PHONE"`
	WithdrawMessageTemplate string `mapstructure:"WITHDRAW_MESSAGE_TEMPLATE"`

	RabbitMQURL    string `mapstructure:"RABBITMQ_URL"`
	EventsExchange string `mapstructure:"EVENTS_EXCHANGE"`

	RedisURL              string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix  string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	H2HRateLimitPerMinute int    `mapstructure:"H2H_RATE_LIMIT_PER_MINUTE"`

	ReconcileSchedule  string `mapstructure:"RECONCILE_SCHEDULE"`
	ReconcileBatchSize int    `mapstructure:"RECONCILE_BATCH_SIZE"`

	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("BASE_URL", "")
	viper.SetDefault("DB_DRIVER", "sqlite")
	viper.SetDefault("DATABASE_URL", "./rpay.db")
	viper.SetDefault("SESSION_TTL_HOURS", 24)
	viper.SetDefault("COOKIE_SECURE", false)
	viper.SetDefault("ATLANTIC_API_BASE_URL", "https://atlantich2h.com")
	viper.SetDefault("ATLANTIC_DEPOSIT_TYPE", "ewallet")
	viper.SetDefault("ATLANTIC_DEPOSIT_METHOD", "qrisfast")
	viper.SetDefault("UPSTREAM_TIMEOUT_SECONDS", 15)
	viper.SetDefault("DEPOSIT_FEE_PERCENT", 1.4)
	viper.SetDefault("DEPOSIT_FEE_FLAT", 300)
	viper.SetDefault("DEPOSIT_EXPIRY_MINUTES", 60)
	viper.SetDefault("WITHDRAW_WHATSAPP_PHONE", "6289525036410")
	viper.SetDefault("WITHDRAW_MESSAGE_TEMPLATE", "Halo Admin RPay, saya ingin melakukan pencairan sebesar Rp {nominal}")
	viper.SetDefault("EVENTS_EXCHANGE", "rpay.events")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "rpay:rate_limit")
	viper.SetDefault("H2H_RATE_LIMIT_PER_MINUTE", 120)
	viper.SetDefault("RECONCILE_SCHEDULE", "@every 1m")
	viper.SetDefault("RECONCILE_BATCH_SIZE", 50)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("BASE_URL")
	_ = viper.BindEnv("DB_DRIVER")
	_ = viper.BindEnv("DATABASE_URL", "DATABASE_URL", "DB_PATH")
	_ = viper.BindEnv("SESSION_SECRET")
	_ = viper.BindEnv("SESSION_TTL_HOURS")
	_ = viper.BindEnv("COOKIE_SECURE")
	_ = viper.BindEnv("ATLANTIC_API_BASE_URL")
	_ = viper.BindEnv("ATLANTIC_API_KEY")
	_ = viper.BindEnv("ATLANTIC_DEPOSIT_TYPE")
	_ = viper.BindEnv("ATLANTIC_DEPOSIT_METHOD")
	_ = viper.BindEnv("UPSTREAM_TIMEOUT_SECONDS")
	_ = viper.BindEnv("DEPOSIT_FEE_PERCENT")
	_ = viper.BindEnv("DEPOSIT_FEE_FLAT")
	_ = viper.BindEnv("DEPOSIT_EXPIRY_MINUTES")
	_ = viper.BindEnv("ADMIN_USERNAME")
	_ = viper.BindEnv("ADMIN_EMAIL")
	_ = viper.BindEnv("ADMIN_PASSWORD")
	_ = viper.BindEnv("WITHDRAW_WHATSAPP_PHONE")
	_ = viper.BindEnv("WITHDRAW_MESSAGE_TEMPLATE")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("EVENTS_EXCHANGE")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("H2H_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("RECONCILE_SCHEDULE")
	_ = viper.BindEnv("RECONCILE_BATCH_SIZE")
	_ = viper.BindEnv("CORS_ALLOWED_ORIGINS")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("failed to read config file; using environment values", "component", "config", "err", err)
		}
		err = nil
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.BaseURL = strings.TrimRight(strings.TrimSpace(config.BaseURL), "/")
	config.DBDriver = strings.ToLower(strings.TrimSpace(config.DBDriver))
	config.DatabaseURL = strings.TrimSpace(config.DatabaseURL)
	config.SessionSecret = strings.TrimSpace(config.SessionSecret)
	config.AtlanticAPIBaseURL = strings.TrimRight(strings.TrimSpace(config.AtlanticAPIBaseURL), "/")
	config.AtlanticAPIKey = strings.TrimSpace(config.AtlanticAPIKey)
	config.AdminUsername = strings.TrimSpace(config.AdminUsername)
	config.AdminEmail = strings.TrimSpace(config.AdminEmail)
	config.WithdrawWhatsAppPhone = strings.TrimPrefix(strings.TrimSpace(config.WithdrawWhatsAppPhone), "+")
	config.RabbitMQURL = strings.TrimSpace(config.RabbitMQURL)
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "rpay:rate_limit"
	}

	if config.SessionTTLHours <= 0 {
		config.SessionTTLHours = 24
	}
	if config.UpstreamTimeoutSeconds <= 0 {
		config.UpstreamTimeoutSeconds = 15
	}
	if config.DepositExpiryMinutes <= 0 {
		config.DepositExpiryMinutes = 60
	}
	if config.DepositFeePercent < 0 {
		slog.Warn("negative deposit fee percent configured; coercing to zero", "component", "config", "fee_percent", config.DepositFeePercent)
		config.DepositFeePercent = 0
	}
	if config.DepositFeePercent > 100 {
		slog.Warn("deposit fee percent too high; capping at 100", "component", "config", "fee_percent", config.DepositFeePercent)
		config.DepositFeePercent = 100
	}
	if config.DepositFeeFlat < 0 {
		slog.Warn("negative flat deposit fee configured; coercing to zero", "component", "config", "fee_flat", config.DepositFeeFlat)
		config.DepositFeeFlat = 0
	}
	if config.H2HRateLimitPerMinute <= 0 {
		config.H2HRateLimitPerMinute = 120
	}
	if strings.TrimSpace(config.ReconcileSchedule) == "" {
		config.ReconcileSchedule = "@every 1m"
	}
	if config.ReconcileBatchSize <= 0 {
		config.ReconcileBatchSize = 50
	}

	if config.SessionSecret == "" {
		err = ErrMissingSessionSecret
		return
	}

	return
}

// SessionTTL returns the session lifetime as a duration.
func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

func (c Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.UpstreamTimeoutSeconds) * time.Second
}

func (c Config) DepositExpiry() time.Duration {
	return time.Duration(c.DepositExpiryMinutes) * time.Minute
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (c Config) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(c.CORSAllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// AdminConfigured reports whether all admin seed credentials are present.
func (c Config) AdminConfigured() bool {
	return c.AdminUsername != "" && c.AdminEmail != "" && c.AdminPassword != ""
}
