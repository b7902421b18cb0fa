package config

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	ierr "github.com/vitacare/vitacare/internal/errors"
	"github.com/vitacare/vitacare/internal/types"
)

type Configuration struct {
	Logging LoggingConfig `mapstructure:"logging" validate:"required"`
	Webhook WebhookConfig `mapstructure:"webhook" validate:"required"`
	Sweep   SweepConfig   `mapstructure:"sweep" validate:"required"`
	Billing BillingConfig `mapstructure:"billing" validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `mapstructure:"level" validate:"required"`
}

type WebhookConfig struct {
	// Topic is the pubsub topic transition events are published on
	Topic string `mapstructure:"topic" validate:"required"`
	// BufferSize is the output channel buffer of the in-memory pubsub
	BufferSize int `mapstructure:"buffer_size" validate:"min=1"`
}

type SweepConfig struct {
	// Workers bounds the goroutines processing one sweep pass
	Workers int `mapstructure:"workers" validate:"min=1"`
}

type BillingConfig struct {
	// MaxFailedPaymentAttempts is the dunning cap after which a
	// payment-failed subscription should be suspended
	MaxFailedPaymentAttempts int `mapstructure:"max_failed_payment_attempts" validate:"min=1"`
	// ConflictRetries bounds internal retries on optimistic version conflicts
	ConflictRetries int `mapstructure:"conflict_retries" validate:"min=0"`
}

func NewConfig() (*Configuration, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/vitacare")

	v.SetEnvPrefix("VITACARE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, env vars and defaults still apply
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, ierr.WithError(err).
				WithHint("Failed to read configuration file").
				Mark(ierr.ErrValidation)
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to unmarshal configuration").
			Mark(ierr.ErrValidation)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", string(types.LogLevelInfo))
	v.SetDefault("webhook.topic", "subscription_events")
	v.SetDefault("webhook.buffer_size", 100)
	v.SetDefault("sweep.workers", 4)
	v.SetDefault("billing.max_failed_payment_attempts", 3)
	v.SetDefault("billing.conflict_retries", 3)
}

func (c *Configuration) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid configuration").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// GetDefaultConfig returns a default configuration for scripts and tests
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Logging: LoggingConfig{Level: types.LogLevelInfo},
		Webhook: WebhookConfig{Topic: "subscription_events", BufferSize: 100},
		Sweep:   SweepConfig{Workers: 4},
		Billing: BillingConfig{MaxFailedPaymentAttempts: 3, ConflictRetries: 3},
	}
}
