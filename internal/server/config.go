package server

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/agentstation/matchrules/internal/server/events/adapters"
	"github.com/agentstation/matchrules/pkg/errors"
)

// Config holds server configuration.
type Config struct {
	// Server settings
	Host string `mapstructure:"host" validate:"required"`
	Port int    `mapstructure:"port" validate:"gte=1,lte=65535"`

	// API settings
	PathPrefix string `mapstructure:"path_prefix" validate:"omitempty,startswith=/"`

	// CORS settings
	CORSEnabled bool     `mapstructure:"cors"`
	CORSOrigins []string `mapstructure:"cors_origins"`

	// Authentication settings
	AuthEnabled bool   `mapstructure:"auth"`
	AuthHeader  string `mapstructure:"auth_header"`
	APIKey      string `mapstructure:"api_key" validate:"required_if=AuthEnabled true"`

	// Performance settings
	RateLimit int           `mapstructure:"rate_limit" validate:"gte=0"` // Requests per minute per IP (0 to disable)
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`

	// HTTP timeouts. WriteTimeout must cover a full generate call; zero
	// disables it, which SSE and WebSocket streams need.
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`

	// Features
	MetricsEnabled bool `mapstructure:"metrics"`

	// Kafka event export, disabled when no brokers are set
	Kafka adapters.KafkaConfig `mapstructure:"kafka"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Host:           "localhost",
		Port:           8080,
		PathPrefix:     "/api/v1",
		CORSEnabled:    false,
		CORSOrigins:    []string{},
		AuthEnabled:    false,
		AuthHeader:     "X-API-Key",
		RateLimit:      100,
		CacheTTL:       5 * time.Minute,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   0,
		IdleTimeout:    120 * time.Second,
		MetricsEnabled: true,
		Kafka: adapters.KafkaConfig{
			Topic:        "matchrules.events",
			WriteTimeout: 10 * time.Second,
		},
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.NewConfigError("server", err.Error(), err)
	}
	return nil
}
