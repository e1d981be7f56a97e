package app

import (
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/matchrules/internal/store"
	"github.com/agentstation/matchrules/pkg/constants"
	"github.com/agentstation/matchrules/pkg/errors"
)

// EnvPrefix prefixes every environment variable read into Config.
const EnvPrefix = "MATCHRULES"

// Config holds the application configuration loaded from various sources
// including config files, environment variables, and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string `validate:"omitempty,oneof=table json yaml wide"`

	// Config file
	ConfigFile string

	// Session state file
	State string `validate:"required"`

	// Rule services
	ServiceURL        string        `validate:"omitempty,url"`
	ServiceAPIKey     string
	ServiceAuthHeader string
	ServiceTimeout    time.Duration `validate:"gte=0"`

	// Session store used by serve
	Store store.Config

	// Event export used by serve
	KafkaBrokers []string
	KafkaTopic   string

	// Logging configuration
	LogLevel  string
	LogFormat string `validate:"omitempty,oneof=auto json console pretty"`
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables (MATCHRULES_*)
// 3. .env files
// 4. Config file (~/.matchrules.yaml or --config)
// 5. Defaults
func LoadConfig(configFile string) (*Config, error) {
	// Load .env files first (before Viper env binding)
	loadEnvFiles()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".matchrules")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, errors.WrapResource("read", "config", configFile, err)
		}
	}

	config := &Config{
		Verbose: v.GetBool("verbose"),
		Quiet:   v.GetBool("quiet"),
		NoColor: v.GetBool("no_color"),
		Format:  v.GetString("format"),

		ConfigFile: v.ConfigFileUsed(),

		State: v.GetString("state"),

		ServiceURL:        v.GetString("service_url"),
		ServiceAPIKey:     v.GetString("service_api_key"),
		ServiceAuthHeader: v.GetString("service_auth_header"),
		ServiceTimeout:    v.GetDuration("service_timeout"),

		Store: store.Config{
			Backend:       v.GetString("store"),
			Dir:           v.GetString("store_dir"),
			Format:        v.GetString("store_format"),
			RedisAddr:     v.GetString("redis_addr"),
			RedisPassword: v.GetString("redis_password"),
			RedisDB:       v.GetInt("redis_db"),
			RedisPrefix:   v.GetString("redis_prefix"),
		},

		KafkaBrokers: splitList(v.GetStringSlice("kafka_brokers")),
		KafkaTopic:   v.GetString("kafka_topic"),

		// LOG_LEVEL stays empty unless set so -v/-q can apply
		LogLevel:  getEnvOrDefault("LOG_LEVEL", v.GetString("log_level")),
		LogFormat: getEnvOrDefault("LOG_FORMAT", v.GetString("log_format")),
		LogOutput: getEnvOrDefault("LOG_OUTPUT", v.GetString("log_output")),
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("state", "matchrules.json")
	v.SetDefault("service_auth_header", "Authorization")
	v.SetDefault("service_timeout", constants.DefaultHTTPTimeout)
	v.SetDefault("store", store.BackendFile)
	v.SetDefault("store_dir", constants.DefaultStateDir)
	v.SetDefault("redis_prefix", "matchrules:")
	v.SetDefault("kafka_topic", "matchrules.events")
	v.SetDefault("log_format", "auto")
	v.SetDefault("log_output", "stderr")
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return errors.NewConfigError("config", err.Error(), err)
	}
	return nil
}

// splitList splits comma separated entries, as given by environment variables.
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// loadEnvFiles loads environment variables from .env files.
// .env.local overrides .env
func loadEnvFiles() {
	envFiles := []string{
		".env.local",
		".env",
	}

	for _, envFile := range envFiles {
		_ = godotenv.Load(envFile)
	}
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
