package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/matchrules/pkg/constants"
	"github.com/agentstation/matchrules/pkg/errors"
)

// TestLoadConfig verifies the defaults.
func TestLoadConfig(t *testing.T) {
	config, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "matchrules.json", config.State)
	assert.Equal(t, "Authorization", config.ServiceAuthHeader)
	assert.Equal(t, constants.DefaultHTTPTimeout, config.ServiceTimeout)
	assert.Equal(t, "file", config.Store.Backend)
	assert.Equal(t, "matchrules.events", config.KafkaTopic)
	assert.NotEmpty(t, config.LogFormat)
	assert.NoError(t, config.Validate())
}

// TestConfig_EnvironmentVariables verifies MATCHRULES_* variables.
func TestConfig_EnvironmentVariables(t *testing.T) {
	t.Setenv("MATCHRULES_STATE", "plant.yaml")
	t.Setenv("MATCHRULES_SERVICE_URL", "http://rules.internal:8000")
	t.Setenv("MATCHRULES_SERVICE_TIMEOUT", "2m")
	t.Setenv("MATCHRULES_KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("MATCHRULES_REDIS_DB", "3")

	config, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "plant.yaml", config.State)
	assert.Equal(t, "http://rules.internal:8000", config.ServiceURL)
	assert.Equal(t, 2*time.Minute, config.ServiceTimeout)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, config.KafkaBrokers)
	assert.Equal(t, 3, config.Store.RedisDB)
}

// TestConfig_File verifies reading an explicit config file.
func TestConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matchrules.yaml")
	content := `state: sessions/plant.json
service_url: https://rules.example.com
service_api_key: secret
service_auth_header: X-API-Key
store: redis
redis_addr: localhost:6379
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, path, config.ConfigFile)
	assert.Equal(t, "sessions/plant.json", config.State)
	assert.Equal(t, "https://rules.example.com", config.ServiceURL)
	assert.Equal(t, "secret", config.ServiceAPIKey)
	assert.Equal(t, "X-API-Key", config.ServiceAuthHeader)
	assert.Equal(t, "redis", config.Store.Backend)
	assert.Equal(t, "localhost:6379", config.Store.RedisAddr)

	t.Run("missing explicit file fails", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})
}

// TestConfig_Validate verifies the validation rules.
func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{State: "state.json", Format: "json", LogFormat: "auto"}
	}

	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"missing state", func(c *Config) { c.State = "" }},
		{"unknown format", func(c *Config) { c.Format = "xml" }},
		{"invalid service url", func(c *Config) { c.ServiceURL = "not a url" }},
		{"negative timeout", func(c *Config) { c.ServiceTimeout = -time.Second }},
		{"unknown store", func(c *Config) { c.Store.Backend = "s3" }},
		{"redis without address", func(c *Config) { c.Store.Backend = "redis" }},
	}

	require.NoError(t, valid().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid()
			tt.modify(config)
			err := config.Validate()
			require.Error(t, err)
			var configErr *errors.ConfigError
			assert.True(t, errors.As(err, &configErr))
		})
	}
}
