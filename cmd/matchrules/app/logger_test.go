package app

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

// TestDetermineLogLevel tests the log level precedence logic.
func TestDetermineLogLevel(t *testing.T) {
	tests := []struct {
		name     string
		config   *Config
		expected string
	}{
		{"default level when no flags set", &Config{}, "info"},
		{"verbose flag sets debug", &Config{Verbose: true}, "debug"},
		{"quiet flag sets warn", &Config{Quiet: true}, "warn"},
		{"both flags prefer quiet", &Config{Verbose: true, Quiet: true}, "warn"},
		{"explicit log-level overrides verbose", &Config{LogLevel: "error", Verbose: true}, "error"},
		{"explicit log-level overrides quiet", &Config{LogLevel: "trace", Quiet: true}, "trace"},
		{"invalid log-level falls back to info", &Config{LogLevel: "loud"}, "info"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, determineLogLevel(tt.config))
		})
	}
}

// TestNewLogger verifies the logger honours the resolved level.
func TestNewLogger(t *testing.T) {
	logger := NewLogger(&Config{LogLevel: "warn", LogFormat: "json", LogOutput: "discard"})
	assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())

	logger = NewLogger(&Config{Verbose: true, LogFormat: "json", LogOutput: "discard"})
	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())
}
