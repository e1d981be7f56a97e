package logging_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/matchrules/pkg/logging"
)

func TestDefaultLogger(t *testing.T) {
	original := *logging.Default()
	originalLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		logging.SetDefault(original)
		zerolog.SetGlobalLevel(originalLevel)
	})

	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	buf := &bytes.Buffer{}
	logging.SetDefault(zerolog.New(buf).Level(zerolog.InfoLevel))

	logging.Debug().Msg("debug message")
	logging.Info().Msg("info message")
	logging.Err(errors.New("boom")).Msg("error message")

	output := buf.String()
	assert.NotContains(t, output, "debug message")
	assert.Contains(t, output, "info message")
	assert.Contains(t, output, "boom")
}

func TestContextLogger(t *testing.T) {
	tl := logging.NewTestLogger(t)

	ctx := logging.WithLogger(context.Background(), tl.Logger)
	ctx = logging.WithSession(ctx, "b1946ac9")
	ctx = logging.WithMatchSet(ctx, "reviewed")
	ctx = logging.WithRule(ctx, 3)
	ctx = logging.WithOperation(ctx, "apply rules")

	logging.Ctx(ctx).Info().Msg("rules applied")

	tl.AssertContains(t, `"session_id":"b1946ac9"`)
	tl.AssertContains(t, `"match_set":"reviewed"`)
	tl.AssertContains(t, `"rule_index":3`)
	tl.AssertContains(t, `"operation":"apply rules"`)
	assert.Equal(t, 1, tl.Count())
}

func TestRequestID(t *testing.T) {
	tl := logging.NewTestLogger(t)
	ctx := logging.WithLogger(context.Background(), tl.Logger)
	ctx = logging.WithRequestID(ctx, "req-1")

	assert.Equal(t, "req-1", logging.RequestID(ctx))
	assert.Empty(t, logging.RequestID(context.Background()))

	logging.FromContext(ctx).Info().Msg("handled")
	tl.AssertContains(t, `"request_id":"req-1"`)
}

func TestWithFieldsAndError(t *testing.T) {
	tl := logging.NewTestLogger(t)
	ctx := logging.WithLogger(context.Background(), tl.Logger)
	ctx = logging.WithFields(ctx, map[string]any{"matches": 4, "ambiguous": true})
	assert.Equal(t, ctx, logging.WithError(ctx, nil))
	ctx = logging.WithError(ctx, errors.New("apply failed"))

	logging.Ctx(ctx).Warn().Msg("partial")
	tl.AssertContains(t, `"matches":4`)
	tl.AssertContains(t, `"ambiguous":true`)
	tl.AssertContains(t, "apply failed")
}

func TestFromContextDefaults(t *testing.T) {
	//nolint:staticcheck // nil context is part of the contract
	assert.Equal(t, logging.Default(), logging.FromContext(nil))
	assert.Equal(t, logging.Default(), logging.FromContext(context.Background()))
}

func TestConfiguration(t *testing.T) {
	originalLevel := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(originalLevel) })

	tests := []struct {
		name     string
		level    string
		contains []string
		excludes []string
	}{
		{name: "debug level", level: "debug", contains: []string{`"level":"debug"`, `"level":"info"`}},
		{name: "error level only", level: "error", contains: []string{`"level":"error"`}, excludes: []string{`"level":"info"`}},
		{name: "warning alias", level: "warning", contains: []string{`"level":"error"`}, excludes: []string{`"level":"info"`}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := logging.NewLoggerFromConfig(&logging.Config{Level: tc.level, Format: "json", Output: "discard"})
			logger = logger.Output(buf)

			logger.Debug().Msg("debug")
			logger.Info().Msg("info")
			logger.Error().Msg("error")

			for _, s := range tc.contains {
				assert.Contains(t, buf.String(), s)
			}
			for _, s := range tc.excludes {
				assert.NotContains(t, buf.String(), s)
			}
		})
	}
}

func TestConfigFileOutput(t *testing.T) {
	originalLevel := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(originalLevel) })

	path := filepath.Join(t.TempDir(), "matchrules.log")
	logger := logging.NewLoggerFromConfig(&logging.Config{
		Level:  "info",
		Format: "json",
		Output: path,
		Fields: map[string]any{"service": "matchrules"},
	})
	logger.Info().Msg("written to file")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "written to file")
	assert.Contains(t, string(content), `"service":"matchrules"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, logging.ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, logging.ParseLevel("bogus"))
	assert.Equal(t, zerolog.DebugLevel, logging.ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, logging.ParseLevel("warning"))
	assert.Equal(t, zerolog.Disabled, logging.ParseLevel("off"))
	assert.Equal(t, zerolog.TraceLevel, logging.ParseLevel("trace"))
}

func TestDefaultConfig(t *testing.T) {
	cfg := logging.DefaultConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "auto", cfg.Format)
	assert.Equal(t, "stderr", cfg.Output)
	assert.False(t, cfg.AddCaller)
}

func TestTestLogger(t *testing.T) {
	tl := logging.NewTestLogger(t)

	tl.Logger.Info().Msg("message 1")
	tl.Logger.Error().Msg("message 2")

	tl.AssertContains(t, "message 1")
	assert.Equal(t, 2, tl.Count())
	assert.Len(t, tl.Lines(), 2)

	tl.Clear()
	assert.Equal(t, 0, tl.Count())
	assert.Empty(t, tl.Lines())
}

func TestDisableLoggingForTest(t *testing.T) {
	logging.DisableLoggingForTest(t)
	assert.Equal(t, zerolog.Disabled, logging.Default().GetLevel())
	assert.NotNil(t, logging.NewNopLogger())
}
