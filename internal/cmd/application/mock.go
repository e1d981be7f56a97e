package application

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/agentstation/matchrules"
	"github.com/agentstation/matchrules/internal/server/events/adapters"
	"github.com/agentstation/matchrules/internal/store"
	"github.com/agentstation/matchrules/pkg/errors"
	"github.com/agentstation/matchrules/pkg/services"
	"github.com/agentstation/matchrules/pkg/snapshot"
)

// Mock provides a mock implementation of Application for testing.
// Each method can be customized by setting the corresponding function field.
// If a function field is nil, the method falls back to a working default:
// sessions are kept in the snapshot file named by StatePathFunc.
type Mock struct {
	LoggerFunc       func() *zerolog.Logger
	OutputFormatFunc func() string
	StatePathFunc    func() string
	ServiceFunc      func() (services.Service, error)
	StoreConfigFunc  func() store.Config
	KafkaConfigFunc  func() adapters.KafkaConfig
	VersionFunc      func() string
}

// Logger returns a logger using the mock function or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	logger := zerolog.Nop()
	return &logger
}

// OutputFormat returns output format using the mock function or "json".
func (m *Mock) OutputFormat() string {
	if m.OutputFormatFunc != nil {
		return m.OutputFormatFunc()
	}
	return "json"
}

// StatePath returns the state path using the mock function or "state.json".
func (m *Mock) StatePath() string {
	if m.StatePathFunc != nil {
		return m.StatePathFunc()
	}
	return "state.json"
}

// Service returns the service using the mock function or nil.
func (m *Mock) Service() (services.Service, error) {
	if m.ServiceFunc != nil {
		return m.ServiceFunc()
	}
	return nil, nil
}

func (m *Mock) sessionOptions() ([]matchrules.Option, error) {
	opts := []matchrules.Option{matchrules.WithLogger(m.Logger())}
	svc, err := m.Service()
	if err != nil {
		return nil, err
	}
	if svc != nil {
		opts = append(opts, matchrules.WithService(svc))
	}
	return opts, nil
}

// NewSession creates a session wired to the mock service.
func (m *Mock) NewSession(opts ...matchrules.Option) (*matchrules.Session, error) {
	base, err := m.sessionOptions()
	if err != nil {
		return nil, err
	}
	return matchrules.New(append(base, opts...)...)
}

// Session restores the session stored at StatePath.
func (m *Mock) Session(_ context.Context) (*matchrules.Session, error) {
	state, err := snapshot.Load(m.StatePath())
	if err != nil {
		return nil, err
	}
	opts, err := m.sessionOptions()
	if err != nil {
		return nil, err
	}
	return matchrules.Restore(state, opts...)
}

// SaveSession writes s to StatePath.
func (m *Mock) SaveSession(_ context.Context, s *matchrules.Session) error {
	if s == nil {
		return errors.NewValidationError("session", nil, "session is nil")
	}
	return snapshot.Save(m.StatePath(), s.Snapshot())
}

// StoreConfig returns the store config using the mock function or a memory store.
func (m *Mock) StoreConfig() store.Config {
	if m.StoreConfigFunc != nil {
		return m.StoreConfigFunc()
	}
	return store.Config{Backend: store.BackendMemory}
}

// KafkaConfig returns the Kafka config using the mock function or an empty one.
func (m *Mock) KafkaConfig() adapters.KafkaConfig {
	if m.KafkaConfigFunc != nil {
		return m.KafkaConfigFunc()
	}
	return adapters.KafkaConfig{}
}

// Version returns version using the mock function or "dev".
func (m *Mock) Version() string {
	if m.VersionFunc != nil {
		return m.VersionFunc()
	}
	return "dev"
}

// Commit returns "unknown".
func (m *Mock) Commit() string { return "unknown" }

// Date returns "unknown".
func (m *Mock) Date() string { return "unknown" }

// BuiltBy returns "test".
func (m *Mock) BuiltBy() string { return "test" }

// Ensure Mock implements Application at compile time.
var _ Application = (*Mock)(nil)
