// Package app provides the application context and dependency management
// for the matchrules CLI. It centralizes configuration, logging, the rule
// service client and access to the session state file.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/matchrules"
	"github.com/agentstation/matchrules/internal/cmd/application"
	"github.com/agentstation/matchrules/internal/server"
	"github.com/agentstation/matchrules/internal/server/events/adapters"
	"github.com/agentstation/matchrules/internal/store"
	"github.com/agentstation/matchrules/internal/transport"
	"github.com/agentstation/matchrules/pkg/errors"
	"github.com/agentstation/matchrules/pkg/services"
	"github.com/agentstation/matchrules/pkg/snapshot"
)

// App represents the matchrules application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger

	// Command output, stdout when nil
	out io.Writer

	// Rule service client (lazy-initialized, singleton)
	mu      sync.Mutex
	service services.Service
}

// Ensure App implements application.Application at compile time.
var _ application.Application = (*App)(nil)

// New creates a new App instance with the given version information.
// Configuration is loaded from the environment, .env files and the default
// config file, and can be replaced with functional options.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	config, err := LoadConfig(os.Getenv(EnvPrefix + "_CONFIG"))
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// StatePath returns the session state file.
func (a *App) StatePath() string {
	return a.config.State
}

// Service returns the rule service client, creating it lazily. It returns
// nil when no service URL is configured; sessions then refuse operations
// needing the services.
func (a *App) Service() (services.Service, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.service != nil || a.config.ServiceURL == "" {
		return a.service, nil
	}

	client, err := transport.New(a.config.ServiceURL,
		transport.WithTimeout(a.config.ServiceTimeout),
		transport.WithAPIKey(a.config.ServiceAPIKey, transport.AuthForHeader(a.config.ServiceAuthHeader)),
		transport.WithUserAgent("matchrules/"+a.version),
	)
	if err != nil {
		return nil, errors.WrapResource("create", "service client", a.config.ServiceURL, err)
	}
	a.service = client
	return client, nil
}

func (a *App) sessionOptions() ([]matchrules.Option, error) {
	opts := []matchrules.Option{matchrules.WithLogger(a.logger)}
	svc, err := a.Service()
	if err != nil {
		return nil, err
	}
	if svc != nil {
		opts = append(opts, matchrules.WithService(svc))
	}
	return opts, nil
}

// NewSession creates an empty session wired to the rule services.
func (a *App) NewSession(opts ...matchrules.Option) (*matchrules.Session, error) {
	base, err := a.sessionOptions()
	if err != nil {
		return nil, err
	}
	return matchrules.New(append(base, opts...)...)
}

// Session restores the session stored in the state file.
func (a *App) Session(_ context.Context) (*matchrules.Session, error) {
	path := a.StatePath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w (run 'matchrules init' first)", errors.NewNotFoundError("state file", path))
	}
	state, err := snapshot.Load(path)
	if err != nil {
		return nil, err
	}
	opts, err := a.sessionOptions()
	if err != nil {
		return nil, err
	}
	s, err := matchrules.Restore(state, opts...)
	if err != nil {
		return nil, errors.WrapResource("restore", "session", path, err)
	}
	return s, nil
}

// SaveSession writes s to the state file.
func (a *App) SaveSession(_ context.Context, s *matchrules.Session) error {
	path := a.StatePath()
	if err := snapshot.Save(path, s.Snapshot()); err != nil {
		return err
	}
	a.logger.Debug().Str("path", path).Uint64("version", s.Version()).Msg("Session saved")
	return nil
}

// StoreConfig returns the session store settings.
func (a *App) StoreConfig() store.Config {
	return a.config.Store
}

// KafkaConfig returns the event export settings. Export is disabled while
// no brokers are configured.
func (a *App) KafkaConfig() adapters.KafkaConfig {
	cfg := server.DefaultConfig().Kafka
	cfg.Brokers = a.config.KafkaBrokers
	if a.config.KafkaTopic != "" {
		cfg.Topic = a.config.KafkaTopic
	}
	return cfg
}

// Shutdown performs graceful shutdown of the application.
func (a *App) Shutdown(_ context.Context) error {
	a.logger.Debug().Msg("Application shutdown")
	return nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithService sets the rule service (useful for testing).
func WithService(svc services.Service) Option {
	return func(a *App) error {
		a.service = svc
		return nil
	}
}

// WithOutput sends command output to w instead of stdout.
func WithOutput(w io.Writer) Option {
	return func(a *App) error {
		a.out = w
		return nil
	}
}
