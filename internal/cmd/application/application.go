// Package application provides the application interface for matchrules commands.
//
// The Application interface defines the contract between the application layer and
// command implementations, enabling dependency injection and testability.
//
// Usage in Commands:
//
//	func NewCommand(app application.Application) *cobra.Command {
//	    return &cobra.Command{
//	        RunE: func(cmd *cobra.Command, args []string) error {
//	            s, err := app.Session(cmd.Context())
//	            if err != nil {
//	                return err
//	            }
//	            // ... mutate the session
//	            return app.SaveSession(cmd.Context(), s)
//	        },
//	    }
//	}
//
// Testing with Mocks:
//
//	mock := &application.Mock{
//	    StatePathFunc: func() string { return filepath.Join(t.TempDir(), "state.json") },
//	}
//	cmd := NewCommand(mock)
package application

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/agentstation/matchrules"
	"github.com/agentstation/matchrules/internal/server/events/adapters"
	"github.com/agentstation/matchrules/internal/store"
	"github.com/agentstation/matchrules/pkg/services"
)

// Application provides the application interface that commands need.
// The App struct from cmd/matchrules/app implements this interface.
type Application interface {
	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (json, yaml, table, wide).
	OutputFormat() string

	// StatePath returns the snapshot file the session commands work on.
	StatePath() string

	// Service returns the client of the rule services, or nil when no
	// service URL is configured.
	Service() (services.Service, error)

	// NewSession creates an empty session wired to the rule services.
	NewSession(opts ...matchrules.Option) (*matchrules.Session, error)

	// Session restores the session stored at StatePath.
	Session(ctx context.Context) (*matchrules.Session, error)

	// SaveSession writes s to StatePath.
	SaveSession(ctx context.Context, s *matchrules.Session) error

	// StoreConfig returns the session store settings used by serve.
	StoreConfig() store.Config

	// KafkaConfig returns the event export settings used by serve.
	KafkaConfig() adapters.KafkaConfig

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
